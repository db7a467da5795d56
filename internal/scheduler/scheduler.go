package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"
)

// jobTimeout bounds a single refresh run.
const jobTimeout = 30 * time.Second

// Refresher is refreshed on every tick.
type Refresher interface {
	Refresh(ctx context.Context)
}

// Scheduler periodically refreshes the displayed weather.
type Scheduler struct {
	scheduler *gocron.Scheduler
	target    Refresher
	interval  time.Duration
}

// New creates a new Scheduler. A non-positive interval disables it.
func New(target Refresher, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		target:    target,
		interval:  interval,
	}
}

// Start schedules the periodic job and starts the underlying scheduler. The
// first run happens one interval after Start.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		log.Println("INFO: scheduler: refresh interval not set; periodic refresh disabled")
		return nil
	}

	_, err := s.scheduler.Every(s.interval).
		WaitForSchedule().
		SingletonMode().
		Do(s.run)
	if err != nil {
		return err
	}

	log.Printf("INFO: scheduler: refreshing weather every %s", s.interval)
	s.scheduler.StartAsync()
	return nil
}

// Jobs reports how many jobs are scheduled.
func (s *Scheduler) Jobs() int {
	return s.scheduler.Len()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}

func (s *Scheduler) run() {
	log.Println("DEBUG: scheduler: running weather refresh job")

	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	s.target.Refresh(ctx)
	log.Println("DEBUG: scheduler: completed weather refresh job")
}
