package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/settings"
	"github.com/i474232898/weather-dashboard/internal/storage"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// ErrInvalidUnit is returned when a unit other than metric or imperial is set.
var ErrInvalidUnit = errors.New("invalid temperature unit")

// fallbackErrorMessage is shown when a failure carries no provider message.
const fallbackErrorMessage = "unable to fetch weather data"

// WeatherClient is the subset of the weather client the store depends on.
type WeatherClient interface {
	GetCurrentWeather(ctx context.Context, city string, units weather.Units) (*weather.CurrentConditions, error)
	GetWeatherByCoords(ctx context.Context, lat, lon float64, units weather.Units) (*weather.CurrentConditions, error)
	GetForecast(ctx context.Context, lat, lon float64, units weather.Units) (*weather.ForecastSet, error)
}

// Store owns the UI-facing weather state and sequences client calls.
//
// Fetches are neither de-duplicated nor cancelled: two overlapping fetches
// both land, and whichever finishes last wins.
type Store struct {
	client  WeatherClient
	storage storage.Storage

	mu    sync.RWMutex
	state State

	// notifyMu keeps subscriber deliveries in mutation order.
	notifyMu sync.Mutex
	subMu    sync.RWMutex
	subs     map[uuid.UUID]func(State)
}

// New creates a Store and loads the persisted settings over defaults.
func New(client WeatherClient, st storage.Storage, defaults settings.Settings) *Store {
	s := &Store{
		client:  client,
		storage: st,
		subs:    make(map[uuid.UUID]func(State)),
	}
	s.state.Settings = settings.Load(st, defaults)
	log.Printf("INFO: settings loaded: default city %q, units %s", s.state.Settings.DefaultCity, s.state.Settings.TemperatureUnit)
	return s
}

// State returns a snapshot of the current state.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// TemperatureSymbol returns "°C" or "°F" for the active unit.
func (s *Store) TemperatureSymbol() string {
	return s.State().TemperatureSymbol()
}

// WindSpeedUnit returns "m/s" or "mph" for the active unit.
func (s *Store) WindSpeedUnit() string {
	return s.State().WindSpeedUnit()
}

// Subscribe registers fn to receive a snapshot after every state change.
// fn runs on the goroutine that made the change and must not call back into
// the store's actions. The returned func removes the subscription.
func (s *Store) Subscribe(fn func(State)) (unsubscribe func()) {
	id := uuid.New()

	s.subMu.Lock()
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

// FetchCurrentWeather loads current conditions for city and, when the
// response has coordinates, the forecast for them. Failures of the current
// conditions call end up in State.Error; forecast failures are only logged.
func (s *Store) FetchCurrentWeather(ctx context.Context, city string) {
	units := s.beginFetch()
	reqID := uuid.NewString()
	log.Printf("DEBUG: [%s] fetching current weather for %q in %s", reqID, city, units)

	current, err := s.client.GetCurrentWeather(ctx, city, units)
	s.settle(ctx, reqID, current, err, units)
}

// FetchWeatherByCoords is FetchCurrentWeather keyed by coordinates.
func (s *Store) FetchWeatherByCoords(ctx context.Context, lat, lon float64) {
	units := s.beginFetch()
	reqID := uuid.NewString()
	log.Printf("DEBUG: [%s] fetching current weather for (%v, %v) in %s", reqID, lat, lon, units)

	current, err := s.client.GetWeatherByCoords(ctx, lat, lon, units)
	s.settle(ctx, reqID, current, err, units)
}

// FetchForecast replaces the forecast for the given coordinates. Errors are
// logged and leave the state untouched.
func (s *Store) FetchForecast(ctx context.Context, lat, lon float64) {
	s.fetchForecast(ctx, lat, lon, s.State().Settings.TemperatureUnit)
}

// SetSearchCity updates the pending search text.
func (s *Store) SetSearchCity(text string) {
	s.update(func(st *State) {
		st.SearchCity = text
	})
}

// SearchWeather fetches the trimmed search text. Blank input does nothing.
func (s *Store) SearchWeather(ctx context.Context) {
	city := strings.TrimSpace(s.State().SearchCity)
	if city == "" {
		return
	}
	s.FetchCurrentWeather(ctx, city)
}

// SetDefaultCity updates and persists the default city without fetching.
// The in-memory setting changes even when persisting fails.
func (s *Store) SetDefaultCity(city string) error {
	var err error
	s.update(func(st *State) {
		st.Settings.DefaultCity = city
		err = s.saveSettings(st.Settings)
	})
	return err
}

// SetTemperatureUnit updates and persists the unit. When weather is already
// displayed it is fetched again under the new unit, forecast included.
func (s *Store) SetTemperatureUnit(ctx context.Context, unit weather.Units) error {
	if !unit.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidUnit, unit)
	}

	var (
		err     error
		current *weather.CurrentConditions
	)
	s.update(func(st *State) {
		st.Settings.TemperatureUnit = unit
		err = s.saveSettings(st.Settings)
		current = st.CurrentWeather
	})

	if current != nil {
		s.FetchCurrentWeather(ctx, current.Name)
	}
	return err
}

// LoadDefaultCityWeather fetches the configured default city, if any.
func (s *Store) LoadDefaultCityWeather(ctx context.Context) {
	city := s.State().Settings.DefaultCity
	if city == "" {
		log.Printf("INFO: no default city configured; skipping initial fetch")
		return
	}
	s.FetchCurrentWeather(ctx, city)
}

// Refresh fetches the displayed city again, or the default city when nothing
// is displayed yet.
func (s *Store) Refresh(ctx context.Context) {
	if current := s.State().CurrentWeather; current != nil {
		s.FetchCurrentWeather(ctx, current.Name)
		return
	}
	s.LoadDefaultCityWeather(ctx)
}

// beginFetch raises the loading flag, clears the error and returns the unit
// the fetch must use.
func (s *Store) beginFetch() weather.Units {
	var units weather.Units
	s.update(func(st *State) {
		st.Loading = true
		st.Error = nil
		units = st.Settings.TemperatureUnit
	})
	return units
}

// settle records the outcome of a current conditions call. Loading stays up
// while the follow-up forecast is fetched.
func (s *Store) settle(ctx context.Context, reqID string, current *weather.CurrentConditions, err error, units weather.Units) {
	if err != nil {
		msg := errorMessage(err)
		log.Printf("ERROR: [%s] fetching weather: %v", reqID, err)
		s.update(func(st *State) {
			st.Error = &msg
			st.Loading = false
		})
		return
	}

	s.update(func(st *State) {
		st.CurrentWeather = current
		st.UpdatedAt = time.Now().UTC()
	})

	if current.Coord != nil {
		s.fetchForecast(ctx, current.Coord.Lat, current.Coord.Lon, units)
	}

	s.update(func(st *State) {
		st.Loading = false
	})
}

func (s *Store) fetchForecast(ctx context.Context, lat, lon float64, units weather.Units) {
	forecast, err := s.client.GetForecast(ctx, lat, lon, units)
	if err != nil {
		log.Printf("ERROR: fetching forecast for (%v, %v): %v", lat, lon, err)
		return
	}
	s.update(func(st *State) {
		st.Forecast = forecast
	})
}

// saveSettings persists the full settings object. Called with mu held so
// writes reach storage in mutation order.
func (s *Store) saveSettings(cfg settings.Settings) error {
	if err := settings.Save(s.storage, cfg); err != nil {
		log.Printf("ERROR: saving settings: %v", err)
		return err
	}
	return nil
}

// update applies fn to a copy of the state, publishes the copy and notifies
// subscribers in order.
func (s *Store) update(fn func(*State)) {
	s.mu.Lock()
	next := s.state
	fn(&next)
	s.state = next
	s.notifyMu.Lock()
	s.mu.Unlock()

	defer s.notifyMu.Unlock()
	s.notify(next)
}

func (s *Store) notify(st State) {
	s.subMu.RLock()
	fns := make([]func(State), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range fns {
		fn(st)
	}
}

// errorMessage extracts the provider's message from err, if it carries one.
func errorMessage(err error) string {
	var apiErr *weather.APIError
	if errors.As(err, &apiErr) {
		return common.FirstNonEmpty(apiErr.Message, fallbackErrorMessage)
	}
	return fallbackErrorMessage
}
