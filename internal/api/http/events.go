package httpapi

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/i474232898/weather-dashboard/internal/store"
)

// keepAliveInterval also bounds how long a dropped client stays subscribed.
const keepAliveInterval = 15 * time.Second

// streamEvents pushes a "state" event with the full state view after every
// store change, starting with the current state. Streams end when ctx is
// done so server shutdown is not held up by open connections.
func streamEvents(ctx context.Context, st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		encode := c.App().Config().JSONEncoder
		updates := make(chan store.State, 1)
		unsubscribe := st.Subscribe(func(s store.State) {
			offerLatest(updates, s)
		})
		initial := st.State()

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			defer unsubscribe()

			ticker := time.NewTicker(keepAliveInterval)
			defer ticker.Stop()

			if err := writeStateEvent(w, encode, initial); err != nil {
				return
			}
			for {
				select {
				case <-ctx.Done():
					return
				case s := <-updates:
					if err := writeStateEvent(w, encode, s); err != nil {
						log.Printf("DEBUG: event stream closed: %v", err)
						return
					}
				case <-ticker.C:
					if _, err := w.WriteString(": keepalive\n\n"); err != nil {
						return
					}
					if err := w.Flush(); err != nil {
						log.Printf("DEBUG: event stream closed: %v", err)
						return
					}
				}
			}
		}))
		return nil
	}
}

// offerLatest puts s on a one-slot channel, replacing any snapshot the reader
// has not taken yet. Slow readers skip intermediate states, never the last.
func offerLatest(ch chan store.State, s store.State) {
	for {
		select {
		case ch <- s:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func writeStateEvent(w *bufio.Writer, encode func(any) ([]byte, error), s store.State) error {
	b, err := encode(newStateView(s))
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if _, err := fmt.Fprintf(w, "event: state\ndata: %s\n\n", b); err != nil {
		return err
	}
	return w.Flush()
}
