// Package recorder keeps a history of published telemetry frames for offline
// analysis. Backends receive frames from the dispatcher, never from the frame
// loop directly.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/surgisim/fusion/internal/dispatcher"
	"github.com/surgisim/fusion/internal/telemetry"
)

// EventKind is the dispatcher kind frames are recorded under.
const EventKind = "telemetry.frame"

// Sample is one recorded frame.
type Sample struct {
	Frame uint64
	Time  time.Time
	Data  telemetry.Frame
}

// Backend is the interface every recorder implementation satisfies.
type Backend interface {
	Init(ctx context.Context) error
	Record(s Sample) error
	Close() error
}

// Exporter is implemented by backends that produce a session file.
type Exporter interface {
	Export() (string, error)
}

// Event wraps a sample for the dispatcher.
func Event(s Sample) dispatcher.Event {
	return dispatcher.Event{Kind: EventKind, Frame: s.Frame, Payload: s, Timestamp: s.Time}
}

// Handler adapts b to a dispatcher handler.
func Handler(b Backend) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		s, ok := e.Payload.(Sample)
		if !ok {
			return nil, fmt.Errorf("unexpected payload %T for %s", e.Payload, e.Kind)
		}
		return nil, b.Record(s)
	}
}
