package dispatcher

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func (l *testLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.messages...)
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got Event
	d.Register("frame", func(e Event) (any, error) {
		got = e
		return "result", nil
	})

	result, err := d.Dispatch(Event{Kind: "frame", Frame: 3, Payload: 42})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if result != "result" {
		t.Errorf("expected 'result', got %v", result)
	}
	if got.Frame != 3 || got.Payload != 42 {
		t.Errorf("handler saw %+v", got)
	}
}

func TestDispatcher_UnknownKind(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Kind: "unknown"})

	if err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register("frame", func(e Event) (any, error) {
		processed.Add(1)
		return nil, nil
	}, Buffered(100))

	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(Event{Kind: "frame", Frame: uint64(i)})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if result != "queued" {
			t.Errorf("expected 'queued', got %v", result)
		}
	}

	d.Close()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	started := make(chan struct{})
	block := make(chan struct{})
	var once sync.Once
	d.Register("frame", func(e Event) (any, error) {
		once.Do(func() { close(started) })
		<-block
		return nil, nil
	}, Buffered(2))

	d.Dispatch(Event{Kind: "frame"}) // being processed
	<-started
	d.Dispatch(Event{Kind: "frame"}) // queued
	d.Dispatch(Event{Kind: "frame"}) // queued

	_, err := d.Dispatch(Event{Kind: "frame"})

	if err == nil {
		t.Error("expected error when queue is full")
	}
	if d.Dropped() != 1 {
		t.Errorf("expected 1 dropped, got %d", d.Dropped())
	}

	close(block)
	d.Close()
}

func TestDispatcher_CloseDrainsAndRejects(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register("frame", func(e Event) (any, error) {
		time.Sleep(time.Millisecond)
		processed.Add(1)
		return nil, nil
	}, Buffered(10))

	for i := 0; i < 5; i++ {
		d.Dispatch(Event{Kind: "frame"})
	}
	d.Close()
	d.Close()

	if processed.Load() != 5 {
		t.Errorf("expected queued events drained, got %d", processed.Load())
	}
	if _, err := d.Dispatch(Event{Kind: "frame"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("frame", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Kind: "frame", Frame: 1})

	if len(logger.all()) < 2 {
		t.Errorf("expected at least 2 log messages, got %d", len(logger.all()))
	}
}

func TestDispatcher_LoggedBufferedError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("frame", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Buffered(4), Logged())

	d.Dispatch(Event{Kind: "frame"})
	d.Close()

	hasError := false
	for _, msg := range logger.all() {
		if strings.HasPrefix(msg, "ERROR") {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message from async handler")
	}
	if d.Failed() != 1 {
		t.Errorf("expected 1 failed, got %d", d.Failed())
	}
}

func TestDispatcher_BufferedCountsHandlerErrors(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register("frame", func(e Event) (any, error) {
		if e.Frame%2 == 0 {
			return nil, errors.New("write queue full")
		}
		return nil, nil
	}, Buffered(8))

	for i := uint64(1); i <= 5; i++ {
		d.Dispatch(Event{Kind: "frame", Frame: i})
	}
	d.Close()

	if d.Failed() != 2 {
		t.Errorf("expected 2 failed, got %d", d.Failed())
	}
	if len(logger.all()) != 0 {
		t.Errorf("expected no log output without Logged, got %v", logger.all())
	}
}

func TestNew_NilLoggerUsesDefault(t *testing.T) {
	d, err := New(nil)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	defer d.Close()

	d.Register("frame", func(e Event) (any, error) {
		return nil, errors.New("boom")
	}, Logged())

	if _, err := d.Dispatch(Event{Kind: "frame"}); err == nil {
		t.Error("expected handler error")
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register("frame", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler("frame") {
		t.Error("expected handler to exist")
	}

	if d.HasHandler("missing") {
		t.Error("expected handler to not exist")
	}
}
