// Package publisher encodes telemetry frames and hands them to the transport
// once per rendered frame.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/surgisim/fusion/internal/telemetry"
	"github.com/surgisim/fusion/internal/transport"
)

const instrumentationName = "github.com/surgisim/fusion/internal/publisher"

// ErrPartialSend matches every PartialSendError.
var ErrPartialSend = errors.New("partial telemetry send")

// PartialSendError reports a frame the transport did not take in full.
type PartialSendError struct {
	Frame    uint64
	Expected int
	Sent     int
	Err      error // transport error, if any
}

func (e *PartialSendError) Error() string {
	msg := fmt.Sprintf("frame %d: sent %d of %d bytes", e.Frame, e.Sent, e.Expected)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PartialSendError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrPartialSend}
	}
	return []error{ErrPartialSend, e.Err}
}

// SendResult is the outcome of one PublishFrame call.
type SendResult struct {
	Frame   uint64
	Encoded int
	Sent    int
	Err     error
}

func (r SendResult) OK() bool { return r.Err == nil }

// Stats are running totals since the publisher was created.
type Stats struct {
	Published uint64
	Partial   uint64
	Bytes     uint64
}

// Publisher owns the outbound transport.
type Publisher struct {
	tr     transport.Publisher
	logger *slog.Logger

	published metric.Int64Counter
	partial   metric.Int64Counter
	bytes     metric.Int64Counter

	nPublished atomic.Uint64
	nPartial   atomic.Uint64
	nBytes     atomic.Uint64
}

// New creates a publisher writing to tr.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(tr transport.Publisher, logger *slog.Logger) (*Publisher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Publisher{tr: tr, logger: logger}

	m := otel.Meter(instrumentationName)
	var err error

	p.published, err = m.Int64Counter(
		"telemetry.frames.published",
		metric.WithDescription("Frames fully handed to the transport"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating published counter: %w", err)
	}

	p.partial, err = m.Int64Counter(
		"telemetry.frames.partial",
		metric.WithDescription("Frames the transport did not take in full"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating partial counter: %w", err)
	}

	p.bytes, err = m.Int64Counter(
		"telemetry.bytes.sent",
		metric.WithDescription("Bytes handed to the transport"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating bytes counter: %w", err)
	}

	return p, nil
}

// PublishFrame encodes f and sends it without blocking. A short or failed
// send is logged and returned in the result; it never stops the caller.
func (p *Publisher) PublishFrame(ctx context.Context, seq uint64, f *telemetry.Frame) SendResult {
	data := f.Marshal()
	res := SendResult{Frame: seq, Encoded: len(data)}

	n, err := p.tr.Send(data)
	res.Sent = n
	if n > 0 {
		p.nBytes.Add(uint64(n))
		p.bytes.Add(ctx, int64(n))
	}

	if n != len(data) || err != nil {
		res.Err = &PartialSendError{Frame: seq, Expected: len(data), Sent: n, Err: err}
		p.nPartial.Add(1)
		p.partial.Add(ctx, 1)
		p.logger.WarnContext(ctx, "Telemetry frame not fully sent", "error", res.Err)
		return res
	}

	p.nPublished.Add(1)
	p.published.Add(ctx, 1)
	return res
}

func (p *Publisher) Stats() Stats {
	return Stats{
		Published: p.nPublished.Load(),
		Partial:   p.nPartial.Load(),
		Bytes:     p.nBytes.Load(),
	}
}

// Close closes the transport.
func (p *Publisher) Close() error {
	return p.tr.Close()
}
