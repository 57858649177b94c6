// Package engine runs the per-frame loop: input, controller, alignment,
// draw, publish and record, in that order and on one goroutine.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync/atomic"
	"time"

	"github.com/surgisim/fusion/internal/align"
	"github.com/surgisim/fusion/internal/control"
	"github.com/surgisim/fusion/internal/dispatcher"
	"github.com/surgisim/fusion/internal/input"
	"github.com/surgisim/fusion/internal/publisher"
	"github.com/surgisim/fusion/internal/recorder"
	"github.com/surgisim/fusion/internal/scene"
	"github.com/surgisim/fusion/internal/telemetry"
)

// RenderContext is the window, terminal or scripted surface the loop runs on.
type RenderContext interface {
	// PollInput returns the keys held for this frame.
	PollInput() input.State
	// Draw presents the scene. Errors are logged and the frame continues.
	Draw(view scene.View) error
	// ShouldClose reports that the user asked to stop.
	ShouldClose() bool
}

// FramePublisher is implemented by *publisher.Publisher.
type FramePublisher interface {
	PublishFrame(ctx context.Context, seq uint64, f *telemetry.Frame) publisher.SendResult
}

// EventSink is implemented by *dispatcher.Dispatcher.
type EventSink interface {
	Dispatch(e dispatcher.Event) (any, error)
	HasHandler(kind string) bool
}

// Dependencies wires the engine. Recorder may be nil.
type Dependencies struct {
	Scene      *scene.State
	Controller *control.Controller
	Publisher  FramePublisher
	Recorder   EventSink
	Telemetry  telemetry.BuildOptions
	Logger     *slog.Logger
	// FrameInterval paces Run. Zero runs unpaced.
	FrameInterval time.Duration
	// FixedStep replaces the measured frame time in Run when set.
	FixedStep time.Duration
	// Clock defaults to time.Now.
	Clock func() time.Time
	// Counter receives the frame number. The engine allocates one when nil.
	Counter *atomic.Uint64
}

// Engine owns the scene for the lifetime of the loop.
type Engine struct {
	deps   Dependencies
	logger *slog.Logger
	frames *atomic.Uint64

	last publisher.SendResult
	data telemetry.Frame
}

// New creates an engine. Scene, Controller and Publisher are required.
func New(deps Dependencies) (*Engine, error) {
	if deps.Scene == nil || deps.Controller == nil || deps.Publisher == nil {
		return nil, errors.New("engine: scene, controller and publisher are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Counter == nil {
		deps.Counter = new(atomic.Uint64)
	}
	return &Engine{deps: deps, logger: deps.Logger, frames: deps.Counter}, nil
}

// Scene returns the owned scene. Callers must stay on the frame goroutine.
func (e *Engine) Scene() *scene.State {
	return e.deps.Scene
}

// Controller returns the instrument controller.
func (e *Engine) Controller() *control.Controller {
	return e.deps.Controller
}

// Counter exposes the frame counter for log context and status reporting.
func (e *Engine) Counter() *atomic.Uint64 {
	return e.frames
}

// Last returns the most recent telemetry frame and its send result.
func (e *Engine) Last() (telemetry.Frame, publisher.SendResult) {
	return e.data, e.last
}

// Frame runs one iteration against rc. dt is the frame time in seconds.
func (e *Engine) Frame(ctx context.Context, rc RenderContext, dt float64) publisher.SendResult {
	s := e.deps.Scene
	ctrl := e.deps.Controller

	keys := rc.PollInput()
	ctrl.Update(s, keys, dt)

	selected := ctrl.Selection().Roles()
	e.alignUnselected(selected)

	seq := e.frames.Add(1)
	s.Frame = seq

	if err := rc.Draw(s.Snapshot(selected...)); err != nil {
		e.logger.Error("Draw failed", "frame", seq, "error", err)
	}

	e.data = telemetry.Build(s, ctrl.Animation(), e.deps.Telemetry)
	e.last = e.deps.Publisher.PublishFrame(ctx, seq, &e.data)

	e.record(seq)
	return e.last
}

// alignUnselected orients every instrument not under manual control
// toward the pivot.
func (e *Engine) alignUnselected(selected []scene.Role) {
	s := e.deps.Scene
	for _, inst := range s.Instruments.All() {
		if slices.Contains(selected, inst.Role()) {
			continue
		}
		m, err := s.Models.Get(inst.Model())
		if err != nil {
			continue
		}
		align.AlignPose(&m.Pose, s.Pivot, s.Target)
	}
}

func (e *Engine) record(seq uint64) {
	r := e.deps.Recorder
	if r == nil || !r.HasHandler(recorder.EventKind) {
		return
	}
	sample := recorder.Sample{Frame: seq, Time: e.deps.Clock(), Data: e.data}
	if _, err := r.Dispatch(recorder.Event(sample)); err != nil {
		e.logger.Debug("Frame not recorded", "frame", seq, "error", err)
	}
}

// Run calls Frame until rc asks to close or ctx is done.
func (e *Engine) Run(ctx context.Context, rc RenderContext) error {
	var ticker *time.Ticker
	if e.deps.FrameInterval > 0 {
		ticker = time.NewTicker(e.deps.FrameInterval)
		defer ticker.Stop()
	}

	last := e.deps.Clock()
	for !rc.ShouldClose() {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := e.deps.Clock()
		dt := now.Sub(last).Seconds()
		last = now
		if e.deps.FixedStep > 0 {
			dt = e.deps.FixedStep.Seconds()
		}

		e.Frame(ctx, rc, dt)

		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		}
	}
	e.logger.Info("Render loop finished", "frames", e.frames.Load())
	return nil
}
