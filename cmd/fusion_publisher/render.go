package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/surgisim/fusion/internal/config"
	"github.com/surgisim/fusion/internal/control"
	"github.com/surgisim/fusion/internal/engine"
	"github.com/surgisim/fusion/internal/input"
	"github.com/surgisim/fusion/internal/render/headless"
	"github.com/surgisim/fusion/internal/render/terminal"
	"github.com/surgisim/fusion/internal/render/window"
	"github.com/surgisim/fusion/internal/scene"
)

// engineHandle carries what is known before the transport is up and the
// engine once it exists.
type engineHandle struct {
	setup     scene.Setup
	telemetry config.TelemetryConfig
	keymap    input.Keymap
	control   *control.Controller
	frames    atomic.Uint64

	engine *engine.Engine
}

// runRender opens the configured render backend and runs the frame loop on
// the calling goroutine. A backend that cannot start ends the process before
// the first frame.
func runRender(ctx context.Context, h *engineHandle) error {
	rcfg := config.GetRenderConfig()
	eng := h.engine

	switch rcfg.Backend {
	case "headless":
		hc := headless.New(headless.WithFrameLimit(uint64(max(rcfg.Frames, 0))))
		Logger.Info("Running headless", "frames", rcfg.Frames)
		return ignoreCanceled(eng.Run(ctx, hc))

	case "window":
		w, err := window.New(window.Config{
			Title:  fmt.Sprintf("%s %s", AppName, CurrentVersion),
			Width:  rcfg.Width,
			Height: rcfg.Height,
			FPS:    rcfg.FPS,
		}, h.keymap, Logger.With("component", "window"))
		if err != nil {
			return err
		}
		return w.Run(ctx, func(ctx context.Context, rc *window.Window, dt float64) {
			eng.Frame(ctx, rc, dt)
		})

	case "terminal":
		t := terminal.New(terminal.Config{FPS: rcfg.FPS, AltScreen: true}, h.keymap, Logger.With("component", "terminal"))
		return t.Run(ctx, func(ctx context.Context, rc *terminal.Terminal, dt float64) {
			res := eng.Frame(ctx, rc, dt)
			status := fmt.Sprintf("selection %s   sent %d/%d bytes", eng.Controller().Selection(), res.Sent, res.Encoded)
			if res.Err != nil {
				status += "   " + res.Err.Error()
			}
			rc.SetStatus(status)
		})

	default:
		return fmt.Errorf("unknown render backend %q", rcfg.Backend)
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
