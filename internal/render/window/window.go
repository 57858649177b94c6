// Package window draws the scene in a desktop window with ebiten and reads
// the keyboard from it.
package window

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/surgisim/fusion/internal/input"
	"github.com/surgisim/fusion/internal/scene"
)

var (
	background    = color.RGBA{0x10, 0x12, 0x16, 0xff}
	wireColor     = color.RGBA{0x9a, 0xa5, 0xb1, 0xff}
	selectedColor = color.RGBA{0xff, 0xb3, 0x47, 0xff}
	pivotColor    = color.RGBA{0x4c, 0xc9, 0xf0, 0xff}
	targetColor   = color.RGBA{0xf0, 0x4c, 0x6f, 0xff}
)

// Config controls the window.
type Config struct {
	Title  string
	Width  int
	Height int
	FPS    int
}

// FrameFunc runs one engine iteration against the window.
type FrameFunc func(ctx context.Context, rc *Window, dt float64)

// Window is the engine's render context. The ebiten game loop drives it.
type Window struct {
	cfg    Config
	keys   map[string]ebiten.Key
	keymap input.Keymap
	logger *slog.Logger

	ctx   context.Context
	frame FrameFunc
	last  time.Time

	view   scene.View
	closed atomic.Bool
}

// New resolves the keymap's backend names against ebiten key names.
func New(cfg Config, keymap input.Keymap, logger *slog.Logger) (*Window, error) {
	if logger == nil {
		logger = slog.Default()
	}
	keys, err := ResolveKeys(keymap)
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 1280, 720
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	if cfg.Title == "" {
		cfg.Title = "fusion"
	}
	return &Window{cfg: cfg, keys: keys, keymap: keymap, logger: logger}, nil
}

// ResolveKeys maps every backend key name in keymap to an ebiten key.
func ResolveKeys(keymap input.Keymap) (map[string]ebiten.Key, error) {
	keys := make(map[string]ebiten.Key)
	for _, name := range keymap.BackendKeys() {
		var k ebiten.Key
		if err := k.UnmarshalText([]byte(name)); err != nil {
			return nil, fmt.Errorf("window: unknown key %q: %w", name, err)
		}
		keys[name] = k
	}
	return keys, nil
}

// Run opens the window and calls frame once per tick until the window is
// closed or ctx is done. It blocks on the calling goroutine.
func (w *Window) Run(ctx context.Context, frame FrameFunc) error {
	w.ctx = ctx
	w.frame = frame
	w.last = time.Now()

	ebiten.SetWindowTitle(w.cfg.Title)
	ebiten.SetWindowSize(w.cfg.Width, w.cfg.Height)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(w.cfg.FPS)
	ebiten.SetWindowClosingHandled(true)

	w.logger.Info("Opening window", "width", w.cfg.Width, "height", w.cfg.Height, "fps", w.cfg.FPS)

	if err := ebiten.RunGame(&game{w: w}); err != nil {
		return fmt.Errorf("window: %w", err)
	}
	return nil
}

// game adapts Window to ebiten.Game.
type game struct {
	w *Window
}

func (g *game) Update() error {
	w := g.w
	if w.ShouldClose() || w.ctx.Err() != nil {
		return ebiten.Termination
	}
	now := time.Now()
	dt := now.Sub(w.last).Seconds()
	w.last = now
	w.frame(w.ctx, w, dt)
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	w := g.w
	screen.Fill(background)

	bounds := screen.Bounds()
	f := Project(w.view, bounds.Dx(), bounds.Dy())
	for _, s := range f.Segments {
		clr := wireColor
		if s.Selected {
			clr = selectedColor
		}
		vector.StrokeLine(screen, s.X0, s.Y0, s.X1, s.Y1, 1, clr, true)
	}
	for _, m := range f.Markers {
		clr := pivotColor
		if m.Label == "target" {
			clr = targetColor
		}
		vector.DrawFilledCircle(screen, m.X, m.Y, 4, clr, true)
	}

	ebitenutil.DebugPrint(screen, fmt.Sprintf("frame %d  fps %.0f", w.view.Frame, ebiten.ActualFPS()))
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return outsideWidth, outsideHeight
}

// PollInput reads the held keys through the keymap.
func (w *Window) PollInput() input.State {
	return w.keymap.Resolve(func(name string) bool {
		k, ok := w.keys[name]
		return ok && ebiten.IsKeyPressed(k)
	})
}

// Draw keeps the view for the next ebiten draw call.
func (w *Window) Draw(v scene.View) error {
	w.view = v
	return nil
}

// ShouldClose reports whether the user closed the window.
func (w *Window) ShouldClose() bool {
	return w.closed.Load() || ebiten.IsWindowBeingClosed()
}

// Close asks the window to shut down at the next tick.
func (w *Window) Close() {
	w.closed.Store(true)
}
