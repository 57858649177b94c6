// Package terminal runs the scene in a text UI. Terminals only report key
// presses, so each press counts as held for a single frame.
package terminal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/surgisim/fusion/internal/input"
	"github.com/surgisim/fusion/internal/scene"
)

// FrameFunc runs one engine iteration against the terminal.
type FrameFunc func(ctx context.Context, rc *Terminal, dt float64)

// Config controls the terminal UI.
type Config struct {
	FPS       int
	AltScreen bool
}

// Terminal is the engine's render context inside a bubbletea program.
type Terminal struct {
	cfg    Config
	keymap input.Keymap
	logger *slog.Logger

	pressed map[string]bool
	view    scene.View
	status  string
	closed  bool
}

// New creates a terminal context using keymap with backend key names.
func New(cfg Config, keymap input.Keymap, logger *slog.Logger) *Terminal {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 30
	}
	return &Terminal{cfg: cfg, keymap: keymap, logger: logger, pressed: make(map[string]bool)}
}

// KeyName converts a bubbletea key string to the backend name used in keymaps:
// "k" -> "K", "2" -> "Digit2", "up" -> "ArrowUp", "pgdown" -> "PageDown".
func KeyName(s string) string {
	switch s {
	case "up":
		return "ArrowUp"
	case "down":
		return "ArrowDown"
	case "left":
		return "ArrowLeft"
	case "right":
		return "ArrowRight"
	case "pgup":
		return "PageUp"
	case "pgdown":
		return "PageDown"
	case " ":
		return "Space"
	}
	if len(s) == 1 {
		c := s[0]
		switch {
		case c >= '0' && c <= '9':
			return "Digit" + s
		case c >= 'a' && c <= 'z':
			return strings.ToUpper(s)
		}
	}
	return s
}

// Press marks a backend key as down until the next poll.
func (t *Terminal) Press(name string) {
	t.pressed[name] = true
}

// PollInput returns the keys pressed since the last frame and clears them.
func (t *Terminal) PollInput() input.State {
	s := t.keymap.Resolve(func(name string) bool { return t.pressed[name] })
	clear(t.pressed)
	return s
}

// Draw keeps the view for the next render.
func (t *Terminal) Draw(v scene.View) error {
	t.view = v
	return nil
}

// SetStatus replaces the status line under the pose table.
func (t *Terminal) SetStatus(s string) {
	t.status = s
}

// ShouldClose reports whether the user quit.
func (t *Terminal) ShouldClose() bool {
	return t.closed
}

// Run starts the bubbletea program and blocks until the user quits or ctx is done.
func (t *Terminal) Run(ctx context.Context, frame FrameFunc, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	if t.cfg.AltScreen {
		opts = append(opts, tea.WithAltScreen())
	}

	t.logger.Info("Starting terminal UI", "fps", t.cfg.FPS)
	_, err := tea.NewProgram(newModel(ctx, t, frame), opts...).Run()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal: %w", err)
	}
	return nil
}

type tickMsg time.Time

type model struct {
	ctx      context.Context
	t        *Terminal
	frame    FrameFunc
	interval time.Duration
	last     time.Time
}

func newModel(ctx context.Context, t *Terminal, frame FrameFunc) *model {
	return &model{
		ctx:      ctx,
		t:        t,
		frame:    frame,
		interval: time.Second / time.Duration(t.cfg.FPS),
		last:     time.Now(),
	}
}

func (m *model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(at time.Time) tea.Msg { return tickMsg(at) })
}

func (m *model) Init() tea.Cmd {
	return m.tick()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.t.closed = true
			return m, tea.Quit
		}
		m.t.Press(KeyName(msg.String()))
		return m, nil

	case tickMsg:
		if m.t.closed || m.ctx.Err() != nil {
			return m, tea.Quit
		}
		now := time.Time(msg)
		dt := now.Sub(m.last).Seconds()
		m.last = now
		m.frame(m.ctx, m.t, dt)
		return m, m.tick()
	}
	return m, nil
}

func (m *model) View() string {
	return Render(m.t.view, m.t.status)
}
