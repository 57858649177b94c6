// Package headless is a render surface without a display. Input comes from a
// script and drawn views are kept for inspection.
package headless

import (
	"sync"

	"github.com/surgisim/fusion/internal/input"
	"github.com/surgisim/fusion/internal/queue"
	"github.com/surgisim/fusion/internal/scene"
)

// Context replays queued key states, one per frame. When the script runs
// out, frames see no keys held.
type Context struct {
	script *queue.Queue[input.State]
	limit  uint64
	keep   int

	mu     sync.Mutex
	frames uint64
	views  []scene.View
	closed bool
}

// Option configures a Context.
type Option func(*Context)

// WithFrameLimit closes the context after n drawn frames. Zero runs until Stop.
func WithFrameLimit(n uint64) Option {
	return func(c *Context) { c.limit = n }
}

// WithHistory keeps the last n drawn views. Zero keeps none.
func WithHistory(n int) Option {
	return func(c *Context) { c.keep = n }
}

// New creates a headless context.
func New(opts ...Option) *Context {
	c := &Context{script: queue.New[input.State]()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Press queues one frame per state.
func (c *Context) Press(states ...input.State) {
	c.script.Push(states...)
}

// Hold queues n frames of the same keys.
func (c *Context) Hold(keys input.State, n int) {
	for range n {
		c.script.Push(keys)
	}
}

// Pending returns the number of scripted frames not yet polled.
func (c *Context) Pending() int {
	return c.script.Len()
}

// PollInput pops the next scripted key state.
func (c *Context) PollInput() input.State {
	s, _ := c.script.Pop()
	return s
}

// Draw counts the frame and stores the view when history is enabled.
func (c *Context) Draw(v scene.View) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.frames++
	if c.keep > 0 {
		c.views = append(c.views, v)
		if len(c.views) > c.keep {
			c.views = c.views[len(c.views)-c.keep:]
		}
	}
	return nil
}

// ShouldClose reports whether Stop was called or the frame limit was reached.
func (c *Context) ShouldClose() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || (c.limit > 0 && c.frames >= c.limit)
}

// Stop makes the next ShouldClose return true.
func (c *Context) Stop() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

// Frames returns the number of frames drawn.
func (c *Context) Frames() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frames
}

// Views returns a copy of the retained views, oldest first.
func (c *Context) Views() []scene.View {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]scene.View, len(c.views))
	copy(out, c.views)
	return out
}
