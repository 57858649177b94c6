// Package memory records telemetry in memory and exports the session as JSON.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/surgisim/fusion/internal/recorder"
	"github.com/surgisim/fusion/internal/trajectory"
)

// Config holds memory recorder configuration.
type Config struct {
	OutputDir      string
	CompressOutput bool
	SessionName    string
	// MaxFrames caps the frames kept in memory. Zero keeps everything.
	MaxFrames int
}

// Backend stores frames in memory and exports them on Close.
type Backend struct {
	cfg   Config
	start time.Time

	samples []recorder.Sample
	paths   *trajectory.Set
	dropped uint64

	lastExportPath string
	mu             sync.RWMutex
}

var _ recorder.Backend = (*Backend)(nil)
var _ recorder.Exporter = (*Backend)(nil)

// New creates a new memory backend
func New(cfg Config) *Backend {
	if cfg.SessionName == "" {
		cfg.SessionName = "fusion"
	}
	return &Backend{
		cfg:   cfg,
		paths: trajectory.NewSet(),
	}
}

// Init starts a new session and clears anything recorded before.
func (b *Backend) Init(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.start = time.Now()
	b.samples = nil
	b.paths = trajectory.NewSet()
	b.dropped = 0
	return nil
}

// Record appends s to the session.
func (b *Backend) Record(s recorder.Sample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cfg.MaxFrames > 0 && len(b.samples) >= b.cfg.MaxFrames {
		b.dropped++
		return nil
	}
	b.samples = append(b.samples, s)
	b.paths.Track(s.Frame, &s.Data)
	return nil
}

// Close exports the session when an output directory is configured.
func (b *Backend) Close() error {
	if b.cfg.OutputDir == "" {
		return nil
	}
	_, err := b.Export()
	return err
}

// Samples returns a copy of the recorded frames.
func (b *Backend) Samples() []recorder.Sample {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]recorder.Sample(nil), b.samples...)
}

// Dropped returns frames refused because MaxFrames was reached.
func (b *Backend) Dropped() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped
}

// GetExportedFilePath returns the path of the last export.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
