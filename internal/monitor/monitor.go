package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/surgisim/fusion/internal/publisher"
	"github.com/surgisim/fusion/internal/transport"
)

// PublisherStats is implemented by *publisher.Publisher.
type PublisherStats interface {
	Stats() publisher.Stats
}

// TransportStats is implemented by transports that count their own traffic.
type TransportStats interface {
	Stats() transport.Stats
}

// DropCounter is implemented by the dispatcher and the recorder backends.
type DropCounter interface {
	Dropped() uint64
}

// EventCounter is implemented by the dispatcher.
type EventCounter interface {
	DropCounter
	Failed() uint64
}

// Dependencies holds all dependencies for the monitor service. Nil sources
// are reported as zero.
type Dependencies struct {
	Logger     *slog.Logger
	StatusFile string
	Interval   time.Duration
	Frame      func() uint64
	Publisher  PublisherStats
	Transport  TransportStats
	Dispatcher EventCounter
	Recorder   DropCounter
}

// Status is one snapshot written to the status file.
type Status struct {
	Time              time.Time `json:"time"`
	Frame             uint64    `json:"frame"`
	FramesPerSecond   float64   `json:"framesPerSecond"`
	Published         uint64    `json:"published"`
	Partial           uint64    `json:"partial"`
	Bytes             uint64    `json:"bytes"`
	TransportSent     uint64    `json:"transportSent"`
	TransportDropped  uint64    `json:"transportDropped"`
	DispatcherDropped uint64    `json:"dispatcherDropped"`
	DispatcherFailed  uint64    `json:"dispatcherFailed"`
	RecorderDropped   uint64    `json:"recorderDropped"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}

	lastFrame uint64
	lastTime  time.Time
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetProgramStatus returns the current status and its indented JSON lines.
func (s *Service) GetProgramStatus() (output []string, status Status) {
	now := time.Now()
	status.Time = now.UTC()

	if s.deps.Frame != nil {
		status.Frame = s.deps.Frame()
	}
	if s.deps.Publisher != nil {
		ps := s.deps.Publisher.Stats()
		status.Published, status.Partial, status.Bytes = ps.Published, ps.Partial, ps.Bytes
	}
	if s.deps.Transport != nil {
		ts := s.deps.Transport.Stats()
		status.TransportSent, status.TransportDropped = ts.Sent, ts.Dropped
	}
	if s.deps.Dispatcher != nil {
		status.DispatcherDropped = s.deps.Dispatcher.Dropped()
		status.DispatcherFailed = s.deps.Dispatcher.Failed()
	}
	if s.deps.Recorder != nil {
		status.RecorderDropped = s.deps.Recorder.Dropped()
	}

	s.mu.Lock()
	if !s.lastTime.IsZero() && status.Frame >= s.lastFrame {
		if elapsed := now.Sub(s.lastTime).Seconds(); elapsed > 0 {
			status.FramesPerSecond = float64(status.Frame-s.lastFrame) / elapsed
		}
	}
	s.lastFrame, s.lastTime = status.Frame, now
	s.mu.Unlock()

	statusStr, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		statusStr = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	output = append(output, string(statusStr))
	return output, status
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	s.mu.Unlock()

	statusFile, err := os.Create(s.deps.StatusFile)
	if err != nil {
		s.mu.Lock()
		s.isRunning = false
		close(s.done)
		s.mu.Unlock()
		return fmt.Errorf("error creating status file: %w", err)
	}

	go func() {
		defer func() {
			statusFile.Close()
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(s.done)
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor", "file", s.deps.StatusFile, "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				statusStr, _ := s.GetProgramStatus()
				if err := writeStatus(statusFile, statusStr); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()

	return nil
}

func writeStatus(f *os.File, lines []string) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
