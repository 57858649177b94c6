package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgisim/fusion/internal/publisher"
	"github.com/surgisim/fusion/internal/transport"
)

type fakePublisher struct{ stats publisher.Stats }

func (f fakePublisher) Stats() publisher.Stats { return f.stats }

type fakeTransport struct{ stats transport.Stats }

func (f fakeTransport) Stats() transport.Stats { return f.stats }

type fakeDrops uint64

func (f fakeDrops) Dropped() uint64 { return uint64(f) }

type fakeEvents struct{ dropped, failed uint64 }

func (f fakeEvents) Dropped() uint64 { return f.dropped }
func (f fakeEvents) Failed() uint64  { return f.failed }

func TestGetProgramStatus(t *testing.T) {
	var frame atomic.Uint64
	frame.Store(120)

	s := NewService(Dependencies{
		Frame:      frame.Load,
		Publisher:  fakePublisher{publisher.Stats{Published: 118, Partial: 2, Bytes: 4096}},
		Transport:  fakeTransport{transport.Stats{Sent: 118, Dropped: 2}},
		Dispatcher: fakeEvents{dropped: 3, failed: 5},
		Recorder:   fakeDrops(4),
	})

	lines, status := s.GetProgramStatus()
	require.Len(t, lines, 1)

	assert.Equal(t, uint64(120), status.Frame)
	assert.Equal(t, uint64(118), status.Published)
	assert.Equal(t, uint64(2), status.Partial)
	assert.Equal(t, uint64(4096), status.Bytes)
	assert.Equal(t, uint64(2), status.TransportDropped)
	assert.Equal(t, uint64(3), status.DispatcherDropped)
	assert.Equal(t, uint64(5), status.DispatcherFailed)
	assert.Equal(t, uint64(4), status.RecorderDropped)
	assert.Zero(t, status.FramesPerSecond, "no rate on first sample")

	var decoded Status
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &decoded))
	assert.Equal(t, status.Published, decoded.Published)

	time.Sleep(10 * time.Millisecond)
	frame.Store(130)
	_, status = s.GetProgramStatus()
	assert.Greater(t, status.FramesPerSecond, 0.0)
}

func TestGetProgramStatus_NoSources(t *testing.T) {
	s := NewService(Dependencies{})
	_, status := s.GetProgramStatus()
	assert.Zero(t, status.Frame)
	assert.Zero(t, status.Published)
}

func TestStartStop_WritesStatusFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.txt")
	s := NewService(Dependencies{
		StatusFile: path,
		Interval:   10 * time.Millisecond,
		Publisher:  fakePublisher{publisher.Stats{Published: 5}},
	})

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Start(), "second start is a no-op")

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(path)
		if err != nil || len(data) == 0 {
			return false
		}
		var st Status
		return json.Unmarshal(data, &st) == nil && st.Published == 5
	}, 2*time.Second, 10*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}

func TestStart_BadPath(t *testing.T) {
	s := NewService(Dependencies{StatusFile: filepath.Join(t.TempDir(), "missing", "status.txt")})
	assert.Error(t, s.Start())
	assert.False(t, s.IsRunning())
}
