package logging

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

func TestSetup_FileOnly_NoStdout(t *testing.T) {
	restore := captureStdout(t)

	var fileBuf bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{File: &fileBuf, Level: "info"}))
	m.Logger().Info("hello file")

	stdout := restore()

	assert.Contains(t, fileBuf.String(), "hello file")
	assert.Empty(t, stdout, "nothing should be written to stdout when file is provided")
}

func TestSetup_NoFile_WritesToStdout(t *testing.T) {
	restore := captureStdout(t)

	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{Level: "info"}))
	m.Logger().Info("hello console")

	stdout := restore()

	assert.Contains(t, stdout, "hello console")
}

func TestSetup_InfoLevel_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{File: &buf, Level: "info"}))

	m.Logger().Debug("should be filtered")
	m.Logger().Info("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be filtered")
	assert.Contains(t, output, "should appear")
}

func TestSetup_FrameContext(t *testing.T) {
	var buf bytes.Buffer
	var frame atomic.Uint64
	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{File: &buf, Level: "debug", Context: FrameContext(&frame)}))

	frame.Store(42)
	m.Logger().Info("tick")

	assert.Contains(t, buf.String(), "frame=42")
}

func TestSetup_Graylog(t *testing.T) {
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	var buf bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{File: &buf, Level: "info", GraylogAddress: conn.LocalAddr().String()}))
	defer m.Close()

	m.Logger().Info("hello graylog")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	packet := make([]byte, 8192)
	n, _, err := conn.ReadFrom(packet)
	require.NoError(t, err)

	zr, err := gzip.NewReader(bytes.NewReader(packet[:n]))
	require.NoError(t, err)
	msg, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Contains(t, string(msg), "hello graylog")
}

func TestSetup_GraylogBadAddress(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	err := m.Setup(Options{File: &buf, Level: "info", GraylogAddress: "not an address"})
	require.Error(t, err)

	// the file output is installed anyway
	m.Logger().Info("still logging")
	assert.Contains(t, buf.String(), "still logging")
}

func TestLogger_DefaultBeforeSetup(t *testing.T) {
	m := NewSlogManager()
	assert.Equal(t, slog.Default(), m.Logger())
}

func TestFlush_NilProvider(t *testing.T) {
	m := NewSlogManager()
	assert.NoError(t, m.Flush(context.Background()))
	assert.NoError(t, m.Close())
}

func TestSetup_WithOTelProvider(t *testing.T) {
	provider := sdklog.NewLoggerProvider()

	var buf bytes.Buffer
	m := NewSlogManager()
	require.NoError(t, m.Setup(Options{File: &buf, Level: "info", Provider: provider}))

	m.Logger().Info("otel integrated")
	assert.Contains(t, buf.String(), "otel integrated")
	assert.NoError(t, m.Flush(context.Background()))
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"ERROR", slog.LevelError},
		{"", slog.LevelInfo},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLevel(tt.input))
		})
	}
}

func TestMultiHandler_FansOut(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	multi := NewMultiHandler(
		slog.NewTextHandler(&buf1, nil),
		nil,
		slog.NewTextHandler(&buf2, nil),
	)
	require.Len(t, multi.handlers, 2)

	slog.New(multi).Info("fanned out")

	assert.Contains(t, buf1.String(), "fanned out")
	assert.Contains(t, buf2.String(), "fanned out")
}

func TestMultiHandler_Enabled(t *testing.T) {
	infoHandler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelInfo})
	debugHandler := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug})

	infoOnly := NewMultiHandler(infoHandler)
	assert.False(t, infoOnly.Enabled(context.Background(), slog.LevelDebug))
	assert.True(t, infoOnly.Enabled(context.Background(), slog.LevelInfo))

	both := NewMultiHandler(infoHandler, debugHandler)
	assert.True(t, both.Enabled(context.Background(), slog.LevelDebug))

	assert.False(t, NewMultiHandler().Enabled(context.Background(), slog.LevelError))
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	multi := NewMultiHandler(slog.NewTextHandler(&buf, nil))

	slog.New(multi.WithAttrs([]slog.Attr{slog.String("component", "engine")})).Info("attrs")
	slog.New(multi.WithGroup("grp")).Info("grouped", "key", "val")

	assert.Contains(t, buf.String(), "component=engine")
	assert.Contains(t, buf.String(), "grp.key=val")
	assert.Same(t, multi, multi.WithGroup(""))
}

type errorHandler struct {
	slog.Handler
}

func (h *errorHandler) Handle(context.Context, slog.Record) error {
	return errors.New("handler error")
}

func (h *errorHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func TestMultiHandler_HandleError(t *testing.T) {
	var buf bytes.Buffer
	spy := slog.NewTextHandler(&buf, nil)

	multi := NewMultiHandler(&errorHandler{}, spy)
	r := slog.NewRecord(time.Now(), slog.LevelInfo, "should reach spy", 0)
	err := multi.Handle(context.Background(), r)

	assert.EqualError(t, err, "handler error")
	assert.Contains(t, buf.String(), "should reach spy")
}

func TestContextHandler_WithAttrsKeepsProvider(t *testing.T) {
	var buf bytes.Buffer
	var frame atomic.Uint64
	frame.Store(7)

	h := NewContextHandler(slog.NewTextHandler(&buf, nil), FrameContext(&frame))
	slog.New(h.WithAttrs([]slog.Attr{slog.String("role", "tube")})).WithGroup("").Info("moved")

	assert.Contains(t, buf.String(), "role=tube")
	assert.Contains(t, buf.String(), "frame=7")
}

// captureStdout redirects osStdout to a pipe and returns a function that
// restores it and returns what was captured.
func captureStdout(t *testing.T) func() string {
	t.Helper()

	r, w, err := osPipe()
	require.NoError(t, err)

	orig := osStdout
	osStdout = w

	return func() string {
		w.Close()
		osStdout = orig
		var buf bytes.Buffer
		buf.ReadFrom(r)
		r.Close()
		return buf.String()
	}
}
