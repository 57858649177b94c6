package logging

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestLogFilePath(t *testing.T) {
	sessionStart := time.Date(2026, 2, 12, 21, 38, 36, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{
			name:    "basic path",
			logsDir: "logs",
			want:    filepath.Join("logs", "fusion_publisher.20260212_213836.log"),
		},
		{
			name:    "relative path with dot",
			logsDir: "./logs",
			want:    filepath.Join(".", "logs", "fusion_publisher.20260212_213836.log"),
		},
		{
			name:    "absolute path",
			logsDir: filepath.Join("/var", "log", "fusion"),
			want:    filepath.Join("/var", "log", "fusion", "fusion_publisher.20260212_213836.log"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := LogFilePath(tt.logsDir, "fusion_publisher", sessionStart)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewStorageLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewStorageLogger(&buf, "warn", "database")

	l.Info().Msg("hidden")
	l.Warn().Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "component=database")
	assert.NotContains(t, out, "\x1b[", "file output has no colors")
}

func TestParseZerologLevel(t *testing.T) {
	assert.Equal(t, zerolog.TraceLevel, parseZerologLevel("trace"))
	assert.Equal(t, zerolog.DebugLevel, parseZerologLevel("DEBUG"))
	assert.Equal(t, zerolog.ErrorLevel, parseZerologLevel("error"))
	assert.Equal(t, zerolog.InfoLevel, parseZerologLevel("bogus"))
}

func TestSampled(t *testing.T) {
	var buf bytes.Buffer
	l := Sampled(NewStorageLogger(&buf, "info", "influx"))

	for i := 0; i < 20; i++ {
		l.Info().Int("i", i).Msg("spam")
	}
	// burst of 5, then the basic sampler lets the first of every 100 through
	assert.Equal(t, 6, bytes.Count(buf.Bytes(), []byte("spam")))
}
