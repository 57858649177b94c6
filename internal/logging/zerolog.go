package logging

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// parseZerologLevel mirrors parseLevel for the storage loggers.
func parseZerologLevel(level string) zerolog.Level {
	switch strings.ToUpper(level) {
	case "TRACE":
		return zerolog.TraceLevel
	case "DEBUG":
		return zerolog.DebugLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewStorageLogger returns the console logger used by the database and
// InfluxDB managers. Output is plain console text without colors when
// file is set, colored stdout otherwise.
func NewStorageLogger(file io.Writer, level, component string) zerolog.Logger {
	var out io.Writer = zerolog.ConsoleWriter{
		Out:        osStdout,
		TimeFormat: time.RFC3339,
	}
	if file != nil {
		out = zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		}
	}

	return zerolog.New(out).
		Level(parseZerologLevel(level)).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}

// Sampled limits a noisy logger to a burst of 5 entries per 10 seconds,
// then 1 in 100.
func Sampled(l zerolog.Logger) zerolog.Logger {
	return l.Sample(&zerolog.BurstSampler{
		Burst:       5,
		Period:      10 * time.Second,
		NextSampler: &zerolog.BasicSampler{N: 100},
	})
}
