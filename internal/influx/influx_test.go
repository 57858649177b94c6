package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unreachable() Config {
	return Config{Protocol: "http", Host: "127.0.0.1", Port: "1", Org: "fusion"}
}

func TestConnect_FallsBackToBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(zerolog.Nop(), unreachable(), path)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, m.Connect(ctx))
	assert.False(t, m.IsValid)
	require.NotNil(t, m.BackupWriter)

	p := influxdb2_write.NewPoint("instrument",
		map[string]string{"name": "tube"},
		map[string]any{"x": 1.5},
		time.Unix(0, 42),
	)
	require.NoError(t, m.WritePoint("fusion_telemetry", p))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	assert.Equal(t, "instrument,name=tube x=1.5 42", strings.TrimSpace(string(data)))
}

func TestWritePoint_NoBackend(t *testing.T) {
	m := NewManager(zerolog.Nop(), unreachable(), "")
	p := influxdb2_write.NewPointWithMeasurement("instrument").AddField("x", 1)
	assert.Error(t, m.WritePoint("fusion_telemetry", p))
}

func TestWritePoint_UnknownBucket(t *testing.T) {
	m := NewManager(zerolog.Nop(), unreachable(), "")
	m.IsValid = true
	p := influxdb2_write.NewPointWithMeasurement("instrument").AddField("x", 1)
	assert.ErrorContains(t, m.WritePoint("missing", p), "not registered")
}

func TestConfig_URL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:1", unreachable().URL())
}
