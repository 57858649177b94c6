// Package influxstore writes instrument poses to InfluxDB as time series.
package influxstore

import (
	"context"
	"errors"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/surgisim/fusion/internal/influx"
	"github.com/surgisim/fusion/internal/recorder"
	"github.com/surgisim/fusion/internal/telemetry"
)

const (
	measurementInstrument = "instrument"
	measurementAnimation  = "animation"
)

// Backend turns each sample into one point per instrument plus an
// animation point.
type Backend struct {
	m       *influx.Manager
	bucket  string
	session string
}

var _ recorder.Backend = (*Backend)(nil)

// New creates a backend writing to the first bucket of m under session.
func New(m *influx.Manager, session string) *Backend {
	bucket := ""
	if len(m.BucketNames) > 0 {
		bucket = m.BucketNames[0]
	}
	return &Backend{m: m, bucket: bucket, session: session}
}

func (b *Backend) Init(ctx context.Context) error {
	if b.bucket == "" {
		return errors.New("no influx bucket configured")
	}
	return b.m.Connect(ctx)
}

// Record writes the poses of s.
func (b *Backend) Record(s recorder.Sample) error {
	var errs []error
	for _, p := range Points(b.session, s) {
		errs = append(errs, b.m.WritePoint(b.bucket, p))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("frame %d: %w", s.Frame, err)
	}
	return nil
}

func (b *Backend) Close() error {
	return b.m.Close()
}

// Points converts a sample into line protocol points.
func Points(session string, s recorder.Sample) []*influxdb2_write.Point {
	d := &s.Data
	points := []*influxdb2_write.Point{
		pose(session, "endoscope", s, d.EndoscopePos, d.EndoscopeEuler),
		pose(session, "tube", s, d.TubePos, d.TubeEuler),
		pose(session, "rongeur", s, d.RongeurPos, d.RongeurRot),
	}
	points = append(points, influxdb2.NewPoint(
		measurementAnimation,
		map[string]string{"session": session},
		map[string]any{
			"value": d.Offset.AnimationValue,
			"frame": int64(s.Frame),
		},
		s.Time,
	))
	return points
}

func pose(session, name string, s recorder.Sample, pos, euler telemetry.Vec3) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		measurementInstrument,
		map[string]string{
			"session": session,
			"name":    name,
		},
		map[string]any{
			"x":     pos.X,
			"y":     pos.Y,
			"z":     pos.Z,
			"pitch": euler.X,
			"yaw":   euler.Y,
			"roll":  euler.Z,
			"frame": int64(s.Frame),
		},
		s.Time,
	)
}
