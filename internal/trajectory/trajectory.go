// Package trajectory accumulates instrument positions into line geometries.
// Paths are LineStringZM with the frame number stored as M.
package trajectory

import (
	"math"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/surgisim/fusion/internal/telemetry"
)

// Path is the ordered positions of one instrument.
type Path struct {
	Name   string
	coords []float64 // x, y, z, frame
}

func (p *Path) Add(frame uint64, v telemetry.Vec3) {
	p.coords = append(p.coords, float64(v.X), float64(v.Y), float64(v.Z), float64(frame))
}

// Len returns the number of recorded points.
func (p *Path) Len() int {
	return len(p.coords) / 4
}

// LineString returns the path geometry. ok is false with fewer than two points.
func (p *Path) LineString() (ls geom.LineString, ok bool) {
	if p.Len() < 2 {
		return geom.LineString{}, false
	}
	seq := geom.NewSequence(p.coords, geom.DimXYZM)
	return geom.NewLineString(seq), true
}

// Geometry returns the path as a generic geometry, empty when there is no line yet.
func (p *Path) Geometry() geom.Geometry {
	ls, ok := p.LineString()
	if !ok {
		return geom.Geometry{}
	}
	return ls.AsGeometry()
}

// WKT returns the well-known text of the path.
func (p *Path) WKT() string {
	return p.Geometry().AsText()
}

// Length returns the travelled distance in scene units, Z included.
func (p *Path) Length() float64 {
	ls, ok := p.LineString()
	if !ok {
		return 0
	}
	seq := ls.Coordinates()
	var total float64
	prev := seq.Get(0)
	for i := 1; i < seq.Length(); i++ {
		cur := seq.Get(i)
		dx, dy, dz := cur.X-prev.X, cur.Y-prev.Y, cur.Z-prev.Z
		total += math.Sqrt(dx*dx + dy*dy + dz*dz)
		prev = cur
	}
	return total
}

// Instrument names used by Set.
const (
	Endoscope = "endoscope"
	Tube      = "tube"
	Rongeur   = "rongeur"
)

// Set tracks every published instrument.
type Set struct {
	paths []*Path
}

func NewSet() *Set {
	return &Set{paths: []*Path{{Name: Endoscope}, {Name: Tube}, {Name: Rongeur}}}
}

// Track appends the instrument positions of f.
func (s *Set) Track(frame uint64, f *telemetry.Frame) {
	s.paths[0].Add(frame, f.EndoscopePos)
	s.paths[1].Add(frame, f.TubePos)
	s.paths[2].Add(frame, f.RongeurPos)
}

// Paths returns the tracked paths in a fixed order.
func (s *Set) Paths() []*Path {
	return s.paths
}

// Get returns the path for name.
func (s *Set) Get(name string) (*Path, bool) {
	for _, p := range s.paths {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}
