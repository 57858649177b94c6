package window

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/surgisim/fusion/internal/scene"
)

// axisLength is how far the forward stub of a meshless instrument reaches.
const axisLength = 20.0

// Segment is a screen-space line from a drawn model.
type Segment struct {
	X0, Y0, X1, Y1 float32
	Selected       bool
}

// Marker is a screen-space point such as the pivot or the target.
type Marker struct {
	X, Y  float32
	Label string
}

// Frame is everything one view projects to at a given screen size.
type Frame struct {
	Segments []Segment
	Markers  []Marker
}

type projector struct {
	mvp           mgl64.Mat4
	width, height float64
}

func newProjector(cam scene.Camera, width, height int) projector {
	aspect := 1.0
	if height > 0 {
		aspect = float64(width) / float64(height)
	}
	return projector{
		mvp:    cam.Projection(aspect).Mul4(cam.View()),
		width:  float64(width),
		height: float64(height),
	}
}

// point maps a world position to pixels. It reports false for points behind
// the camera.
func (p projector) point(world mgl64.Vec3) (float32, float32, bool) {
	clip := p.mvp.Mul4x1(world.Vec4(1))
	if clip.W() <= 1e-9 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	x := (ndc.X() + 1) / 2 * p.width
	y := (1 - ndc.Y()) / 2 * p.height
	return float32(x), float32(y), true
}

func (p projector) segment(a, b mgl64.Vec3, selected bool) (Segment, bool) {
	x0, y0, ok0 := p.point(a)
	x1, y1, ok1 := p.point(b)
	if !ok0 || !ok1 {
		return Segment{}, false
	}
	return Segment{X0: x0, Y0: y0, X1: x1, Y1: y1, Selected: selected}, true
}

// Project turns a scene view into wireframe segments and markers for a
// width x height surface. Models without meshes are drawn as a forward stub.
func Project(v scene.View, width, height int) Frame {
	p := newProjector(v.Camera, width, height)
	var out Frame

	for _, it := range v.Items {
		if len(it.Meshes) == 0 {
			tip := it.Pose.Position.Add(it.Pose.Forward().Mul(axisLength))
			if s, ok := p.segment(it.Pose.Position, tip, it.Selected); ok {
				out.Segments = append(out.Segments, s)
			}
			continue
		}

		model := it.Pose.Matrix()
		for _, m := range it.Meshes {
			world := make([]mgl64.Vec3, len(m.Vertices))
			for i, vtx := range m.Vertices {
				world[i] = model.Mul4x1(vtx.Vec4(1)).Vec3()
			}
			for _, e := range m.Edges() {
				if int(e[0]) >= len(world) || int(e[1]) >= len(world) {
					continue
				}
				if s, ok := p.segment(world[e[0]], world[e[1]], it.Selected); ok {
					out.Segments = append(out.Segments, s)
				}
			}
		}
	}

	for _, mk := range []struct {
		pos   mgl64.Vec3
		label string
	}{{v.Pivot, "pivot"}, {v.Target, "target"}} {
		if x, y, ok := p.point(mk.pos); ok {
			out.Markers = append(out.Markers, Marker{X: x, Y: y, Label: mk.label})
		}
	}
	return out
}
