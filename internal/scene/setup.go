package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/surgisim/fusion/internal/meshload"
	"github.com/surgisim/fusion/internal/pose"
	"github.com/surgisim/fusion/internal/stock"
)

// InstrumentSetup describes one instrument to load at startup.
type InstrumentSetup struct {
	Role      Role
	Name      string
	ModelPath string
	Position  mgl64.Vec3
	Scale     float64
}

// Setup is the initial scene content.
type Setup struct {
	Pivot       mgl64.Vec3
	Target      mgl64.Vec3
	Camera      Camera
	Lights      []Light
	Programs    []Program
	Instruments []InstrumentSetup
}

// DefaultSetup returns the rig used when nothing is configured.
func DefaultSetup() Setup {
	return Setup{
		Pivot:  mgl64.Vec3{-100, 49, -9},
		Target: mgl64.Vec3{-34, 24, -30},
		Camera: Camera{Name: "main", Position: mgl64.Vec3{-60, 60, 120}, Yaw: -90, FOV: 45},
		Lights: []Light{
			{Name: "headlamp", Kind: SpotLight, Color: mgl64.Vec3{1, 1, 1}, Grabbed: true},
			{Name: "sun", Kind: DirectionalLight, Direction: mgl64.Vec3{0, -1, 0}, Color: mgl64.Vec3{0.4, 0.4, 0.4}},
		},
		Programs: []Program{
			{Name: "gbuffer", Pass: GeometryPass, VertexPath: "shaders/gbuffer.vert", FragmentPath: "shaders/gbuffer.frag", Default: true},
			{Name: "deferred", Pass: LightingPass, VertexPath: "shaders/deferred.vert", FragmentPath: "shaders/deferred.frag", Default: true},
		},
		Instruments: []InstrumentSetup{
			{Role: RoleTube, Name: "tube", ModelPath: "models/tube.obj", Position: mgl64.Vec3{-34, 24, -30}, Scale: 1},
			{Role: RoleEndoscope, Name: "endoscope", ModelPath: "models/endoscope.obj", Position: mgl64.Vec3{-34, 24, -30}, Scale: 1},
			{Role: RoleRongeurUpper, Name: "rongeur_upper", ModelPath: "models/rongeur_upper.obj", Position: mgl64.Vec3{-34, 24, -30}, Scale: 1},
			{Role: RoleRongeurLower, Name: "rongeur_lower", ModelPath: "models/rongeur_lower.obj", Position: mgl64.Vec3{-34, 24, -30}, Scale: 1},
		},
	}
}

// Build creates a scene from setup, loading meshes through load.
func Build(setup Setup, load func(path string) meshload.Set) *State {
	s := New()
	s.Pivot = setup.Pivot
	s.Target = setup.Target

	cam := setup.Camera
	s.AddCamera(&cam)

	for _, l := range setup.Lights {
		s.Lights.Add(&l)
	}
	for _, p := range setup.Programs {
		s.Programs.Add(&p)
	}

	for _, in := range setup.Instruments {
		p := pose.Identity()
		p.Position = in.Position
		if in.Scale > 0 {
			p.Scale = pose.UniformScale(in.Scale)
		}
		var meshes meshload.Set
		if load != nil && in.ModelPath != "" {
			meshes = load(in.ModelPath)
		}
		s.AddInstrument(in.Role, in.Name, meshes, p)
	}

	s.FollowCamera()
	return s
}

// DrawItem is one model as the renderer sees it.
type DrawItem struct {
	ID       stock.ID
	Name     string
	Role     Role
	Pose     pose.Pose
	Meshes   meshload.Set
	Selected bool
}

// View is a read-only snapshot of the scene for drawing.
type View struct {
	Frame  uint64
	Camera Camera
	Lights []Light
	Items  []DrawItem
	Pivot  mgl64.Vec3
	Target mgl64.Vec3
}

// Snapshot copies the drawable state. Models driven by an instrument whose
// role is in selected are flagged.
func (s *State) Snapshot(selected ...Role) View {
	v := View{Frame: s.Frame, Pivot: s.Pivot, Target: s.Target}
	if _, cam, ok := s.ActiveCamera(); ok {
		v.Camera = *cam
	}
	for _, l := range s.Lights.All() {
		v.Lights = append(v.Lights, *l)
	}

	roles := make(map[stock.ID]Role)
	for _, inst := range s.Instruments.All() {
		roles[inst.Model()] = inst.Role()
	}

	for id, m := range s.Models.All() {
		if m.Hidden {
			continue
		}
		role := roles[id]
		item := DrawItem{ID: id, Name: m.Name, Role: role, Pose: m.Pose, Meshes: m.Meshes}
		for _, r := range selected {
			if r == role {
				item.Selected = true
			}
		}
		v.Items = append(v.Items, item)
	}
	return v
}
