package scene

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/surgisim/fusion/internal/meshload"
	"github.com/surgisim/fusion/internal/pose"
	"github.com/surgisim/fusion/internal/stock"
)

var worldUp = mgl64.Vec3{0, 1, 0}

// Model is a drawable entity. It owns its meshes.
type Model struct {
	Name   string
	Pose   pose.Pose
	Meshes meshload.Set
	Hidden bool
}

// Release drops the mesh data when the model leaves its stock.
func (m *Model) Release() {
	m.Meshes = nil
}

// Direction is a camera travel direction relative to where it looks.
type Direction int

const (
	Front Direction = iota
	Back
	Left
	Right
	Up
	Down
)

// Camera is a fly camera. Yaw and Pitch are degrees; yaw -90 looks down -Z.
type Camera struct {
	Name     string
	Position mgl64.Vec3
	Yaw      float64
	Pitch    float64
	FOV      float64
	Active   bool
}

// Front returns the unit view direction.
func (c *Camera) Front() mgl64.Vec3 {
	yaw, pitch := mgl64.DegToRad(c.Yaw), mgl64.DegToRad(c.Pitch)
	return mgl64.Vec3{
		math.Cos(yaw) * math.Cos(pitch),
		math.Sin(pitch),
		math.Sin(yaw) * math.Cos(pitch),
	}.Normalize()
}

// Right returns the unit vector to the right of the view direction.
func (c *Camera) Right() mgl64.Vec3 {
	return c.Front().Cross(worldUp).Normalize()
}

// Up returns the camera up vector.
func (c *Camera) Up() mgl64.Vec3 {
	return c.Right().Cross(c.Front()).Normalize()
}

// Travel moves the camera distance units in dir.
func (c *Camera) Travel(dir Direction, distance float64) {
	var step mgl64.Vec3
	switch dir {
	case Front:
		step = c.Front()
	case Back:
		step = c.Front().Mul(-1)
	case Left:
		step = c.Right().Mul(-1)
	case Right:
		step = c.Right()
	case Up:
		step = c.Up()
	case Down:
		step = c.Up().Mul(-1)
	}
	c.Position = c.Position.Add(step.Mul(distance))
}

// View returns the world to camera matrix.
func (c *Camera) View() mgl64.Mat4 {
	return mgl64.LookAtV(c.Position, c.Position.Add(c.Front()), c.Up())
}

// Projection returns a perspective matrix for the given aspect ratio.
func (c *Camera) Projection(aspect float64) mgl64.Mat4 {
	fov := c.FOV
	if fov <= 0 {
		fov = 45
	}
	return mgl64.Perspective(mgl64.DegToRad(fov), aspect, 0.1, 2000)
}

// LightKind enumerates light types.
type LightKind int

const (
	PointLight LightKind = iota
	SpotLight
	DirectionalLight
)

// Light is a scene light. A grabbed light follows the active camera.
type Light struct {
	Name      string
	Kind      LightKind
	Position  mgl64.Vec3
	Direction mgl64.Vec3
	Color     mgl64.Vec3
	Grabbed   bool
}

// Follow places the light at the camera, pointing where it looks.
func (l *Light) Follow(c *Camera) {
	l.Position = c.Position
	l.Direction = c.Front()
}

// Pass is the render pass a shader program belongs to.
type Pass int

const (
	GeometryPass Pass = iota
	LightingPass
)

func (p Pass) String() string {
	switch p {
	case GeometryPass:
		return "geometry"
	case LightingPass:
		return "lighting"
	default:
		return fmt.Sprintf("pass(%d)", int(p))
	}
}

// Program describes a shader program. Compilation belongs to the renderer.
type Program struct {
	Name         string
	Pass         Pass
	VertexPath   string
	FragmentPath string
	Default      bool
}

// Role is the immutable function of a tracked instrument.
type Role string

const (
	RoleTube         Role = "tube"
	RoleEndoscope    Role = "endoscope"
	RoleRongeurUpper Role = "rongeur-upper"
	RoleRongeurLower Role = "rongeur-lower"
)

// Roles lists every instrument role.
var Roles = []Role{RoleTube, RoleEndoscope, RoleRongeurUpper, RoleRongeurLower}

// ParseRole validates a role tag.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown instrument role %q", s)
}

// Instrument ties a role to the model it drives. The role cannot change.
type Instrument struct {
	role  Role
	model stock.ID
}

// NewInstrument creates an instrument for the given model.
func NewInstrument(role Role, model stock.ID) *Instrument {
	return &Instrument{role: role, model: model}
}

// Role returns the instrument role.
func (i *Instrument) Role() Role {
	return i.role
}

// Model returns the id of the driven model.
func (i *Instrument) Model() stock.ID {
	return i.model
}
