// Package control maps per-frame key state onto instrument, target and camera motion.
package control

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/surgisim/fusion/internal/align"
	"github.com/surgisim/fusion/internal/input"
	"github.com/surgisim/fusion/internal/pose"
	"github.com/surgisim/fusion/internal/scene"
)

// Selection is the instrument group under manual control.
type Selection int

const (
	None Selection = iota
	Tube
	Rongeur
	Endoscope
)

func (s Selection) String() string {
	switch s {
	case Tube:
		return "tube"
	case Rongeur:
		return "rongeur"
	case Endoscope:
		return "endoscope"
	default:
		return "none"
	}
}

// Roles returns the instrument roles moved by the selection.
func (s Selection) Roles() []scene.Role {
	switch s {
	case Tube:
		return []scene.Role{scene.RoleTube}
	case Rongeur:
		return []scene.Role{scene.RoleRongeurUpper, scene.RoleRongeurLower}
	case Endoscope:
		return []scene.Role{scene.RoleEndoscope}
	default:
		return nil
	}
}

// Animation preset values.
const (
	AnimationLow  float32 = 0
	AnimationHigh float32 = 1
)

// Config holds jog magnitudes.
type Config struct {
	PositionStep float64 // world units per jog
	RotationStep float64 // degrees per jog
	TargetStep   float64 // world units per jog
	InsertSpeed  float64 // world units per second
	CameraSpeed  float64 // world units per second
}

// DefaultConfig returns the stock jog magnitudes.
func DefaultConfig() Config {
	return Config{
		PositionStep: 0.4,
		RotationStep: 1,
		TargetStep:   0.5,
		InsertSpeed:  40,
		CameraSpeed:  20,
	}
}

var (
	axisX = mgl64.Vec3{1, 0, 0}
	axisY = mgl64.Vec3{0, 1, 0}
	axisZ = mgl64.Vec3{0, 0, 1}
)

type jog struct {
	key    input.Key
	axis   mgl64.Vec3
	sign   float64
	rotate bool
}

var jogTable = []jog{
	{input.PosXPlus, axisX, 1, false},
	{input.PosXMinus, axisX, -1, false},
	{input.PosYPlus, axisY, 1, false},
	{input.PosYMinus, axisY, -1, false},
	{input.PosZPlus, axisZ, 1, false},
	{input.PosZMinus, axisZ, -1, false},
	{input.RotXPlus, axisX, 1, true},
	{input.RotXMinus, axisX, -1, true},
	{input.RotYPlus, axisY, 1, true},
	{input.RotYMinus, axisY, -1, true},
	{input.RotZPlus, axisZ, 1, true},
	{input.RotZMinus, axisZ, -1, true},
}

var targetTable = []jog{
	{key: input.TargetXPlus, axis: axisX, sign: 1},
	{key: input.TargetXMinus, axis: axisX, sign: -1},
	{key: input.TargetYPlus, axis: axisY, sign: 1},
	{key: input.TargetYMinus, axis: axisY, sign: -1},
	{key: input.TargetZPlus, axis: axisZ, sign: 1},
	{key: input.TargetZMinus, axis: axisZ, sign: -1},
}

var cameraTable = []struct {
	key input.Key
	dir scene.Direction
}{
	{input.CameraForward, scene.Front},
	{input.CameraBack, scene.Back},
	{input.CameraLeft, scene.Left},
	{input.CameraRight, scene.Right},
	{input.CameraUp, scene.Up},
	{input.CameraDown, scene.Down},
}

// Controller is the per-frame input to pose mapper.
type Controller struct {
	cfg       Config
	selection Selection
	animation float32
}

// New creates a controller with nothing selected.
func New(cfg Config) *Controller {
	return &Controller{cfg: cfg, selection: None, animation: AnimationLow}
}

// Selection returns the current selection.
func (c *Controller) Selection() Selection {
	return c.selection
}

// Animation returns the animation preset published with telemetry.
func (c *Controller) Animation() float32 {
	return c.animation
}

// Select applies the selector keys. When several are held the last in
// rongeur, tube, endoscope order wins.
func (c *Controller) Select(keys input.State) {
	if keys.Pressed(input.SelectRongeur) {
		c.selection = Rongeur
	}
	if keys.Pressed(input.SelectTube) {
		c.selection = Tube
	}
	if keys.Pressed(input.SelectEndoscope) {
		c.selection = Endoscope
	}
}

// ApplyJog applies every held jog key to p. Rotations are composed about
// world axes. It reports whether p changed.
func (c *Controller) ApplyJog(p *pose.Pose, keys input.State) bool {
	moved := false
	for _, j := range jogTable {
		if !keys.Pressed(j.key) {
			continue
		}
		if j.rotate {
			p.RotateWorld(j.axis, j.sign*c.cfg.RotationStep)
		} else {
			p.Translate(j.axis.Mul(j.sign * c.cfg.PositionStep))
		}
		moved = true
	}
	return moved
}

// Update runs one frame of input against s. dt is the frame time in seconds.
func (c *Controller) Update(s *scene.State, keys input.State, dt float64) {
	c.Select(keys)

	if keys.Pressed(input.AnimationLow) {
		c.animation = AnimationLow
	}
	if keys.Pressed(input.AnimationHigh) {
		c.animation = AnimationHigh
	}

	c.travelCamera(s, keys, dt)
	c.moveTarget(s, keys)

	for _, m := range s.InstrumentModels(c.selection.Roles()...) {
		c.ApplyJog(&m.Pose, keys)
		c.insert(s, &m.Pose, keys, dt)
	}
}

func (c *Controller) travelCamera(s *scene.State, keys input.State, dt float64) {
	_, cam, ok := s.ActiveCamera()
	if !ok {
		return
	}
	moved := false
	for _, t := range cameraTable {
		if keys.Pressed(t.key) {
			cam.Travel(t.dir, c.cfg.CameraSpeed*dt)
			moved = true
		}
	}
	if moved {
		s.FollowCamera()
	}
}

func (c *Controller) moveTarget(s *scene.State, keys input.State) {
	for _, j := range targetTable {
		if keys.Pressed(j.key) {
			s.Target = s.Target.Add(j.axis.Mul(j.sign * c.cfg.TargetStep))
		}
	}
}

// insert moves p along the aim line toward (Insert) or away from (Withdraw)
// the pivot. Insertion stops at the pivot.
func (c *Controller) insert(s *scene.State, p *pose.Pose, keys input.State, dt float64) {
	in, out := keys.Pressed(input.Insert), keys.Pressed(input.Withdraw)
	if in == out {
		return
	}
	dir, ok := align.TargetForward(s.Pivot, s.Target)
	if !ok {
		return
	}

	step := c.cfg.InsertSpeed * dt
	if out {
		step = -step
	}
	if depth := s.Pivot.Sub(p.Position).Dot(dir); in && step > depth {
		step = max(depth, 0)
	}
	p.Translate(dir.Mul(step))
}
