// Package telemetry defines the per-frame fusion message and its wire format.
package telemetry

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/surgisim/fusion/internal/scene"
)

// DefaultTopic is the pub/sub topic frames are published on.
const DefaultTopic = "fusion"

type Vec3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

type Quat struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

type Offset struct {
	EndoscopeOffset  float32 `json:"endoscope_offset"`
	TubeOffset       float32 `json:"tube_offset"`
	InstrumentSwitch float32 `json:"instrument_switch"`
	AnimationValue   float32 `json:"animation_value"`
	PivotOffset      float32 `json:"pivot_offset"`
}

type Haptic struct {
	State  float32 `json:"haptic_state"`
	Offset float32 `json:"haptic_offset"`
	Force  float32 `json:"haptic_force"`
}

// SoftTissue holds per-tissue coefficients. They are configuration only;
// nothing in the engine simulates tissue.
type SoftTissue struct {
	LigaFlavum        float32 `json:"liga_flavum"`
	DiscYellowSpace   float32 `json:"disc_yellow_space"`
	VeutroVessel      float32 `json:"veutro_vessel"`
	Fat               float32 `json:"fat"`
	FibrousRings      float32 `json:"fibrous_rings"`
	NucleusPulposus   float32 `json:"nucleus_pulposus"`
	PLongitudinalLiga float32 `json:"p_longitudinal_liga"`
	DuraMater         float32 `json:"dura_mater"`
	NerveRoot         float32 `json:"nerve_root"`
}

// Frame is one complete telemetry snapshot.
type Frame struct {
	EndoscopePos    Vec3       `json:"endoscope_pos"`
	EndoscopeEuler  Vec3       `json:"endoscope_euler"`
	TubePos         Vec3       `json:"tube_pos"`
	TubeEuler       Vec3       `json:"tube_euler"`
	Offset          Offset     `json:"offset"`
	RotCoord        Quat       `json:"rot_coord"`
	PivotPos        Vec3       `json:"pivot_pos"`
	AblationCount   int32      `json:"ablation_count"`
	Haptic          Haptic     `json:"haptic"`
	HemostasisCount int32      `json:"hemostasis_count"`
	HemostasisIndex int32      `json:"hemostasis_index"`
	SoftTissue      SoftTissue `json:"soft_tissue"`
	NerveRootDance  int32      `json:"nerve_root_dance"`
	RongeurPos      Vec3       `json:"rongeur_pos"`
	RongeurRot      Vec3       `json:"rongeur_rot"`
}

// Constants is the read-only part of every frame.
type Constants struct {
	EndoscopeOffset  float32
	TubeOffset       float32
	InstrumentSwitch float32
	PivotOffset      float32
	RotCoord         Quat
	PivotPos         Vec3
	AblationCount    int32
	HemostasisCount  int32
	HemostasisIndex  int32
	NerveRootDance   int32
	Haptic           Haptic
	SoftTissue       SoftTissue
}

// DefaultConstants returns the values the rig publishes when nothing is configured.
func DefaultConstants() Constants {
	return Constants{
		EndoscopeOffset:  -1,
		TubeOffset:       -3,
		InstrumentSwitch: 60,
		PivotOffset:      2,
		RotCoord:         Quat{X: 0, Y: 0.7071068, Z: 0, W: 0.7071068},
		PivotPos:         Vec3{X: -10, Y: 4.9, Z: -0.9},
		Haptic:           Haptic{State: 3, Offset: -1, Force: 2},
		SoftTissue: SoftTissue{
			LigaFlavum:        1,
			DiscYellowSpace:   1,
			VeutroVessel:      1,
			Fat:               1,
			FibrousRings:      1,
			NucleusPulposus:   1,
			PLongitudinalLiga: 1,
			DuraMater:         1,
			NerveRoot:         1,
		},
	}
}

// BuildOptions control how scene poses map onto frame fields.
type BuildOptions struct {
	Constants Constants
	// MirrorX negates the X component of published positions for consumers
	// with a left-handed world.
	MirrorX bool
	// SwapRongeurXY publishes the rongeur's X and Y rotation swapped, as
	// consumers built against the rig's original axis mapping expect.
	SwapRongeurXY bool
}

// Build snapshots every tracked instrument in s. Missing instruments publish
// zero poses. The rongeur is reported through its upper jaw.
func Build(s *scene.State, animation float32, opts BuildOptions) Frame {
	c := opts.Constants
	f := Frame{
		Offset: Offset{
			EndoscopeOffset:  c.EndoscopeOffset,
			TubeOffset:       c.TubeOffset,
			InstrumentSwitch: c.InstrumentSwitch,
			AnimationValue:   animation,
			PivotOffset:      c.PivotOffset,
		},
		RotCoord:        c.RotCoord,
		PivotPos:        c.PivotPos,
		AblationCount:   c.AblationCount,
		Haptic:          c.Haptic,
		HemostasisCount: c.HemostasisCount,
		HemostasisIndex: c.HemostasisIndex,
		SoftTissue:      c.SoftTissue,
		NerveRootDance:  c.NerveRootDance,
	}

	pos := func(v mgl64.Vec3) Vec3 {
		out := vec(v)
		if opts.MirrorX {
			out.X = -out.X
		}
		return out
	}

	if m, ok := s.FirstModel(scene.RoleEndoscope); ok {
		f.EndoscopePos = pos(m.Pose.Position)
		f.EndoscopeEuler = vec(m.Pose.Orientation)
	}
	if m, ok := s.FirstModel(scene.RoleTube); ok {
		f.TubePos = pos(m.Pose.Position)
		f.TubeEuler = vec(m.Pose.Orientation)
	}
	if m, ok := s.FirstModel(scene.RoleRongeurUpper); ok {
		f.RongeurPos = pos(m.Pose.Position)
		f.RongeurRot = vec(m.Pose.Orientation)
		if opts.SwapRongeurXY {
			f.RongeurRot.X, f.RongeurRot.Y = f.RongeurRot.Y, f.RongeurRot.X
		}
	}
	return f
}

func vec(v mgl64.Vec3) Vec3 {
	return Vec3{X: float32(v.X()), Y: float32(v.Y()), Z: float32(v.Z())}
}
