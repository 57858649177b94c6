package scene

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgisim/fusion/internal/meshload"
	"github.com/surgisim/fusion/internal/pose"
	"github.com/surgisim/fusion/internal/stock"
)

func buildDefault(t *testing.T) *State {
	t.Helper()
	var loaded []string
	s := Build(DefaultSetup(), func(path string) meshload.Set {
		loaded = append(loaded, path)
		return meshload.Set{}
	})
	require.Len(t, loaded, 4)
	return s
}

func TestBuild_Default(t *testing.T) {
	s := buildDefault(t)

	assert.Equal(t, mgl64.Vec3{-100, 49, -9}, s.Pivot)
	assert.Equal(t, mgl64.Vec3{-34, 24, -30}, s.Target)
	assert.Equal(t, 4, s.Models.Len())
	assert.Equal(t, 4, s.Instruments.Len())
	assert.Equal(t, 2, s.Programs.Len())
	assert.Equal(t, 2, s.Lights.Len())

	_, cam, ok := s.ActiveCamera()
	require.True(t, ok)
	assert.Equal(t, "main", cam.Name)

	// the grabbed headlamp starts on the camera
	_, lamp, ok := s.Lights.Find(func(l *Light) bool { return l.Grabbed })
	require.True(t, ok)
	assert.Equal(t, cam.Position, lamp.Position)
}

func TestInstrumentModels(t *testing.T) {
	s := buildDefault(t)

	rongeur := s.InstrumentModels(RoleRongeurUpper, RoleRongeurLower)
	require.Len(t, rongeur, 2)
	assert.Equal(t, "rongeur_upper", rongeur[0].Name)
	assert.Equal(t, "rongeur_lower", rongeur[1].Name)

	tube, ok := s.FirstModel(RoleTube)
	require.True(t, ok)
	assert.Equal(t, "tube", tube.Name)
}

func TestRemoveCamera_LastIsRejected(t *testing.T) {
	s := New()
	id := s.AddCamera(&Camera{Name: "only"})

	err := s.RemoveCamera(id)
	assert.ErrorIs(t, err, stock.ErrInvariantViolation)
	assert.Equal(t, 1, s.Cameras.Len())
}

func TestRemoveCamera_PromotesSubstitute(t *testing.T) {
	s := New()
	first := s.AddCamera(&Camera{Name: "first"})
	s.AddCamera(&Camera{Name: "second"})
	third := s.AddCamera(&Camera{Name: "third"})

	require.NoError(t, s.SetActiveCamera(third))
	require.NoError(t, s.RemoveCamera(third))

	id, cam, ok := s.ActiveCamera()
	require.True(t, ok)
	assert.Equal(t, first, id)
	assert.Equal(t, "first", cam.Name)

	assert.ErrorIs(t, s.SetActiveCamera(third), stock.ErrNotFound)
}

func TestRemoveProgram_DefaultNeedsSubstitute(t *testing.T) {
	s := New()
	geometry := s.Programs.Add(&Program{Name: "gbuffer", Pass: GeometryPass, Default: true})
	s.Programs.Add(&Program{Name: "deferred", Pass: LightingPass, Default: true})

	assert.ErrorIs(t, s.Programs.Remove(geometry), stock.ErrInvariantViolation)

	s.Programs.Add(&Program{Name: "gbuffer-alt", Pass: GeometryPass, Default: true})
	assert.NoError(t, s.Programs.Remove(geometry))
}

func TestRemoveModel_DetachesInstrument(t *testing.T) {
	s := New()
	_, m := s.AddInstrument(RoleTube, "tube", meshload.Set{{Name: "tube"}}, pose.Identity())
	modelID, _, ok := s.Models.First()
	require.True(t, ok)

	require.NoError(t, s.RemoveModel(modelID))
	assert.Equal(t, 0, s.Instruments.Len())
	assert.Nil(t, m.Meshes, "meshes released")

	assert.ErrorIs(t, s.RemoveModel(modelID), stock.ErrNotFound)
}

func TestLightsAndModels_RemoveUnconditionally(t *testing.T) {
	s := New()
	id := s.Lights.Add(&Light{Name: "only"})
	assert.NoError(t, s.Lights.Remove(id))

	mid := s.Models.Add(&Model{Name: "only"})
	assert.NoError(t, s.RemoveModel(mid))
}

func TestRole(t *testing.T) {
	inst := NewInstrument(RoleEndoscope, 3)
	assert.Equal(t, RoleEndoscope, inst.Role())
	assert.Equal(t, stock.ID(3), inst.Model())

	r, err := ParseRole("rongeur-lower")
	require.NoError(t, err)
	assert.Equal(t, RoleRongeurLower, r)

	_, err = ParseRole("scalpel")
	assert.Error(t, err)
}

func TestCamera_Travel(t *testing.T) {
	c := &Camera{Yaw: -90}
	assert.InDelta(t, -1, c.Front().Z(), 1e-12)

	c.Travel(Front, 2)
	assert.InDelta(t, -2, c.Position.Z(), 1e-12)

	c.Travel(Right, 3)
	assert.InDelta(t, 3, c.Position.X(), 1e-12)

	c.Travel(Up, 1)
	assert.InDelta(t, 1, c.Position.Y(), 1e-12)

	c.Travel(Back, 2)
	c.Travel(Left, 3)
	c.Travel(Down, 1)
	assert.InDelta(t, 0, c.Position.Len(), 1e-12)
}

func TestFollowCamera(t *testing.T) {
	s := New()
	s.AddCamera(&Camera{Position: mgl64.Vec3{1, 2, 3}, Yaw: -90})
	s.Lights.Add(&Light{Name: "lamp", Grabbed: true})
	s.Lights.Add(&Light{Name: "fixed", Position: mgl64.Vec3{9, 9, 9}})

	s.FollowCamera()

	ids := s.Lights.IDs()
	lamp, _ := s.Lights.Get(ids[0])
	fixed, _ := s.Lights.Get(ids[1])
	assert.Equal(t, mgl64.Vec3{1, 2, 3}, lamp.Position)
	assert.InDelta(t, -1, lamp.Direction.Z(), 1e-12)
	assert.Equal(t, mgl64.Vec3{9, 9, 9}, fixed.Position)
}

func TestSnapshot(t *testing.T) {
	s := buildDefault(t)
	s.Frame = 7

	tube, _ := s.FirstModel(RoleTube)
	tube.Hidden = true

	v := s.Snapshot(RoleRongeurUpper, RoleRongeurLower)
	assert.Equal(t, uint64(7), v.Frame)
	require.Len(t, v.Items, 3)
	for _, item := range v.Items {
		assert.Equal(t, item.Role == RoleRongeurUpper || item.Role == RoleRongeurLower, item.Selected, item.Name)
	}

	// snapshot is a copy
	v.Items[0].Pose.Position = mgl64.Vec3{1000, 0, 0}
	endo, _ := s.FirstModel(RoleEndoscope)
	assert.NotEqual(t, mgl64.Vec3{1000, 0, 0}, endo.Pose.Position)
}
