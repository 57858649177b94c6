package window

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgisim/fusion/internal/input"
	"github.com/surgisim/fusion/internal/meshload"
	"github.com/surgisim/fusion/internal/pose"
	"github.com/surgisim/fusion/internal/scene"
)

func camera() scene.Camera {
	return scene.Camera{Position: mgl64.Vec3{0, 0, 100}, Yaw: -90, FOV: 45}
}

func TestResolveKeys_DefaultKeymap(t *testing.T) {
	keys, err := ResolveKeys(input.DefaultKeymap())
	require.NoError(t, err)

	assert.Equal(t, ebiten.KeyK, keys["K"])
	assert.Equal(t, ebiten.KeyDigit2, keys["Digit2"])
	assert.Equal(t, ebiten.KeyArrowUp, keys["ArrowUp"])
	assert.Equal(t, ebiten.KeyPageDown, keys["PageDown"])
}

func TestResolveKeys_Unknown(t *testing.T) {
	_, err := ResolveKeys(input.Keymap{input.Insert: {"NotAKey"}})
	assert.ErrorContains(t, err, "NotAKey")
}

func TestProject_CenterOfView(t *testing.T) {
	f := Project(scene.View{Camera: camera()}, 800, 600)

	require.Len(t, f.Markers, 2)
	for _, m := range f.Markers {
		assert.InDelta(t, 400, m.X, 1e-3)
		assert.InDelta(t, 300, m.Y, 1e-3)
	}
}

func TestProject_MeshlessStub(t *testing.T) {
	p := pose.Identity()
	p.Orientation = mgl64.Vec3{0, 90, 0}

	v := scene.View{
		Camera: camera(),
		Items:  []scene.DrawItem{{Name: "tube", Pose: p, Selected: true}},
	}
	f := Project(v, 800, 600)

	require.Len(t, f.Segments, 1)
	s := f.Segments[0]
	assert.True(t, s.Selected)
	assert.InDelta(t, 400, s.X0, 1e-3)
	assert.InDelta(t, 300, s.Y0, 1e-3)
	assert.Greater(t, s.X1, s.X0, "stub points along +X")
}

func TestProject_MeshEdges(t *testing.T) {
	tri := &meshload.Mesh{
		Vertices: []mgl64.Vec3{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}},
		Indices:  []uint32{0, 1, 2},
	}
	v := scene.View{
		Camera: camera(),
		Items:  []scene.DrawItem{{Pose: pose.Identity(), Meshes: meshload.Set{tri}}},
	}
	f := Project(v, 800, 600)

	assert.Len(t, f.Segments, 3)
	for _, s := range f.Segments {
		assert.False(t, s.Selected)
	}
}

func TestProject_BehindCamera(t *testing.T) {
	v := scene.View{Camera: camera(), Pivot: mgl64.Vec3{0, 0, 200}, Target: mgl64.Vec3{0, 0, 0}}
	f := Project(v, 800, 600)

	require.Len(t, f.Markers, 1)
	assert.Equal(t, "target", f.Markers[0].Label)
}
