package meshload

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tubeOBJ = `# tube
mtllib tube.mtl
o tube
v 0 0 0
v 1 0 0
v 1 1 0
v 0 1 0
usemtl steel
f 1/1/1 2/2/1 3/3/1 4/4/1
`

const tubeMTL = `newmtl steel
Kd 0.8 0.8 0.8
map_Kd steel.png
`

func TestDecode_QuadIsFanned(t *testing.T) {
	set, mtllib, err := Decode(strings.NewReader(tubeOBJ), "fallback")
	require.NoError(t, err)
	require.Len(t, set, 1)

	m := set[0]
	assert.Equal(t, "tube.mtl", mtllib)
	assert.Equal(t, "tube", m.Name)
	assert.Equal(t, "steel", m.Material)
	assert.Len(t, m.Vertices, 4)
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3}, m.Indices)
	assert.Len(t, m.Edges(), 6)
	assert.False(t, m.Empty())
}

func TestDecode_DefaultNameAndNegativeIndices(t *testing.T) {
	src := "v 0 0 0\nv 0 0 1\nv 0 1 1\nf -3 -2 -1\n"
	set, _, err := Decode(strings.NewReader(src), "endoscope")
	require.NoError(t, err)
	require.Len(t, set, 1)

	assert.Equal(t, "endoscope", set[0].Name)
	assert.Equal(t, []uint32{0, 1, 2}, set[0].Indices)
	assert.Equal(t, mgl64.Vec3{0, 1, 1}, set[0].Vertices[2])
}

func TestDecode_Malformed(t *testing.T) {
	cases := map[string]string{
		"bad vertex":   "v 0 zero 0\n",
		"short vertex": "v 0 0\n",
		"bad index":    "v 0 0 0\nv 1 0 0\nv 1 1 0\nf 1 2 9\n",
		"short face":   "v 0 0 0\nf 1 1\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode(strings.NewReader(src), "x")
			assert.ErrorIs(t, err, ErrAssetLoad)
		})
	}
}

func TestDecode_SkipsMeshesWithoutFaces(t *testing.T) {
	src := "o empty\nv 0 0 0\nv 1 0 0\nv 0 1 0\no full\nf 1 2 3\n"
	set, _, err := Decode(strings.NewReader(src), "x")
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "full", set[0].Name)
}

func TestLoad_AttachesTextures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tube.obj"), []byte(tubeOBJ), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tube.mtl"), []byte(tubeMTL), 0644))

	set, err := Load(filepath.Join(dir, "tube.obj"))
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, []string{"steel.png"}, set[0].Textures)
}

func TestLoad_MissingMaterialLibraryIsNotFatal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tube.obj"), []byte(tubeOBJ), 0644))

	set, err := Load(filepath.Join(dir, "tube.obj"))
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Empty(t, set[0].Textures)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.obj"))
	assert.ErrorIs(t, err, ErrAssetLoad)
}

func TestLoadOrEmpty_LogsAndReturnsEmptySet(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	set := LoadOrEmpty(logger, filepath.Join(t.TempDir(), "nope.obj"))

	assert.NotNil(t, set)
	assert.Empty(t, set)
	assert.Contains(t, buf.String(), "Failed to load model")
}

func TestMesh_EmptyNil(t *testing.T) {
	var m *Mesh
	assert.True(t, m.Empty())
}
