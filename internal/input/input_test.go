package input

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyCountFitsState(t *testing.T) {
	assert.LessOrEqual(t, int(keyCount), 64)
}

func TestKeyNames_RoundTrip(t *testing.T) {
	for _, k := range Keys() {
		require.NotEmpty(t, k.String())
		got, err := ParseKey(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	_, err := ParseKey("fly")
	assert.Error(t, err)
	assert.Equal(t, "key(200)", Key(200).String())
}

func TestState(t *testing.T) {
	s := Of(SelectTube, PosXPlus)

	assert.True(t, s.Pressed(SelectTube))
	assert.True(t, s.Pressed(PosXPlus))
	assert.False(t, s.Pressed(PosXMinus))
	assert.False(t, s.Empty())
	assert.True(t, State(0).Empty())
	assert.Equal(t, "[select.tube position.x+]", s.String())
}

func TestDefaultKeymap_CoversEveryKey(t *testing.T) {
	m := DefaultKeymap()
	for _, k := range Keys() {
		assert.NotEmpty(t, m[k], "no binding for %s", k)
	}
}

func TestDefaultKeymap_NoSharedBindings(t *testing.T) {
	owner := make(map[string]Key)
	for k, names := range DefaultKeymap() {
		for _, n := range names {
			prev, dup := owner[n]
			assert.False(t, dup, "%s bound to both %s and %s", n, prev, k)
			owner[n] = k
		}
	}
}

func TestKeymap_Resolve(t *testing.T) {
	m := DefaultKeymap()
	down := map[string]bool{"Digit2": true, "K": true, "Unbound": true}

	s := m.Resolve(func(name string) bool { return down[name] })

	assert.Equal(t, Of(SelectTube, PosXPlus), s)
}

func TestKeymap_Override(t *testing.T) {
	m := DefaultKeymap()
	require.NoError(t, m.Override(map[string][]string{
		"position.x+": {"Numpad6", "K"},
	}))
	assert.Equal(t, []string{"Numpad6", "K"}, m[PosXPlus])

	err := m.Override(map[string][]string{"jump": {"Space"}})
	assert.ErrorContains(t, err, "unknown key")
}

func TestKeymap_BackendKeys(t *testing.T) {
	m := Keymap{PosXPlus: {"K", "Numpad6"}, PosXMinus: {"I", "K"}}
	assert.Equal(t, []string{"I", "K", "Numpad6"}, m.BackendKeys())
}
