package headless

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/surgisim/fusion/internal/input"
	"github.com/surgisim/fusion/internal/scene"
)

func TestPollInput_ReplaysScript(t *testing.T) {
	c := New()
	c.Press(input.Of(input.SelectTube))
	c.Hold(input.Of(input.PosXPlus), 2)
	assert.Equal(t, 3, c.Pending())

	assert.Equal(t, input.Of(input.SelectTube), c.PollInput())
	assert.Equal(t, input.Of(input.PosXPlus), c.PollInput())
	assert.Equal(t, input.Of(input.PosXPlus), c.PollInput())
	assert.True(t, c.PollInput().Empty(), "exhausted script holds nothing")
}

func TestShouldClose_FrameLimit(t *testing.T) {
	c := New(WithFrameLimit(2))
	assert.False(t, c.ShouldClose())

	require.NoError(t, c.Draw(scene.View{Frame: 1}))
	assert.False(t, c.ShouldClose())
	require.NoError(t, c.Draw(scene.View{Frame: 2}))
	assert.True(t, c.ShouldClose())
	assert.Equal(t, uint64(2), c.Frames())
}

func TestStop(t *testing.T) {
	c := New()
	assert.False(t, c.ShouldClose())
	c.Stop()
	assert.True(t, c.ShouldClose())
}

func TestViews_History(t *testing.T) {
	c := New(WithHistory(2))
	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, c.Draw(scene.View{Frame: i}))
	}

	views := c.Views()
	require.Len(t, views, 2)
	assert.Equal(t, uint64(2), views[0].Frame)
	assert.Equal(t, uint64(3), views[1].Frame)

	assert.Empty(t, New().Views(), "no history by default")
}
