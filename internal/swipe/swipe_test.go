package swipe

import (
	"math"
	"testing"
	"testing/quick"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/guilda/internal/models"
)

func drag(t *testing.T, offset float64) (*Tracker, models.Direction) {
	t.Helper()
	var tr Tracker
	tr.Press(10)
	tr.Move(10 + offset/2)
	tr.Move(10 + offset)
	return &tr, tr.Release()
}

func TestSwipeScenarios(t *testing.T) {
	tr, dir := drag(t, 150)
	assert.Equal(t, models.DirectionRight, dir)
	assert.Equal(t, Releasing, tr.State())
	assert.Equal(t, FlyOutOffset, tr.Offset())
	assert.Equal(t, models.DirectionRight, tr.Settle())
	assert.Equal(t, Idle, tr.State())
	assert.Equal(t, 0.0, tr.Offset())

	tr, dir = drag(t, -150)
	assert.Equal(t, models.DirectionLeft, dir)
	assert.Equal(t, -FlyOutOffset, tr.Offset())
	assert.Equal(t, models.DirectionLeft, tr.Settle())

	tr, dir = drag(t, 60)
	assert.Equal(t, models.DirectionNone, dir)
	assert.Equal(t, Idle, tr.State())
	assert.Equal(t, 0.0, tr.Offset())
	assert.Equal(t, models.DirectionNone, tr.Settle())
}

func TestSwipeThresholdIsExclusive(t *testing.T) {
	_, dir := drag(t, 100)
	assert.Equal(t, models.DirectionNone, dir)
	_, dir = drag(t, -100)
	assert.Equal(t, models.DirectionNone, dir)
	_, dir = drag(t, 100.5)
	assert.Equal(t, models.DirectionRight, dir)
}

func TestTrackerIgnoresOutOfOrderEvents(t *testing.T) {
	var tr Tracker
	tr.Move(300)
	assert.Equal(t, 0.0, tr.Offset())
	assert.Equal(t, models.DirectionNone, tr.Release())

	tr.Press(0)
	tr.Move(200)
	tr.Release()
	tr.Press(50) // still releasing
	tr.Move(-500)
	assert.Equal(t, Releasing, tr.State())
	assert.Equal(t, FlyOutOffset, tr.Offset())
	assert.Equal(t, models.DirectionRight, tr.Settle())
}

func TestResolveMatchesSign(t *testing.T) {
	prop := func(offset float64) bool {
		if math.IsNaN(offset) {
			return true
		}
		got := Replay([]float64{0, offset})
		switch {
		case offset > Threshold:
			return got == models.DirectionRight
		case offset < -Threshold:
			return got == models.DirectionLeft
		default:
			return got == models.DirectionNone
		}
	}
	require.NoError(t, quick.Check(prop, nil))
	for _, o := range []float64{-150, -101, -100, 0, 60, 100, 101, 150} {
		assert.True(t, prop(o), "offset %v", o)
	}
}

func TestReplayEmpty(t *testing.T) {
	assert.Equal(t, models.DirectionNone, Replay(nil))
	assert.Equal(t, models.DirectionNone, Replay([]float64{42}))
}

func TestRotationClamped(t *testing.T) {
	assert.Equal(t, 0.0, Rotation(0))
	assert.InDelta(t, 7.5, Rotation(100), 1e-9)
	assert.InDelta(t, -7.5, Rotation(-100), 1e-9)
	assert.Equal(t, 15.0, Rotation(200))
	assert.Equal(t, 15.0, Rotation(5000))
	assert.Equal(t, -15.0, Rotation(-5000))

	prop := func(offset float64) bool {
		r := Rotation(offset)
		return r >= -MaxRotation && r <= MaxRotation
	}
	require.NoError(t, quick.Check(prop, nil))
}

func TestIndicatorOpacity(t *testing.T) {
	assert.Equal(t, 0.0, LikeOpacity(-50))
	assert.InDelta(t, 0.5, LikeOpacity(50), 1e-9)
	assert.Equal(t, 1.0, LikeOpacity(400))
	assert.Equal(t, 0.0, PassOpacity(50))
	assert.InDelta(t, 0.6, PassOpacity(-60), 1e-9)
	assert.Equal(t, 1.0, PassOpacity(-400))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "dragging", Dragging.String())
	assert.Equal(t, "unknown", State(9).String())
}
