// Package swipe turns a horizontal drag on a profile card into a like or
// pass decision.
package swipe

import (
	"math"
	"time"

	"github.com/example/guilda/internal/models"
)

const (
	Threshold        = 100.0 // px a drag must exceed to resolve
	FlyOutOffset     = 400.0
	FlyOutDuration   = 300 * time.Millisecond
	MaxRotation      = 15.0 // degrees
	rotationDivisor  = 200.0
	indicatorDivisor = 100.0
)

type State int

const (
	Idle State = iota
	Dragging
	Releasing
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	case Releasing:
		return "releasing"
	}
	return "unknown"
}

// Tracker follows one card's gesture. The zero value is Idle.
type Tracker struct {
	state   State
	start   float64
	offset  float64
	pending models.Direction
}

func (t *Tracker) State() State    { return t.state }
func (t *Tracker) Offset() float64 { return t.offset }

// Press starts a drag at x. Ignored unless Idle.
func (t *Tracker) Press(x float64) {
	if t.state != Idle {
		return
	}
	t.state = Dragging
	t.start = x
	t.offset = 0
}

// Move updates the offset while dragging.
func (t *Tracker) Move(x float64) {
	if t.state != Dragging {
		return
	}
	t.offset = x - t.start
}

// Release ends the drag. Past the threshold the card flies out and the
// tracker waits in Releasing for Settle; otherwise it snaps back to Idle.
// The returned direction is the decision Settle will emit.
func (t *Tracker) Release() models.Direction {
	if t.state != Dragging {
		return models.DirectionNone
	}
	dir := Resolve(t.offset)
	if dir == models.DirectionNone {
		t.state = Idle
		t.offset = 0
		return models.DirectionNone
	}
	t.state = Releasing
	t.pending = dir
	if dir == models.DirectionRight {
		t.offset = FlyOutOffset
	} else {
		t.offset = -FlyOutOffset
	}
	return dir
}

// Settle finishes the fly-out and emits the decision.
func (t *Tracker) Settle() models.Direction {
	if t.state != Releasing {
		return models.DirectionNone
	}
	dir := t.pending
	t.state = Idle
	t.offset = 0
	t.pending = models.DirectionNone
	return dir
}

// Resolve maps a final offset to a decision.
func Resolve(offset float64) models.Direction {
	switch {
	case offset > Threshold:
		return models.DirectionRight
	case offset < -Threshold:
		return models.DirectionLeft
	}
	return models.DirectionNone
}

// Replay runs a whole gesture: press at points[0], move through the rest,
// release and settle.
func Replay(points []float64) models.Direction {
	if len(points) == 0 {
		return models.DirectionNone
	}
	var t Tracker
	t.Press(points[0])
	for _, x := range points[1:] {
		t.Move(x)
	}
	t.Release()
	return t.Settle()
}

// Rotation is the card tilt in degrees for offset.
func Rotation(offset float64) float64 {
	return clamp(offset/rotationDivisor*MaxRotation, -MaxRotation, MaxRotation)
}

// LikeOpacity is the "like" stamp opacity in [0, 1].
func LikeOpacity(offset float64) float64 {
	return clamp(offset/indicatorDivisor, 0, 1)
}

// PassOpacity is the "pass" stamp opacity in [0, 1].
func PassOpacity(offset float64) float64 {
	return clamp(-offset/indicatorDivisor, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
