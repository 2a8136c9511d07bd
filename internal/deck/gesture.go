package deck

import (
	"math"
	"time"
)

// DragFrame is the card transform for one drag position.
type DragFrame struct {
	DX          float64 `json:"dx"`
	DY          float64 `json:"dy"`
	Rotation    float64 `json:"rotation"` // degrees
	LikeOpacity float64 `json:"likeOpacity"`
	PassOpacity float64 `json:"passOpacity"`
}

type dragState struct {
	startX, startY float64
	startT         time.Time
}

// DragStart begins tracking a gesture. Ignored while locked or when the deck is empty.
func (e *Engine) DragStart(x, y float64, t time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.locked || e.cursor >= len(e.queue) {
		return false
	}
	e.drag = &dragState{startX: x, startY: y, startT: t}
	return true
}

// DragMove renders the card following the pointer. Returns false without a drag in progress.
func (e *Engine) DragMove(x, y float64, t time.Time) (DragFrame, bool) {
	e.mu.Lock()
	d := e.drag
	e.mu.Unlock()
	if d == nil {
		return DragFrame{}, false
	}

	frame := NewDragFrame(x-d.startX, y-d.startY)
	e.renderer.RenderDrag(frame)
	return frame, true
}

// DragEnd finishes the gesture. It commits a swipe when the card travelled past
// SwipeThreshold of the card width or moved faster than VelocityThreshold;
// otherwise the card is reset to the centre.
func (e *Engine) DragEnd(x, y float64, t time.Time) (Direction, bool) {
	e.mu.Lock()
	d := e.drag
	e.drag = nil
	width := e.cardWidth
	e.mu.Unlock()
	if d == nil {
		return "", false
	}

	dx := x - d.startX
	if !ShouldCommit(dx, t.Sub(d.startT), width) {
		e.renderer.RenderReset()
		return "", false
	}

	direction := Left
	if dx > 0 {
		direction = Right
	}
	if !e.completeSwipe(direction) {
		e.renderer.RenderReset()
		return "", false
	}
	return direction, true
}

// NewDragFrame computes rotation and indicator opacities for an offset.
func NewDragFrame(dx, dy float64) DragFrame {
	rotation := math.Max(-MaxRotation, math.Min(MaxRotation, dx*RotationPerPixel))

	frame := DragFrame{DX: dx, DY: dy, Rotation: rotation}
	if dx > 0 {
		frame.LikeOpacity = indicatorOpacity(dx)
	} else {
		frame.PassOpacity = indicatorOpacity(-dx)
	}
	return frame
}

func indicatorOpacity(distance float64) float64 {
	if distance <= IndicatorStart {
		return 0
	}
	return math.Min(1, (distance-IndicatorStart)/(IndicatorFull-IndicatorStart))
}

// ShouldCommit applies the distance and velocity thresholds. Elapsed time under
// one millisecond counts as one millisecond.
func ShouldCommit(dx float64, elapsed time.Duration, cardWidth float64) bool {
	distance := math.Abs(dx)
	if distance == 0 {
		return false
	}
	if distance > SwipeThreshold*cardWidth {
		return true
	}

	ms := float64(elapsed) / float64(time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return distance/ms > VelocityThreshold
}
