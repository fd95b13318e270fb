// internal/layer/gesture.go
package layer

import (
	"fmt"
	"math"
)

// GesturePhase is the explicit state of the per-selection gesture machine.
// Exactly one gesture can be active at a time; begin captures the initial
// pose and end commits whatever the last update produced.
type GesturePhase string

const (
	GestureIdle     GesturePhase = "idle"
	GestureDragging GesturePhase = "dragging"
	GestureRotating GesturePhase = "rotating"
	GestureResizing GesturePhase = "resizing"
)

// Point is a pointer position in canvas pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type gestureState struct {
	phase GesturePhase

	startPointer Point
	startPose    Pose
	// rotation: angle from layer center to the pointer at gesture start
	startAngle float64
	// resize: distance from layer center to the pointer at gesture start
	startDist float64
}

// GesturePhaseOf returns the current phase.
func (m *Manager) GesturePhase() GesturePhase {
	if m.gesture.phase == "" {
		return GestureIdle
	}
	return m.gesture.phase
}

// BeginGesture starts a drag, rotate, or resize on the selected layer.
func (m *Manager) BeginGesture(phase GesturePhase, pointer Point) error {
	l := m.Selected()
	if l == nil {
		return ErrNoSelection
	}
	if m.editing {
		return ErrGestureActive
	}
	if m.gesture.phase != GestureIdle && m.gesture.phase != "" {
		return ErrGestureActive
	}
	switch phase {
	case GestureDragging, GestureRotating, GestureResizing:
	default:
		return fmt.Errorf("begin gesture: invalid phase %q", phase)
	}

	g := gestureState{
		phase:        phase,
		startPointer: pointer,
		startPose:    l.Pose,
	}
	dx := pointer.X - l.Pose.X
	dy := pointer.Y - l.Pose.Y
	g.startAngle = math.Atan2(dy, dx)
	g.startDist = math.Hypot(dx, dy)
	if g.startDist < 1 {
		g.startDist = 1
	}
	m.gesture = g
	return nil
}

// UpdateGesture feeds a pointer move into the active gesture, mutating the
// selected layer's pose for continuous visual feedback.
func (m *Manager) UpdateGesture(pointer Point) error {
	l := m.Selected()
	if l == nil {
		return ErrNoSelection
	}
	g := &m.gesture
	switch g.phase {
	case GestureDragging:
		l.Pose.X = g.startPose.X + (pointer.X - g.startPointer.X)
		l.Pose.Y = g.startPose.Y + (pointer.Y - g.startPointer.Y)
	case GestureRotating:
		angle := math.Atan2(pointer.Y-l.Pose.Y, pointer.X-l.Pose.X)
		delta := (angle - g.startAngle) * 180 / math.Pi
		l.Pose.RotationDegrees = normalizeDegrees(g.startPose.RotationDegrees + delta)
	case GestureResizing:
		dist := math.Hypot(pointer.X-l.Pose.X, pointer.Y-l.Pose.Y)
		l.Pose.Scale = clampScale(g.startPose.Scale * dist / g.startDist)
	default:
		return ErrNoGesture
	}
	return nil
}

// EndGesture commits the pose as-is and returns the machine to idle.
func (m *Manager) EndGesture() error {
	if m.gesture.phase == GestureIdle || m.gesture.phase == "" {
		return ErrNoGesture
	}
	m.gesture = gestureState{}
	return nil
}

// CancelGesture restores the pose captured at gesture start.
func (m *Manager) CancelGesture() error {
	g := m.gesture
	if g.phase == GestureIdle || g.phase == "" {
		return ErrNoGesture
	}
	if l := m.Selected(); l != nil {
		l.Pose = g.startPose
	}
	m.gesture = gestureState{}
	return nil
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}
