// internal/timeline/playback.go
package timeline

import (
	"errors"
	"time"
)

// PlayState is the playback controller's explicit state. Loose booleans
// (isDragging, isScrubbing) are deliberately avoided: one enum, exhaustive
// transitions.
type PlayState string

const (
	StateIdle          PlayState = "idle"
	StatePlaying       PlayState = "playing"
	StatePaused        PlayState = "paused"
	StateDraggingStart PlayState = "dragging-start"
	StateDraggingEnd   PlayState = "dragging-end"
	StateScrubbing     PlayState = "scrubbing"
)

var (
	ErrNotDragging  = errors.New("no trim-handle drag active")
	ErrNotScrubbing = errors.New("no scrub active")
	ErrDragActive   = errors.New("a drag or scrub is already active")
)

// Controller owns the playhead and enforces the loop-within-trim-window
// semantics: most playback backends cannot natively loop a sub-range, so a
// polling tick checks for overruns and seeks back to the trim start.
type Controller struct {
	trim     *TrimState
	state    PlayState
	playhead float64
	now      func() time.Time
	lastTick time.Time
	loops    int
}

// NewController wires a controller to a trim window. now is injectable for
// tests; nil uses the wall clock.
func NewController(trim *TrimState, now func() time.Time) *Controller {
	if now == nil {
		now = time.Now
	}
	return &Controller{trim: trim, state: StateIdle, playhead: trim.Start, now: now}
}

// State returns the current machine state.
func (c *Controller) State() PlayState { return c.state }

// Playhead returns the current position, always inside the trim window.
func (c *Controller) Playhead() float64 { return c.playhead }

// Loops counts how many times playback has wrapped end -> start.
func (c *Controller) Loops() int { return c.loops }

// TogglePlay flips between playing and paused. Starting from idle begins
// at the trim start.
func (c *Controller) TogglePlay() error {
	switch c.state {
	case StateIdle:
		c.playhead = c.trim.Start
		c.state = StatePlaying
		c.lastTick = c.now()
		return nil
	case StatePaused:
		c.state = StatePlaying
		c.lastTick = c.now()
		return nil
	case StatePlaying:
		c.state = StatePaused
		return nil
	default:
		return ErrDragActive
	}
}

// BeginDragStart grabs the trim-start handle; playback pauses if running.
func (c *Controller) BeginDragStart() error { return c.beginDrag(StateDraggingStart) }

// BeginDragEnd grabs the trim-end handle.
func (c *Controller) BeginDragEnd() error { return c.beginDrag(StateDraggingEnd) }

func (c *Controller) beginDrag(target PlayState) error {
	switch c.state {
	case StateIdle, StatePaused, StatePlaying:
		c.state = target
		return nil
	default:
		return ErrDragActive
	}
}

// Drag moves the grabbed handle to seconds, clamped by the trim
// invariants; the playhead is re-clamped into the window afterwards.
func (c *Controller) Drag(seconds float64) error {
	switch c.state {
	case StateDraggingStart:
		c.trim.SetStart(seconds)
	case StateDraggingEnd:
		c.trim.SetEnd(seconds)
	default:
		return ErrNotDragging
	}
	c.playhead = c.trim.Clamp(c.playhead)
	return nil
}

// EndDrag releases the handle; the controller lands in paused.
func (c *Controller) EndDrag() error {
	switch c.state {
	case StateDraggingStart, StateDraggingEnd:
		c.state = StatePaused
		return nil
	default:
		return ErrNotDragging
	}
}

// BeginScrub starts a playhead scrub, seeking immediately.
func (c *Controller) BeginScrub(seconds float64) error {
	switch c.state {
	case StateIdle, StatePaused, StatePlaying:
		c.state = StateScrubbing
		c.playhead = c.trim.Clamp(seconds)
		return nil
	default:
		return ErrDragActive
	}
}

// Scrub moves the playhead while scrubbing.
func (c *Controller) Scrub(seconds float64) error {
	if c.state != StateScrubbing {
		return ErrNotScrubbing
	}
	c.playhead = c.trim.Clamp(seconds)
	return nil
}

// EndScrub releases the scrub into paused.
func (c *Controller) EndScrub() error {
	if c.state != StateScrubbing {
		return ErrNotScrubbing
	}
	c.state = StatePaused
	return nil
}

// Tick advances the playhead by wall-clock elapsed time while playing and
// realizes the loop: overrunning the trim end seeks back to the start,
// never pausing. Call it from a short-interval poll.
func (c *Controller) Tick() {
	if c.state != StatePlaying {
		return
	}
	now := c.now()
	elapsed := now.Sub(c.lastTick).Seconds()
	c.lastTick = now
	if elapsed <= 0 {
		return
	}
	c.playhead += elapsed
	if c.playhead >= c.trim.End {
		span := c.trim.Span()
		if span <= 0 {
			c.playhead = c.trim.Start
			c.loops++
			return
		}
		for c.playhead >= c.trim.End {
			c.playhead -= span
			c.loops++
		}
		if c.playhead < c.trim.Start {
			c.playhead = c.trim.Start
		}
	}
	if c.playhead < c.trim.Start {
		c.playhead = c.trim.Start
	}
}
