// Package timeline implements the video trim window, the playback
// controller that loops inside it, and the sequential thumbnail strip.
package timeline

import (
	"errors"
	"fmt"
)

// MinSpanSeconds is the smallest allowed trim window, preventing a
// degenerate clip. Clips shorter than this use their full duration.
const MinSpanSeconds = 1.0

var ErrInvalidDuration = errors.New("media duration must be positive")

// TrimState is the [start,end] window over the media's duration. The
// invariant 0 <= start <= end-minSpan && end <= duration holds after every
// mutation; setters clamp rather than reject.
type TrimState struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// NewTrimState covers the full duration.
func NewTrimState(duration float64) (*TrimState, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w (got %v)", ErrInvalidDuration, duration)
	}
	return &TrimState{Start: 0, End: duration, Duration: duration}, nil
}

// minSpan degrades gracefully for clips shorter than MinSpanSeconds.
func (t *TrimState) minSpan() float64 {
	if t.Duration < MinSpanSeconds {
		return t.Duration
	}
	return MinSpanSeconds
}

// SetStart moves the start handle, clamped to [0, end-minSpan].
func (t *TrimState) SetStart(v float64) {
	if v < 0 {
		v = 0
	}
	if max := t.End - t.minSpan(); v > max {
		v = max
	}
	if v < 0 {
		v = 0
	}
	t.Start = v
}

// SetEnd moves the end handle, clamped to [start+minSpan, duration].
func (t *TrimState) SetEnd(v float64) {
	if v > t.Duration {
		v = t.Duration
	}
	if min := t.Start + t.minSpan(); v < min {
		v = min
	}
	if v > t.Duration {
		v = t.Duration
	}
	t.End = v
}

// Span is the trimmed clip length.
func (t *TrimState) Span() float64 { return t.End - t.Start }

// Trimmed reports whether the window differs from the full duration.
func (t *TrimState) Trimmed() bool {
	return t.Start > 0 || t.End < t.Duration
}

// Clamp forces v into the window.
func (t *TrimState) Clamp(v float64) float64 {
	if v < t.Start {
		return t.Start
	}
	if v > t.End {
		return t.End
	}
	return v
}
