// Package session owns the per-edit orchestration: one EditSession is the
// root aggregate for one editing pass, and the Registry tracks the live
// ones.
package session

import "fmt"

// Screen is the session's position in the editing flow.
type Screen string

const (
	ScreenSelecting  Screen = "selecting"
	ScreenEditing    Screen = "editing"
	ScreenExporting  Screen = "exporting"
	ScreenPublishing Screen = "publishing"
	ScreenClosed     Screen = "closed"
)

// Valid reports whether s is a known screen.
func (s Screen) Valid() bool {
	switch s {
	case ScreenSelecting, ScreenEditing, ScreenExporting, ScreenPublishing, ScreenClosed:
		return true
	}
	return false
}

func (s Screen) String() string { return string(s) }

// CanTransitionTo enumerates the legal screen flow. Closing is legal from
// anywhere; a failed export or publish falls back one screen.
func (s Screen) CanTransitionTo(next Screen) bool {
	if next == ScreenClosed {
		return true
	}
	switch s {
	case ScreenSelecting:
		return next == ScreenEditing
	case ScreenEditing:
		return next == ScreenExporting
	case ScreenExporting:
		return next == ScreenEditing || next == ScreenPublishing
	case ScreenPublishing:
		return next == ScreenEditing
	default:
		return false
	}
}

// ErrScreenState rejects an operation not legal on the current screen.
type ErrScreenState struct {
	Current Screen
	Op      string
}

func (e *ErrScreenState) Error() string {
	return fmt.Sprintf("cannot %s while session is %s", e.Op, e.Current)
}
