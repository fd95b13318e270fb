// Package transform holds the non-destructive flip/rotate view state and
// the interactive crop selector. Flip and rotation stay view-only until
// export or crop-apply bakes them into pixels.
package transform

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
)

// State is the composed flip/rotate view state. The UI steps rotation in
// 90-degree increments but the bake path handles arbitrary angles.
type State struct {
	FlipHorizontal  bool    `json:"flipHorizontal"`
	FlipVertical    bool    `json:"flipVertical"`
	RotationDegrees float64 `json:"rotationDegrees"`
}

// RotateClockwise advances rotation by one 90-degree step.
func (s *State) RotateClockwise() {
	s.RotationDegrees = math.Mod(s.RotationDegrees+90, 360)
}

// ToggleFlipHorizontal mirrors around the vertical axis.
func (s *State) ToggleFlipHorizontal() { s.FlipHorizontal = !s.FlipHorizontal }

// ToggleFlipVertical mirrors around the horizontal axis.
func (s *State) ToggleFlipVertical() { s.FlipVertical = !s.FlipVertical }

// Identity reports whether applying the state changes nothing.
func (s State) Identity() bool {
	return !s.FlipHorizontal && !s.FlipVertical && s.RotationDegrees == 0
}

// CSSTransform is the live-preview equivalent of Apply.
func (s State) CSSTransform() string {
	if s.Identity() {
		return "none"
	}
	var parts []string
	if s.RotationDegrees != 0 {
		parts = append(parts, fmt.Sprintf("rotate(%.4gdeg)", s.RotationDegrees))
	}
	sx, sy := 1, 1
	if s.FlipHorizontal {
		sx = -1
	}
	if s.FlipVertical {
		sy = -1
	}
	if sx != 1 || sy != 1 {
		parts = append(parts, fmt.Sprintf("scale(%d, %d)", sx, sy))
	}
	return strings.Join(parts, " ")
}

// Apply bakes the state into pixels: rotation about the center first, then
// the axis flips.
func (s State) Apply(src image.Image) *image.NRGBA {
	out := imaging.Clone(src)
	switch math.Mod(s.RotationDegrees, 360) {
	case 0:
	case 90:
		out = imaging.Rotate270(out) // 90 clockwise
	case 180:
		out = imaging.Rotate180(out)
	case 270:
		out = imaging.Rotate90(out) // 270 clockwise
	default:
		// imaging rotates counter-clockwise for positive angles.
		out = imaging.Rotate(out, -s.RotationDegrees, image.Transparent.C)
	}
	if s.FlipHorizontal {
		out = imaging.FlipH(out)
	}
	if s.FlipVertical {
		out = imaging.FlipV(out)
	}
	return out
}
