// internal/filter/apply.go
package filter

import (
	"image"

	"github.com/disintegration/imaging"
)

// Apply bakes the filter into pixels and returns a new image. The source is
// never modified. A neutral transform returns a plain clone so callers can
// treat the result as owned either way.
func Apply(src image.Image, id string, intensity int) *image.NRGBA {
	return ApplyTransform(src, ComputeTransform(id, intensity))
}

// ApplyTransform applies an already-computed transform.
func ApplyTransform(src image.Image, t Transform) *image.NRGBA {
	dst := imaging.Clone(src)
	if t.Neutral() || t.Matrix.IsIdentity() {
		return dst
	}

	m := t.Matrix
	// Precompute the matrix scaled to byte range; offsets live in 0..255.
	var off [3]float64
	for r := 0; r < 3; r++ {
		off[r] = m[r][3] * 255
	}

	px := dst.Pix
	for i := 0; i < len(px); i += 4 {
		r := float64(px[i])
		g := float64(px[i+1])
		b := float64(px[i+2])
		px[i] = clamp8(m[0][0]*r + m[0][1]*g + m[0][2]*b + off[0])
		px[i+1] = clamp8(m[1][0]*r + m[1][1]*g + m[1][2]*b + off[1])
		px[i+2] = clamp8(m[2][0]*r + m[2][1]*g + m[2][2]*b + off[2])
	}
	return dst
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
