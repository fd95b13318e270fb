// internal/filter/transform.go
package filter

import (
	"fmt"
	"math"
	"strings"
)

// ColorMatrix is an affine transform over normalized RGB: for each row,
// out = m[0]*r + m[1]*g + m[2]*b + m[3]. Alpha is untouched.
type ColorMatrix [3][4]float64

// Identity returns the no-op matrix.
func Identity() ColorMatrix {
	return ColorMatrix{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
	}
}

// Mul composes two matrices so that applying the result equals applying m
// first, then n.
func (m ColorMatrix) Mul(n ColorMatrix) ColorMatrix {
	var out ColorMatrix
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			out[r][c] = n[r][0]*m[0][c] + n[r][1]*m[1][c] + n[r][2]*m[2][c]
		}
		out[r][3] = n[r][0]*m[0][3] + n[r][1]*m[1][3] + n[r][2]*m[2][3] + n[r][3]
	}
	return out
}

// IsIdentity reports whether the matrix is the identity within epsilon.
func (m ColorMatrix) IsIdentity() bool {
	id := Identity()
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			if math.Abs(m[r][c]-id[r][c]) > 1e-9 {
				return false
			}
		}
	}
	return true
}

// Rec. 709-ish luminance weights used by the CSS filter matrices.
const (
	lumR = 0.2126
	lumG = 0.7152
	lumB = 0.0722
)

func brightnessMatrix(a float64) ColorMatrix {
	return ColorMatrix{
		{a, 0, 0, 0},
		{0, a, 0, 0},
		{0, 0, a, 0},
	}
}

func contrastMatrix(a float64) ColorMatrix {
	off := (1 - a) / 2
	return ColorMatrix{
		{a, 0, 0, off},
		{0, a, 0, off},
		{0, 0, a, off},
	}
}

func saturateMatrix(s float64) ColorMatrix {
	return ColorMatrix{
		{lumR + (1-lumR)*s, lumG * (1 - s), lumB * (1 - s), 0},
		{lumR * (1 - s), lumG + (1-lumG)*s, lumB * (1 - s), 0},
		{lumR * (1 - s), lumG * (1 - s), lumB + (1-lumB)*s, 0},
	}
}

func grayscaleMatrix(g float64) ColorMatrix {
	return saturateMatrix(1 - g)
}

// sepiaMatrix interpolates identity toward the full sepia matrix.
func sepiaMatrix(s float64) ColorMatrix {
	full := ColorMatrix{
		{0.393, 0.769, 0.189, 0},
		{0.349, 0.686, 0.168, 0},
		{0.272, 0.534, 0.131, 0},
	}
	id := Identity()
	var out ColorMatrix
	for r := 0; r < 3; r++ {
		for c := 0; c < 4; c++ {
			out[r][c] = id[r][c] + (full[r][c]-id[r][c])*s
		}
	}
	return out
}

func hueRotateMatrix(deg float64) ColorMatrix {
	rad := deg * math.Pi / 180
	cos, sin := math.Cos(rad), math.Sin(rad)
	return ColorMatrix{
		{lumR + cos*(1-lumR) - sin*lumR, lumG - cos*lumG - sin*lumG, lumB - cos*lumB + sin*(1-lumB), 0},
		{lumR - cos*lumR + sin*0.143, lumG + cos*(1-lumG) + sin*0.140, lumB - cos*lumB - sin*0.283, 0},
		{lumR - cos*lumR - sin*(1-lumR), lumG - cos*lumG + sin*lumG, lumB + cos*(1-lumB) + sin*lumB, 0},
	}
}

func opMatrix(op Op, magnitude float64) ColorMatrix {
	switch op {
	case OpBrightness:
		return brightnessMatrix(magnitude)
	case OpContrast:
		return contrastMatrix(magnitude)
	case OpSaturate:
		return saturateMatrix(magnitude)
	case OpSepia:
		return sepiaMatrix(magnitude)
	case OpGrayscale:
		return grayscaleMatrix(magnitude)
	case OpHueRotate:
		return hueRotateMatrix(magnitude)
	default:
		panic(fmt.Sprintf("filter: unknown op %q", op))
	}
}

// neutral returns the magnitude at which an op has no visual effect.
func neutral(op Op) float64 {
	switch op {
	case OpBrightness, OpContrast, OpSaturate:
		return 1
	default:
		return 0
	}
}

// Transform is the composed result of a filter at a given intensity. The
// same descriptor drives both render paths: CSS feeds the live preview,
// Matrix feeds rasterization.
type Transform struct {
	FilterID    string
	Intensity   int
	Adjustments []Adjustment
	Matrix      ColorMatrix
	CSS         string
}

// Neutral reports whether applying the transform changes nothing.
func (t Transform) Neutral() bool {
	return len(t.Adjustments) == 0
}

// ComputeTransform interpolates the filter's base transform toward its
// target by intensity/100. Intensity is clamped to [0,100]; "normal"
// short-circuits to the identity. Unknown ids panic (see Describe).
func ComputeTransform(id string, intensity int) Transform {
	if intensity < 0 {
		intensity = 0
	}
	if intensity > 100 {
		intensity = 100
	}
	d := Describe(id)
	t := Transform{FilterID: id, Intensity: intensity, Matrix: Identity(), CSS: "none"}
	if id == Normal || intensity == 0 {
		return t
	}

	frac := float64(intensity) / 100
	adj := make([]Adjustment, 0, len(d.BaseTransform))
	var css strings.Builder
	for _, a := range d.BaseTransform {
		n := neutral(a.Op)
		mag := n + (a.Magnitude-n)*frac
		adj = append(adj, Adjustment{Op: a.Op, Magnitude: mag})
		t.Matrix = t.Matrix.Mul(opMatrix(a.Op, mag))
		if css.Len() > 0 {
			css.WriteByte(' ')
		}
		if a.Op == OpHueRotate {
			fmt.Fprintf(&css, "hue-rotate(%.4gdeg)", mag)
		} else {
			fmt.Fprintf(&css, "%s(%.4g)", a.Op, mag)
		}
	}
	t.Adjustments = adj
	t.CSS = css.String()
	return t
}
