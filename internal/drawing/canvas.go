// Package drawing implements the freehand annotation surface: brush and
// eraser strokes rendered as disc-stamped segments (round caps and joins
// fall out of the stamping), with a bounded undo/redo history of
// full-canvas snapshots.
package drawing

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// Tool selects how strokes hit the canvas.
type Tool string

const (
	ToolBrush  Tool = "brush"  // source-over paint
	ToolEraser Tool = "eraser" // destination-out: clears alpha along the path
)

// Brush is the current tool state. It is read at every stroke segment, so
// changing it mid-stroke takes effect immediately.
type Brush struct {
	Tool    Tool    `json:"tool"`
	SizePx  float64 `json:"sizePx"`
	Color   string  `json:"color"`
	Opacity float64 `json:"opacity"`
}

// Point is a pointer position in canvas pixel space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

var (
	ErrStrokeInProgress = errors.New("stroke already in progress")
	ErrNoStroke         = errors.New("no stroke in progress")
)

// Canvas is the annotation surface. Not safe for concurrent use; the
// session serializes access.
type Canvas struct {
	img      *image.NRGBA
	brush    Brush
	history  *history
	stroking bool
	last     Point
}

// NewCanvas returns an empty transparent canvas of the given size with the
// default brush.
func NewCanvas(width, height int) (*Canvas, error) {
	if width < 1 || height < 1 {
		return nil, fmt.Errorf("canvas size %dx%d invalid", width, height)
	}
	return &Canvas{
		img:     image.NewNRGBA(image.Rect(0, 0, width, height)),
		brush:   Brush{Tool: ToolBrush, SizePx: 8, Color: "#ffffff", Opacity: 1},
		history: newHistory(maxHistoryDepth),
	}, nil
}

// Clone returns an independent copy of the pixels and brush for rendering
// outside the session lock. History and any open stroke do not carry over.
func (c *Canvas) Clone() *Canvas {
	b := c.img.Bounds()
	img := image.NewNRGBA(b)
	copy(img.Pix, c.img.Pix)
	return &Canvas{
		img:     img,
		brush:   c.brush,
		history: newHistory(maxHistoryDepth),
	}
}

// SetBrush updates the tool state, clamping size and opacity.
func (c *Canvas) SetBrush(b Brush) error {
	if b.Tool != ToolBrush && b.Tool != ToolEraser {
		return fmt.Errorf("unknown tool %q", b.Tool)
	}
	if b.SizePx < 1 {
		b.SizePx = 1
	}
	if b.SizePx > 120 {
		b.SizePx = 120
	}
	if b.Opacity < 0 {
		b.Opacity = 0
	}
	if b.Opacity > 1 {
		b.Opacity = 1
	}
	if b.Color == "" {
		b.Color = c.brush.Color
	}
	c.brush = b
	return nil
}

// CurrentBrush returns the current tool state.
func (c *Canvas) CurrentBrush() Brush { return c.brush }

// StartStroke begins a stroke at p and stamps its first cap.
func (c *Canvas) StartStroke(p Point) error {
	if c.stroking {
		return ErrStrokeInProgress
	}
	c.stroking = true
	c.last = p
	c.stamp(p)
	return nil
}

// ContinueStroke extends the stroke to p. Brush state is re-read here, so a
// mid-stroke color or size change is honored from this segment on.
func (c *Canvas) ContinueStroke(p Point) error {
	if !c.stroking {
		return ErrNoStroke
	}
	c.segment(c.last, p)
	c.last = p
	return nil
}

// EndStroke commits the stroke by pushing a full-canvas snapshot. Any redo
// entries beyond the current index are discarded first.
func (c *Canvas) EndStroke() error {
	if !c.stroking {
		return ErrNoStroke
	}
	c.stroking = false
	return c.history.push(c.img)
}

// Undo steps one snapshot back; at index -1 the canvas is empty.
func (c *Canvas) Undo() bool {
	img, ok := c.history.undo()
	if !ok {
		return false
	}
	c.restore(img)
	return true
}

// Redo steps one snapshot forward if available.
func (c *Canvas) Redo() bool {
	img, ok := c.history.redo()
	if !ok {
		return false
	}
	c.restore(img)
	return true
}

// Clear wipes the canvas and records the wipe as a history entry so it can
// be undone.
func (c *Canvas) Clear() error {
	if c.stroking {
		return ErrStrokeInProgress
	}
	for i := range c.img.Pix {
		c.img.Pix[i] = 0
	}
	return c.history.push(c.img)
}

// HasDrawing reports whether any pixel carries paint.
func (c *Canvas) HasDrawing() bool {
	for i := 3; i < len(c.img.Pix); i += 4 {
		if c.img.Pix[i] != 0 {
			return true
		}
	}
	return false
}

// Image exposes the raw surface for compositing. Callers must not mutate.
func (c *Canvas) Image() *image.NRGBA { return c.img }

// RenderRaster composites the drawing over base, resampling to base's
// resolution.
func (c *Canvas) RenderRaster(base image.Image) *image.NRGBA {
	b := base.Bounds()
	overlay := c.img
	if overlay.Bounds().Dx() != b.Dx() || overlay.Bounds().Dy() != b.Dy() {
		overlay = imaging.Resize(overlay, b.Dx(), b.Dy(), imaging.Lanczos)
	}
	return imaging.Overlay(base, overlay, image.Point{}, 1)
}

func (c *Canvas) restore(img *image.NRGBA) {
	if img == nil {
		for i := range c.img.Pix {
			c.img.Pix[i] = 0
		}
		return
	}
	copy(c.img.Pix, img.Pix)
}

// segment stamps discs from a to b at sub-radius spacing so joins stay
// seamless.
func (c *Canvas) segment(a, b Point) {
	dist := math.Hypot(b.X-a.X, b.Y-a.Y)
	step := c.brush.SizePx / 4
	if step < 0.5 {
		step = 0.5
	}
	n := int(dist/step) + 1
	for i := 1; i <= n; i++ {
		t := float64(i) / float64(n)
		c.stamp(Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t})
	}
}

func (c *Canvas) stamp(p Point) {
	r := c.brush.SizePx / 2
	if r < 0.5 {
		r = 0.5
	}
	var cr, cg, cb uint8 = 255, 255, 255
	if col, err := parseColor(c.brush.Color); err == nil {
		cr, cg, cb = col[0], col[1], col[2]
	}
	alpha := c.brush.Opacity

	minX := int(math.Floor(p.X - r))
	maxX := int(math.Ceil(p.X + r))
	minY := int(math.Floor(p.Y - r))
	maxY := int(math.Ceil(p.Y + r))
	bounds := c.img.Bounds()

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
				continue
			}
			dx := float64(x) + 0.5 - p.X
			dy := float64(y) + 0.5 - p.Y
			if dx*dx+dy*dy > r*r {
				continue
			}
			i := c.img.PixOffset(x, y)
			if c.brush.Tool == ToolEraser {
				c.img.Pix[i+3] = 0
				continue
			}
			blend(c.img.Pix[i:i+4], cr, cg, cb, alpha)
		}
	}
}

// blend performs source-over in non-premultiplied space.
func blend(px []byte, r, g, b uint8, srcA float64) {
	if srcA >= 1 {
		px[0], px[1], px[2], px[3] = r, g, b, 255
		return
	}
	dstA := float64(px[3]) / 255
	outA := srcA + dstA*(1-srcA)
	if outA <= 0 {
		px[0], px[1], px[2], px[3] = 0, 0, 0, 0
		return
	}
	mix := func(s uint8, d byte) byte {
		v := (float64(s)*srcA + float64(d)*dstA*(1-srcA)) / outA
		return byte(v + 0.5)
	}
	px[0] = mix(r, px[0])
	px[1] = mix(g, px[1])
	px[2] = mix(b, px[2])
	px[3] = byte(outA*255 + 0.5)
}

func parseColor(hex string) ([3]uint8, error) {
	var out [3]uint8
	if len(hex) != 7 || hex[0] != '#' {
		return out, fmt.Errorf("invalid color %q", hex)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(hex[1:], "%02x%02x%02x", &r, &g, &b); err != nil {
		return out, fmt.Errorf("invalid color %q", hex)
	}
	out[0], out[1], out[2] = r, g, b
	return out, nil
}
