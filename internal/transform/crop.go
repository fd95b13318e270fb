// internal/transform/crop.go
package transform

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// AspectRatio constrains the crop region's shape during handle resizes.
type AspectRatio string

const (
	AspectFree   AspectRatio = "free"
	AspectSquare AspectRatio = "1:1"
	Aspect4x5    AspectRatio = "4:5"
	Aspect9x16   AspectRatio = "9:16"
	Aspect16x9   AspectRatio = "16:9"
	Aspect4x3    AspectRatio = "4:3"
)

// ratio returns width/height, or 0 for free-form.
func (a AspectRatio) ratio() float64 {
	switch a {
	case AspectSquare:
		return 1
	case Aspect4x5:
		return 4.0 / 5.0
	case Aspect9x16:
		return 9.0 / 16.0
	case Aspect16x9:
		return 16.0 / 9.0
	case Aspect4x3:
		return 4.0 / 3.0
	default:
		return 0
	}
}

// Valid reports whether a is from the fixed catalog.
func (a AspectRatio) Valid() bool {
	switch a {
	case AspectFree, AspectSquare, Aspect4x5, Aspect9x16, Aspect16x9, Aspect4x3:
		return true
	default:
		return false
	}
}

// Handle names the 8 resize handles plus the body drag zone.
type Handle string

const (
	HandleBody        Handle = "body"
	HandleTopLeft     Handle = "top-left"
	HandleTop         Handle = "top"
	HandleTopRight    Handle = "top-right"
	HandleRight       Handle = "right"
	HandleBottomRight Handle = "bottom-right"
	HandleBottom      Handle = "bottom"
	HandleBottomLeft  Handle = "bottom-left"
	HandleLeft        Handle = "left"
)

func (h Handle) valid() bool {
	switch h {
	case HandleBody, HandleTopLeft, HandleTop, HandleTopRight, HandleRight,
		HandleBottomRight, HandleBottom, HandleBottomLeft, HandleLeft:
		return true
	default:
		return false
	}
}

// RegionPercent is a crop region in percent-of-container units.
type RegionPercent struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// MinRegionPercent is the smallest allowed region edge, preventing
// degenerate crops.
const MinRegionPercent = 10

// FullFrame is the whole-image region.
func FullFrame() RegionPercent {
	return RegionPercent{X: 0, Y: 0, Width: 100, Height: 100}
}

// ToPixels converts the percent region to source pixel coordinates for a
// media with the given natural resolution.
func (r RegionPercent) ToPixels(naturalW, naturalH int) image.Rectangle {
	x0 := int(r.X / 100 * float64(naturalW))
	y0 := int(r.Y / 100 * float64(naturalH))
	x1 := int((r.X + r.Width) / 100 * float64(naturalW))
	y1 := int((r.Y + r.Height) / 100 * float64(naturalH))
	if x1 > naturalW {
		x1 = naturalW
	}
	if y1 > naturalH {
		y1 = naturalH
	}
	return image.Rect(x0, y0, x1, y1)
}

// SelectorPhase is the crop selector's explicit interaction state.
type SelectorPhase string

const (
	SelectorIdle         SelectorPhase = "idle"     // no crop in progress
	SelectorActive       SelectorPhase = "active"   // region shown, not being dragged
	SelectorDraggingBody SelectorPhase = "dragging" // repositioning the region
	SelectorResizing     SelectorPhase = "resizing" // dragging one of the 8 handles
)

var (
	ErrNoCropInProgress = errors.New("no crop in progress")
	ErrCropDragActive   = errors.New("crop drag already active")
	ErrNoCropDrag       = errors.New("no crop drag active")
)

// Selector is the interactive crop-region state machine. Pointer positions
// are in percent-of-container units like the region itself.
type Selector struct {
	phase        SelectorPhase
	region       RegionPercent
	aspect       AspectRatio
	activeHandle Handle
	startPointer PointPercent
	startRegion  RegionPercent
}

// PointPercent is a pointer position in percent-of-container units.
type PointPercent struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NewSelector returns an idle selector.
func NewSelector() *Selector {
	return &Selector{phase: SelectorIdle, aspect: AspectFree}
}

// Phase returns the current interaction state.
func (s *Selector) Phase() SelectorPhase {
	if s.phase == "" {
		return SelectorIdle
	}
	return s.phase
}

// Region returns the current region. Only meaningful outside SelectorIdle.
func (s *Selector) Region() RegionPercent { return s.region }

// Aspect returns the active constraint.
func (s *Selector) Aspect() AspectRatio { return s.aspect }

// Begin shows a fresh centered region under the given constraint.
func (s *Selector) Begin(aspect AspectRatio) error {
	if !aspect.Valid() {
		return fmt.Errorf("begin crop: unknown aspect ratio %q", aspect)
	}
	s.aspect = aspect
	s.region = defaultRegion(aspect)
	s.phase = SelectorActive
	s.activeHandle = ""
	return nil
}

// SetAspect switches the constraint mid-crop, reshaping the region.
func (s *Selector) SetAspect(aspect AspectRatio) error {
	if s.phase == SelectorIdle {
		return ErrNoCropInProgress
	}
	if !aspect.Valid() {
		return fmt.Errorf("set aspect: unknown aspect ratio %q", aspect)
	}
	s.aspect = aspect
	if r := aspect.ratio(); r > 0 {
		s.region.Height = s.region.Width / r
		s.clampRegion()
	}
	return nil
}

// BeginDrag starts a body drag or a handle resize.
func (s *Selector) BeginDrag(h Handle, p PointPercent) error {
	switch s.phase {
	case SelectorIdle:
		return ErrNoCropInProgress
	case SelectorDraggingBody, SelectorResizing:
		return ErrCropDragActive
	}
	if !h.valid() {
		return fmt.Errorf("begin drag: unknown handle %q", h)
	}
	s.activeHandle = h
	s.startPointer = p
	s.startRegion = s.region
	if h == HandleBody {
		s.phase = SelectorDraggingBody
	} else {
		s.phase = SelectorResizing
	}
	return nil
}

// Drag feeds a pointer move into the active drag.
func (s *Selector) Drag(p PointPercent) error {
	dx := p.X - s.startPointer.X
	dy := p.Y - s.startPointer.Y
	switch s.phase {
	case SelectorDraggingBody:
		s.region.X = s.startRegion.X + dx
		s.region.Y = s.startRegion.Y + dy
		s.clampRegion()
		return nil
	case SelectorResizing:
		s.resize(dx, dy)
		return nil
	default:
		return ErrNoCropDrag
	}
}

// EndDrag commits the region as-is and returns to the active state.
func (s *Selector) EndDrag() error {
	switch s.phase {
	case SelectorDraggingBody, SelectorResizing:
		s.phase = SelectorActive
		s.activeHandle = ""
		return nil
	default:
		return ErrNoCropDrag
	}
}

// Cancel discards the in-progress region without touching the media.
func (s *Selector) Cancel() {
	s.phase = SelectorIdle
	s.activeHandle = ""
	s.region = RegionPercent{}
}

// Apply rerasters the selected sub-region as the new working image and
// resets the selector. The source is not modified.
func (s *Selector) Apply(src image.Image) (*image.NRGBA, error) {
	if s.phase == SelectorIdle {
		return nil, ErrNoCropInProgress
	}
	if s.phase != SelectorActive {
		return nil, ErrCropDragActive
	}
	b := src.Bounds()
	rect := s.region.ToPixels(b.Dx(), b.Dy())
	if rect.Dx() < 1 || rect.Dy() < 1 {
		return nil, fmt.Errorf("crop region %v collapses to zero pixels", s.region)
	}
	out := imaging.Crop(src, rect.Add(b.Min))
	s.Cancel()
	return out, nil
}

func (s *Selector) resize(dx, dy float64) {
	r := s.startRegion
	left := r.X
	top := r.Y
	right := r.X + r.Width
	bottom := r.Y + r.Height

	switch s.activeHandle {
	case HandleTopLeft:
		left += dx
		top += dy
	case HandleTop:
		top += dy
	case HandleTopRight:
		right += dx
		top += dy
	case HandleRight:
		right += dx
	case HandleBottomRight:
		right += dx
		bottom += dy
	case HandleBottom:
		bottom += dy
	case HandleBottomLeft:
		left += dx
		bottom += dy
	case HandleLeft:
		left += dx
	}

	if right-left < MinRegionPercent {
		if s.activeHandle == HandleLeft || s.activeHandle == HandleTopLeft || s.activeHandle == HandleBottomLeft {
			left = right - MinRegionPercent
		} else {
			right = left + MinRegionPercent
		}
	}
	if bottom-top < MinRegionPercent {
		if s.activeHandle == HandleTop || s.activeHandle == HandleTopLeft || s.activeHandle == HandleTopRight {
			top = bottom - MinRegionPercent
		} else {
			bottom = top + MinRegionPercent
		}
	}

	s.region = RegionPercent{X: left, Y: top, Width: right - left, Height: bottom - top}

	// Aspect constraint: height follows width.
	if ratio := s.aspect.ratio(); ratio > 0 {
		s.region.Height = s.region.Width / ratio
	}
	s.clampRegion()
}

func (s *Selector) clampRegion() {
	r := &s.region
	if r.Width < MinRegionPercent {
		r.Width = MinRegionPercent
	}
	if r.Height < MinRegionPercent {
		r.Height = MinRegionPercent
	}
	if r.Width > 100 {
		r.Width = 100
	}
	if r.Height > 100 {
		r.Height = 100
	}
	if r.X < 0 {
		r.X = 0
	}
	if r.Y < 0 {
		r.Y = 0
	}
	if r.X+r.Width > 100 {
		r.X = 100 - r.Width
	}
	if r.Y+r.Height > 100 {
		r.Y = 100 - r.Height
	}
}

// defaultRegion centers an 80%-wide region shaped by the constraint.
func defaultRegion(aspect AspectRatio) RegionPercent {
	w := 80.0
	h := 80.0
	if r := aspect.ratio(); r > 0 {
		h = w / r
		if h > 100 {
			h = 100
			w = h * r
		}
	}
	return RegionPercent{X: (100 - w) / 2, Y: (100 - h) / 2, Width: w, Height: h}
}
