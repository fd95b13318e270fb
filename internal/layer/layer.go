// Package layer maintains the ordered collection of overlay entities (text
// and stickers) composited above the base media. Layers carry one shared
// pose model that drives both render paths: the serialized live overlay the
// client shows during editing, and the raster pass that bakes overlays into
// exported pixels. Keeping a single pose source is what keeps the two paths
// visually equivalent.
package layer

// Kind discriminates the layer variants.
type Kind string

const (
	KindText    Kind = "text"
	KindSticker Kind = "sticker"
)

// Scale clamp bounds shared by gestures and property updates.
const (
	MinScale = 0.3
	MaxScale = 3.0
)

// Pose is the common placement state of a layer. X/Y locate the layer
// center in canvas pixel space.
type Pose struct {
	X               float64 `json:"x"`
	Y               float64 `json:"y"`
	RotationDegrees float64 `json:"rotationDegrees"`
	Scale           float64 `json:"scale"`
	Opacity         float64 `json:"opacity"`
}

// FontWeight is normal or bold; the raster path picks the face from it.
type FontWeight string

const (
	WeightNormal FontWeight = "normal"
	WeightBold   FontWeight = "bold"
)

// TextAlign positions multi-line text within its box.
type TextAlign string

const (
	AlignLeft   TextAlign = "left"
	AlignCenter TextAlign = "center"
	AlignRight  TextAlign = "right"
)

// TextStyle holds the text-variant fields. Colors are CSS hex strings;
// BackgroundColor empty means transparent.
type TextStyle struct {
	Content         string     `json:"content"`
	FontFamily      string     `json:"fontFamily"`
	FontSizePx      float64    `json:"fontSizePx"`
	Weight          FontWeight `json:"weight"`
	Color           string     `json:"color"`
	BackgroundColor string     `json:"backgroundColor,omitempty"`
	Align           TextAlign  `json:"align"`
	ShadowEnabled   bool       `json:"shadowEnabled"`
}

// Sticker holds the sticker-variant fields: either an emoji codepoint
// string or a path to an image file owned by the session.
type Sticker struct {
	Emoji     string  `json:"emoji,omitempty"`
	ImagePath string  `json:"imagePath,omitempty"`
	WidthPx   float64 `json:"widthPx"`
	HeightPx  float64 `json:"heightPx"`
}

// Layer is one overlay entity. Insertion order is z-order; later layers
// render on top.
type Layer struct {
	ID      string     `json:"id"`
	Kind    Kind       `json:"kind"`
	Pose    Pose       `json:"pose"`
	Text    *TextStyle `json:"text,omitempty"`
	Sticker *Sticker   `json:"sticker,omitempty"`
}

func clampScale(s float64) float64 {
	if s < MinScale {
		return MinScale
	}
	if s > MaxScale {
		return MaxScale
	}
	return s
}

func clampOpacity(o float64) float64 {
	if o < 0 {
		return 0
	}
	if o > 1 {
		return 1
	}
	return o
}
