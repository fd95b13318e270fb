// internal/layer/raster.go
package layer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	regularFont *opentype.Font
	boldFont    *opentype.Font
)

func init() {
	var err error
	regularFont, err = opentype.Parse(goregular.TTF)
	if err != nil {
		panic(fmt.Sprintf("layer: parse embedded regular font: %v", err))
	}
	boldFont, err = opentype.Parse(gobold.TTF)
	if err != nil {
		panic(fmt.Sprintf("layer: parse embedded bold font: %v", err))
	}
}

func newFace(weight FontWeight, sizePx float64) (font.Face, error) {
	f := regularFont
	if weight == WeightBold {
		f = boldFont
	}
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    sizePx,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

// RenderRaster replays every layer's pose and content onto a copy of base
// at the given source-to-target scale, in z order. base itself is not
// modified.
func (m *Manager) RenderRaster(base image.Image, scale float64) (*image.NRGBA, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("render layers: non-positive scale %v", scale)
	}
	dst := imaging.Clone(base)
	for _, l := range m.layers {
		tile, err := renderTile(l, scale)
		if err != nil {
			return nil, fmt.Errorf("render layer %s: %w", l.ID, err)
		}
		if tile == nil {
			continue
		}
		// imaging rotates counter-clockwise for positive angles; pose
		// rotation is clockwise like CSS.
		if l.Pose.RotationDegrees != 0 {
			tile = imaging.Rotate(tile, -l.Pose.RotationDegrees, color.NRGBA{})
		}
		b := tile.Bounds()
		cx := int(l.Pose.X*scale) - b.Dx()/2
		cy := int(l.Pose.Y*scale) - b.Dy()/2
		dst = imaging.Overlay(dst, tile, image.Pt(cx, cy), l.Pose.Opacity)
	}
	return dst, nil
}

// renderTile rasters one layer's content, with the layer's own scale baked
// in, into a transparent tile sized to fit it.
func renderTile(l *Layer, scale float64) (*image.NRGBA, error) {
	switch l.Kind {
	case KindText:
		return renderTextTile(l.Text, l.Pose.Scale*scale)
	case KindSticker:
		return renderStickerTile(l.Sticker, l.Pose.Scale*scale)
	default:
		return nil, fmt.Errorf("unknown layer kind %q", l.Kind)
	}
}

func renderTextTile(t *TextStyle, scale float64) (*image.NRGBA, error) {
	if strings.TrimSpace(t.Content) == "" {
		return nil, nil
	}
	size := t.FontSizePx * scale
	if size < 1 {
		size = 1
	}
	face, err := newFace(t.Weight, size)
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	defer face.Close()

	lines := strings.Split(t.Content, "\n")
	metrics := face.Metrics()
	ascent := metrics.Ascent.Ceil()
	lineHeight := int(size * 1.25)
	if lineHeight < metrics.Height.Ceil() {
		lineHeight = metrics.Height.Ceil()
	}

	widths := make([]int, len(lines))
	maxW := 1
	for i, line := range lines {
		widths[i] = font.MeasureString(face, line).Ceil()
		if widths[i] > maxW {
			maxW = widths[i]
		}
	}

	pad := int(size * 0.3)
	w := maxW + 2*pad
	h := lineHeight*len(lines) + 2*pad
	tile := image.NewNRGBA(image.Rect(0, 0, w, h))

	if t.BackgroundColor != "" && t.BackgroundColor != "transparent" {
		bg, err := ParseHexColor(t.BackgroundColor)
		if err != nil {
			return nil, fmt.Errorf("background color: %w", err)
		}
		draw.Draw(tile, tile.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}

	fg, err := ParseHexColor(t.Color)
	if err != nil {
		return nil, fmt.Errorf("text color: %w", err)
	}

	shadowOffset := int(size * 0.06)
	if shadowOffset < 1 {
		shadowOffset = 1
	}
	for i, line := range lines {
		var x int
		switch t.Align {
		case AlignLeft:
			x = pad
		case AlignRight:
			x = pad + maxW - widths[i]
		default:
			x = pad + (maxW-widths[i])/2
		}
		y := pad + ascent + i*lineHeight
		if t.ShadowEnabled {
			drawString(tile, face, line, x+shadowOffset, y+shadowOffset, color.NRGBA{A: 190})
		}
		drawString(tile, face, line, x, y, fg)
	}
	return tile, nil
}

func drawString(dst *image.NRGBA, face font.Face, s string, x, y int, c color.Color) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func renderStickerTile(s *Sticker, scale float64) (*image.NRGBA, error) {
	w := int(s.WidthPx * scale)
	h := int(s.HeightPx * scale)
	if w < 1 || h < 1 {
		return nil, nil
	}
	if s.ImagePath != "" {
		img, err := imaging.Open(s.ImagePath)
		if err != nil {
			return nil, fmt.Errorf("open sticker image: %w", err)
		}
		return imaging.Resize(img, w, h, imaging.Lanczos), nil
	}
	if s.Emoji == "" {
		return nil, nil
	}
	// Emoji stickers go through glyph rendering like the live path does.
	face, err := newFace(WeightNormal, float64(h)*0.9)
	if err != nil {
		return nil, fmt.Errorf("emoji face: %w", err)
	}
	defer face.Close()
	tile := image.NewNRGBA(image.Rect(0, 0, w, h))
	tw := font.MeasureString(face, s.Emoji).Ceil()
	x := (w - tw) / 2
	y := (h + face.Metrics().Ascent.Ceil()) / 2
	drawString(tile, face, s.Emoji, x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	return tile, nil
}

// ParseHexColor parses #rgb, #rrggbb and #rrggbbaa CSS hex colors.
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	hex := s[1:]
	parse := func(sub string) (uint8, error) {
		var v uint64
		if _, err := fmt.Sscanf(sub, "%x", &v); err != nil {
			return 0, fmt.Errorf("invalid color %q", s)
		}
		return uint8(v), nil
	}
	switch len(hex) {
	case 3:
		r, err1 := parse(strings.Repeat(string(hex[0]), 2))
		g, err2 := parse(strings.Repeat(string(hex[1]), 2))
		b, err3 := parse(strings.Repeat(string(hex[2]), 2))
		if err1 != nil || err2 != nil || err3 != nil {
			return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
		}
		return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
	case 6, 8:
		var c color.NRGBA
		c.A = 255
		pairs := []*uint8{&c.R, &c.G, &c.B, &c.A}
		for i := 0; i*2 < len(hex); i++ {
			v, err := parse(hex[i*2 : i*2+2])
			if err != nil {
				return color.NRGBA{}, err
			}
			*pairs[i] = v
		}
		return c, nil
	default:
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
}
