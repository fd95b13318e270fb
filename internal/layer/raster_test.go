package layer

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
)

func TestRenderRasterDrawsTextNearCenter(t *testing.T) {
	m := NewManager()
	m.AddText(TextOptions{
		Content:    "HELLO",
		FontSizePx: 40,
		Color:      "#ff0000",
		X:          100,
		Y:          100,
	})

	base := imaging.New(200, 200, color.NRGBA{A: 255})
	out, err := m.RenderRaster(base, 1)
	if err != nil {
		t.Fatalf("RenderRaster: %v", err)
	}

	// Some pixel near the center must have picked up the red glyphs.
	found := false
	for y := 60; y < 140 && !found; y++ {
		for x := 40; x < 160; x++ {
			r, g, b, _ := out.At(x, y).RGBA()
			if r > 0x8000 && g < 0x4000 && b < 0x4000 {
				found = true
				break
			}
		}
	}
	if !found {
		t.Fatal("no red text pixels found near center")
	}
}

func TestRenderRasterScalesWithTarget(t *testing.T) {
	m := NewManager()
	m.AddText(TextOptions{Content: "HELLO", FontSizePx: 20, Color: "#ffffff", X: 50, Y: 50})

	base1 := imaging.New(100, 100, color.NRGBA{A: 255})
	base2 := imaging.New(200, 200, color.NRGBA{A: 255})
	small, err := m.RenderRaster(base1, 1)
	if err != nil {
		t.Fatalf("render small: %v", err)
	}
	big, err := m.RenderRaster(base2, 2)
	if err != nil {
		t.Fatalf("render big: %v", err)
	}
	if lit(small) == 0 || lit(big) == 0 {
		t.Fatal("expected text pixels in both renders")
	}
	// Doubling the scale should roughly quadruple the glyph coverage.
	ratio := float64(lit(big)) / float64(lit(small))
	if ratio < 2.0 {
		t.Fatalf("coverage ratio %v too low for 2x scale", ratio)
	}
}

func TestRenderRasterStickerImage(t *testing.T) {
	tmp := t.TempDir()
	stickerPath := filepath.Join(tmp, "sticker.png")
	sticker := imaging.New(10, 10, color.NRGBA{G: 255, A: 255})
	if err := imaging.Save(sticker, stickerPath); err != nil {
		t.Fatalf("save sticker: %v", err)
	}

	m := NewManager()
	m.AddSticker(StickerOptions{ImagePath: stickerPath, WidthPx: 40, HeightPx: 40, X: 50, Y: 50})

	base := imaging.New(100, 100, color.NRGBA{A: 255})
	out, err := m.RenderRaster(base, 1)
	if err != nil {
		t.Fatalf("RenderRaster: %v", err)
	}
	_, g, _, _ := out.At(50, 50).RGBA()
	if g < 0x8000 {
		t.Fatal("sticker image not composited at its position")
	}
}

func TestRenderRasterMissingStickerFile(t *testing.T) {
	m := NewManager()
	m.AddSticker(StickerOptions{ImagePath: filepath.Join(t.TempDir(), "gone.png"), WidthPx: 20, HeightPx: 20})
	base := imaging.New(50, 50, color.NRGBA{A: 255})
	if _, err := m.RenderRaster(base, 1); err == nil {
		t.Fatal("expected error for missing sticker file")
	}
	if _, err := os.Stat("gone.png"); err == nil {
		t.Fatal("unexpected file in working dir")
	}
}

func TestRenderRasterEmptyManagerIsClone(t *testing.T) {
	m := NewManager()
	base := image.NewNRGBA(image.Rect(0, 0, 10, 10))
	base.Set(3, 3, color.NRGBA{R: 9, G: 9, B: 9, A: 255})
	out, err := m.RenderRaster(base, 1)
	if err != nil {
		t.Fatalf("RenderRaster: %v", err)
	}
	if out.At(3, 3) != base.At(3, 3) {
		t.Fatal("empty layer list should leave base pixels untouched")
	}
}

func TestParseHexColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.NRGBA
		wantErr bool
	}{
		{"#fff", color.NRGBA{255, 255, 255, 255}, false},
		{"#ff0000", color.NRGBA{255, 0, 0, 255}, false},
		{"#00ff0080", color.NRGBA{0, 255, 0, 128}, false},
		{"red", color.NRGBA{}, true},
		{"#12", color.NRGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseHexColor(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseHexColor(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseHexColor(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHexColor(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func lit(img *image.NRGBA) int {
	n := 0
	for i := 0; i < len(img.Pix); i += 4 {
		if img.Pix[i] > 100 || img.Pix[i+1] > 100 || img.Pix[i+2] > 100 {
			n++
		}
	}
	return n
}
