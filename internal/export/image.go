// Package export bakes an edit session's state into a deliverable file.
// Photos composite every tool's output into one raster; videos go through
// a best-effort ffmpeg re-encode with a metadata-only fallback.
package export

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"

	"github.com/reelworks/reeledit/internal/drawing"
	"github.com/reelworks/reeledit/internal/filter"
	"github.com/reelworks/reeledit/internal/layer"
	"github.com/reelworks/reeledit/internal/transform"
)

// Output caps for photo exports.
const (
	MaxOutputDimension = 1920
	JPEGQuality        = 90
)

// ImageInputs is everything the photo path composites. Nil tool states are
// skipped.
type ImageInputs struct {
	Base      image.Image
	Transform transform.State
	Filter    filter.Transform
	Layers    *layer.Manager
	Drawing   *drawing.Canvas
}

// ComposeImage bakes the edit onto one raster. Color and overlays are
// applied in source coordinates; geometry comes last so overlays rotate
// with the frame instead of being resampled across swapped axes. The
// filter is per-pixel, so it commutes with the geometry.
func ComposeImage(in ImageInputs) (*image.NRGBA, error) {
	var out *image.NRGBA
	if !in.Filter.Neutral() {
		out = filter.ApplyTransform(in.Base, in.Filter)
	} else {
		out = imaging.Clone(in.Base)
	}

	if in.Layers != nil && in.Layers.Count() > 0 {
		withLayers, err := in.Layers.RenderRaster(out, 1)
		if err != nil {
			return nil, fmt.Errorf("raster layers: %w", err)
		}
		out = withLayers
	}

	if in.Drawing != nil && in.Drawing.HasDrawing() {
		out = in.Drawing.RenderRaster(out)
	}

	out = in.Transform.Apply(out)

	if b := out.Bounds(); b.Dx() > MaxOutputDimension || b.Dy() > MaxOutputDimension {
		out = imaging.Fit(out, MaxOutputDimension, MaxOutputDimension, imaging.Lanczos)
	}
	return out, nil
}

// ExportImage composites and writes a JPEG to a temp file, returning its
// path. The caller owns the file.
func ExportImage(in ImageInputs) (string, error) {
	out, err := ComposeImage(in)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "reeledit-export-*.jpg")
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	path := tmp.Name()
	if err := tmp.Close(); err != nil {
		os.Remove(path)
		return "", err
	}

	if err := imaging.Save(out, path, imaging.JPEGQuality(JPEGQuality)); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("encode export jpeg: %w", err)
	}
	return path, nil
}
