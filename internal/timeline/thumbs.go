// internal/timeline/thumbs.go
package timeline

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"

	"github.com/disintegration/imaging"
)

// Frame is one thumbnail-strip entry.
type Frame struct {
	Index     int
	Timestamp float64
	Image     image.Image
}

// FrameExtractor captures one downscaled frame at a timestamp. The ffmpeg
// implementation is the production path; tests inject fakes.
type FrameExtractor interface {
	ExtractFrame(ctx context.Context, srcPath string, atSeconds float64, boxW, boxH int) (image.Image, error)
}

// GenerateStrip captures n evenly spaced frames across the full (untrimmed)
// duration. The loop is strictly sequential: one seek-and-capture in flight
// at a time, since a single decode pipeline cannot serve concurrent seeks.
func GenerateStrip(ctx context.Context, ex FrameExtractor, srcPath string, duration float64, n, boxW, boxH int) ([]Frame, error) {
	if n < 1 {
		return nil, fmt.Errorf("thumbnail count %d invalid", n)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w (got %v)", ErrInvalidDuration, duration)
	}
	frames := make([]Frame, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return frames, err
		}
		// Sample mid-slot so the last frame does not seek past the end.
		ts := duration * (float64(i) + 0.5) / float64(n)
		img, err := ex.ExtractFrame(ctx, srcPath, ts, boxW, boxH)
		if err != nil {
			return frames, fmt.Errorf("extract frame %d at %.2fs: %w", i, ts, err)
		}
		frames = append(frames, Frame{Index: i, Timestamp: ts, Image: img})
	}
	return frames, nil
}

// FFmpegExtractor captures frames by seeking with ffmpeg and decoding the
// single-frame output.
type FFmpegExtractor struct{}

// ExtractFrame implements FrameExtractor.
func (FFmpegExtractor) ExtractFrame(ctx context.Context, srcPath string, atSeconds float64, boxW, boxH int) (image.Image, error) {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	tmp, err := os.CreateTemp("", "strip-frame-*.jpg")
	if err != nil {
		return nil, fmt.Errorf("create temp frame: %w", err)
	}
	tmpPath := tmp.Name()
	_ = tmp.Close()
	defer os.Remove(tmpPath)

	scale := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease", boxW, boxH)
	args := []string{
		"-ss", strconv.FormatFloat(atSeconds, 'f', 3, 64),
		"-i", srcPath,
		"-vf", scale,
		"-frames:v", "1",
		"-q:v", "4",
		"-y",
		tmpPath,
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame capture failed: %w\nOutput: %s", err, string(out))
	}

	img, err := imaging.Open(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("decode captured frame: %w", err)
	}
	return img, nil
}
