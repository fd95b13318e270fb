package media

import (
	"context"
	"fmt"
	"image"
	"os"
	"os/exec"
	"strconv"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Info is what probing the source file yields.
type Info struct {
	Width    int
	Height   int
	Duration float64 // seconds; zero for photos
	Size     int64
	MimeType string
}

// Probe inspects the file at path. Photos are decoded for dimensions;
// videos go through ffprobe.
func Probe(ctx context.Context, path string, kind Kind) (*Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	mime, err := DetectMime(path)
	if err != nil {
		return nil, err
	}
	info := &Info{Size: st.Size(), MimeType: mime}

	if kind == KindPhoto {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		cfg, _, err := image.DecodeConfig(f)
		if err != nil {
			return nil, fmt.Errorf("decode image config: %w", err)
		}
		info.Width, info.Height = cfg.Width, cfg.Height
		return info, nil
	}
	return probeVideo(ctx, path, info)
}

func probeVideo(ctx context.Context, path string, info *Info) (*Info, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return nil, fmt.Errorf("ffprobe not found in PATH: %w", err)
	}
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,duration",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1",
		path,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffprobe failed: %w\nOutput: %s", err, string(out))
	}

	for _, line := range strings.Split(string(out), "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
		if !ok {
			continue
		}
		switch key {
		case "width":
			if w, err := strconv.Atoi(value); err == nil {
				info.Width = w
			}
		case "height":
			if h, err := strconv.Atoi(value); err == nil {
				info.Height = h
			}
		case "duration":
			// The stream entry may be N/A; the format entry wins then.
			if d, err := strconv.ParseFloat(value, 64); err == nil && d > info.Duration {
				info.Duration = d
			}
		}
	}
	if info.Duration <= 0 {
		return nil, fmt.Errorf("ffprobe reported no duration for %s", path)
	}
	return info, nil
}
