package export

import (
	"bufio"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/reelworks/reeledit/internal/filter"
	"github.com/reelworks/reeledit/internal/timeline"
)

// VideoInputs drives the ffmpeg re-encode. Overlay is the pre-composited
// layers+drawing frame, nil when the edit has neither. Audio mixing stays
// metadata only and is not baked here.
type VideoInputs struct {
	SourcePath string
	Duration   float64
	Trim       *timeline.TrimState
	Filter     filter.Transform
	Overlay    image.Image
}

// VideoResult says what the video path produced. Reencoded false means the
// fallback handed back the untouched original.
type VideoResult struct {
	Path      string
	Reencoded bool
}

// FFmpegAvailable probes for the encoder once per call.
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Encoder preference order. The first entry the local ffmpeg build offers
// wins; a failed probe assumes the first.
var (
	videoEncoderPrefs = []string{"libx264", "libopenh264", "mpeg4"}
	audioEncoderPrefs = []string{"aac", "libmp3lame"}
)

var encoderProbe struct {
	once  sync.Once
	video string
	audio string
}

// pickEncoders settles the codec pair from `ffmpeg -encoders`, probed once
// per process.
func pickEncoders() (videoCodec, audioCodec string) {
	encoderProbe.once.Do(func() {
		encoderProbe.video = videoEncoderPrefs[0]
		encoderProbe.audio = audioEncoderPrefs[0]
		out, err := exec.Command("ffmpeg", "-hide_banner", "-encoders").Output()
		if err != nil {
			return
		}
		available := parseEncoderList(string(out))
		encoderProbe.video = chooseEncoder(available, videoEncoderPrefs)
		encoderProbe.audio = chooseEncoder(available, audioEncoderPrefs)
	})
	return encoderProbe.video, encoderProbe.audio
}

// parseEncoderList extracts encoder names from `ffmpeg -encoders` output.
// Encoder rows look like " V....D libx264    H.264 / AVC ..."; the legend
// rows above them carry "=" in the name column and are skipped.
func parseEncoderList(out string) map[string]bool {
	set := make(map[string]bool)
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[1] == "=" {
			continue
		}
		switch fields[0][0] {
		case 'V', 'A', 'S':
			set[fields[1]] = true
		}
	}
	return set
}

// chooseEncoder returns the first preferred encoder the build offers, or
// the first preference when none matched.
func chooseEncoder(available map[string]bool, prefs []string) string {
	for _, p := range prefs {
		if available[p] {
			return p
		}
	}
	return prefs[0]
}

// ExportVideo re-encodes the trim window with the filter graph and overlay
// burned in. progress receives fractions in [0,1]; it may be nil. Context
// cancellation kills ffmpeg and removes the partial output.
func ExportVideo(ctx context.Context, in VideoInputs, progress func(float64)) (*VideoResult, error) {
	if !FFmpegAvailable() {
		return &VideoResult{Path: in.SourcePath, Reencoded: false}, nil
	}

	span := in.Duration
	args := []string{"-hide_banner", "-nostats", "-y"}
	if in.Trim != nil && in.Trim.Trimmed() {
		span = in.Trim.Span()
		args = append(args,
			"-ss", strconv.FormatFloat(in.Trim.Start, 'f', 3, 64),
			"-t", strconv.FormatFloat(span, 'f', 3, 64),
		)
	}
	args = append(args, "-i", in.SourcePath)

	var overlayPath string
	if in.Overlay != nil {
		tmp, err := os.CreateTemp("", "reeledit-overlay-*.png")
		if err != nil {
			return nil, fmt.Errorf("create overlay file: %w", err)
		}
		overlayPath = tmp.Name()
		_ = tmp.Close()
		defer os.Remove(overlayPath)
		if err := imaging.Save(in.Overlay, overlayPath); err != nil {
			return nil, fmt.Errorf("encode overlay png: %w", err)
		}
		args = append(args, "-i", overlayPath)
	}

	graph := filterGraph(in.Filter)
	switch {
	case overlayPath != "" && graph != "":
		args = append(args, "-filter_complex",
			fmt.Sprintf("[0:v]%s[v0];[v0][1:v]overlay=0:0[vout]", graph),
			"-map", "[vout]", "-map", "0:a?")
	case overlayPath != "":
		args = append(args, "-filter_complex",
			"[0:v][1:v]overlay=0:0[vout]",
			"-map", "[vout]", "-map", "0:a?")
	case graph != "":
		args = append(args, "-vf", graph)
	}

	out, err := os.CreateTemp("", "reeledit-export-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("create export file: %w", err)
	}
	outPath := out.Name()
	_ = out.Close()

	videoCodec, audioCodec := pickEncoders()
	args = append(args, "-c:v", videoCodec)
	if videoCodec == "libx264" {
		args = append(args, "-preset", "veryfast", "-crf", "23")
	} else {
		args = append(args, "-q:v", "5")
	}
	args = append(args,
		"-c:a", audioCodec,
		"-movflags", "+faststart",
		"-progress", "pipe:1",
		outPath,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.Remove(outPath)
		return nil, err
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		os.Remove(outPath)
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}
	readProgress(stdout, span, progress)

	if err := cmd.Wait(); err != nil {
		os.Remove(outPath)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("ffmpeg failed: %w\nOutput: %s", err, stderr.String())
	}
	if progress != nil {
		progress(1)
	}
	return &VideoResult{Path: outPath, Reencoded: true}, nil
}

// readProgress turns ffmpeg's -progress key=value stream into fractions.
func readProgress(r io.Reader, span float64, progress func(float64)) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(sc.Text()), "=")
		if !ok || key != "out_time_us" || progress == nil || span <= 0 {
			continue
		}
		us, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		frac := float64(us) / 1e6 / span
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		progress(frac)
	}
}

// filterGraph maps the color adjustments onto an ffmpeg chain. Each op
// keeps its catalog order. Sepia is the one matrix eq cannot express, so
// it goes through colorchannelmixer.
func filterGraph(t filter.Transform) string {
	if t.Neutral() {
		return ""
	}
	var parts []string
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', 4, 64) }
	for _, a := range t.Adjustments {
		switch a.Op {
		case filter.OpBrightness:
			parts = append(parts, "eq=brightness="+f(a.Magnitude-1))
		case filter.OpContrast:
			parts = append(parts, "eq=contrast="+f(a.Magnitude))
		case filter.OpSaturate:
			parts = append(parts, "eq=saturation="+f(a.Magnitude))
		case filter.OpGrayscale:
			parts = append(parts, "eq=saturation="+f(1-a.Magnitude))
		case filter.OpHueRotate:
			parts = append(parts, "hue=h="+f(a.Magnitude))
		case filter.OpSepia:
			s := a.Magnitude
			lerp := func(target float64) string { return f(1 + (target-1)*s) }
			cross := func(target float64) string { return f(target * s) }
			parts = append(parts, fmt.Sprintf(
				"colorchannelmixer=rr=%s:rg=%s:rb=%s:gr=%s:gg=%s:gb=%s:br=%s:bg=%s:bb=%s",
				lerp(0.393), cross(0.769), cross(0.189),
				cross(0.349), lerp(0.686), cross(0.168),
				cross(0.272), cross(0.534), lerp(0.131)))
		}
	}
	return strings.Join(parts, ",")
}
