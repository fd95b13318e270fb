package export

import (
	"context"
	"errors"
	"image/color"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"

	"github.com/reelworks/reeledit/internal/drawing"
	"github.com/reelworks/reeledit/internal/filter"
	"github.com/reelworks/reeledit/internal/layer"
	"github.com/reelworks/reeledit/internal/media"
	"github.com/reelworks/reeledit/internal/transform"
	"github.com/reelworks/reeledit/pkg/schema"
)

type capturePublisher struct {
	mu     sync.Mutex
	stages []schema.ExportLifecycleEvent
	done   []schema.ExportDone
}

func (p *capturePublisher) ExportStage(ev schema.ExportLifecycleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stages = append(p.stages, ev)
	return nil
}

func (p *capturePublisher) ExportDone(ev schema.ExportDone) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done = append(p.done, ev)
	return nil
}

func (p *capturePublisher) stageNames() []schema.ProcessingStage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]schema.ProcessingStage, len(p.stages))
	for i, ev := range p.stages {
		out[i] = ev.Stage
	}
	return out
}

func TestComposeImagePlainIsIdentity(t *testing.T) {
	base := imaging.New(100, 80, color.NRGBA{R: 10, G: 200, B: 30, A: 255})
	out, err := ComposeImage(ImageInputs{
		Base:   base,
		Filter: filter.ComputeTransform(filter.Normal, 100),
	})
	if err != nil {
		t.Fatalf("ComposeImage: %v", err)
	}
	b := out.Bounds()
	if b.Dx() != 100 || b.Dy() != 80 {
		t.Fatalf("dims = %dx%d", b.Dx(), b.Dy())
	}
	if got := out.NRGBAAt(50, 40); got != (color.NRGBA{R: 10, G: 200, B: 30, A: 255}) {
		t.Fatalf("pixel changed: %+v", got)
	}
}

func TestComposeImageBoundsOutputDimension(t *testing.T) {
	base := imaging.New(4000, 2000, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
	out, err := ComposeImage(ImageInputs{
		Base:   base,
		Filter: filter.ComputeTransform(filter.Normal, 0),
	})
	if err != nil {
		t.Fatalf("ComposeImage: %v", err)
	}
	b := out.Bounds()
	if b.Dx() != 1920 || b.Dy() != 960 {
		t.Fatalf("dims = %dx%d, want 1920x960", b.Dx(), b.Dy())
	}
}

func TestComposeImageRotatesFilteredFrame(t *testing.T) {
	base := imaging.New(40, 20, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	st := transform.State{}
	st.RotateClockwise()
	out, err := ComposeImage(ImageInputs{
		Base:      base,
		Transform: st,
		Filter:    filter.ComputeTransform("inkwell", 100),
	})
	if err != nil {
		t.Fatalf("ComposeImage: %v", err)
	}
	b := out.Bounds()
	if b.Dx() != 20 || b.Dy() != 40 {
		t.Fatalf("dims after rotate = %dx%d, want 20x40", b.Dx(), b.Dy())
	}
	px := out.NRGBAAt(10, 20)
	if px.R != px.G || px.G != px.B {
		t.Fatalf("grayscale filter not applied: %+v", px)
	}
}

func TestComposeImageRoundStrokeStaysRoundUnderRotation(t *testing.T) {
	base := imaging.New(200, 100, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	canvas, err := drawing.NewCanvas(200, 100)
	if err != nil {
		t.Fatalf("NewCanvas: %v", err)
	}
	if err := canvas.SetBrush(drawing.Brush{Tool: drawing.ToolBrush, SizePx: 20, Color: "#ff0000", Opacity: 1}); err != nil {
		t.Fatalf("SetBrush: %v", err)
	}
	if err := canvas.StartStroke(drawing.Point{X: 100, Y: 50}); err != nil {
		t.Fatalf("StartStroke: %v", err)
	}
	if err := canvas.EndStroke(); err != nil {
		t.Fatalf("EndStroke: %v", err)
	}

	st := transform.State{}
	st.RotateClockwise()
	out, err := ComposeImage(ImageInputs{
		Base:      base,
		Transform: st,
		Drawing:   canvas,
	})
	if err != nil {
		t.Fatalf("ComposeImage: %v", err)
	}

	minX, minY := out.Bounds().Max.X, out.Bounds().Max.Y
	maxX, maxY := -1, -1
	for y := out.Bounds().Min.Y; y < out.Bounds().Max.Y; y++ {
		for x := out.Bounds().Min.X; x < out.Bounds().Max.X; x++ {
			px := out.NRGBAAt(x, y)
			if px.R > 200 && px.G < 100 && px.B < 100 {
				if x < minX {
					minX = x
				}
				if y < minY {
					minY = y
				}
				if x > maxX {
					maxX = x
				}
				if y > maxY {
					maxY = y
				}
			}
		}
	}
	if maxX < 0 {
		t.Fatal("stroke not found in output")
	}
	w, h := maxX-minX+1, maxY-minY+1
	if d := w - h; d < -2 || d > 2 {
		t.Fatalf("stroke extent %dx%d, want round", w, h)
	}
}

func TestExportImageWritesJPEG(t *testing.T) {
	base := imaging.New(64, 64, color.NRGBA{R: 200, G: 50, B: 50, A: 255})
	lm := layer.NewManager()
	lm.AddText(layer.TextOptions{Content: "hi", X: 32, Y: 32})
	path, err := ExportImage(ImageInputs{
		Base:   base,
		Filter: filter.ComputeTransform("clarendon", 50),
		Layers: lm,
	})
	if err != nil {
		t.Fatalf("ExportImage: %v", err)
	}
	defer os.Remove(path)

	img, err := imaging.Open(path)
	if err != nil {
		t.Fatalf("reopen export: %v", err)
	}
	if img.Bounds().Dx() != 64 {
		t.Fatalf("export width = %d", img.Bounds().Dx())
	}
	if !strings.HasSuffix(path, ".jpg") {
		t.Fatalf("export path %q not a jpg", path)
	}
}

func TestFilterGraph(t *testing.T) {
	if g := filterGraph(filter.ComputeTransform(filter.Normal, 100)); g != "" {
		t.Fatalf("normal graph = %q, want empty", g)
	}
	g := filterGraph(filter.ComputeTransform("clarendon", 100))
	if !strings.Contains(g, "eq=contrast=1.2000") || !strings.Contains(g, "eq=saturation=1.3500") {
		t.Fatalf("clarendon graph = %q", g)
	}
	g = filterGraph(filter.ComputeTransform("gingham", 100))
	if !strings.Contains(g, "hue=h=-10") {
		t.Fatalf("gingham graph = %q", g)
	}
	g = filterGraph(filter.ComputeTransform("reyes", 100))
	if !strings.Contains(g, "colorchannelmixer=") {
		t.Fatalf("sepia-bearing graph = %q", g)
	}
}

func TestParseEncoderList(t *testing.T) {
	out := `Encoders:
 V..... = Video
 A..... = Audio
 S..... = Subtitle
 ------
 V....D mpeg4                MPEG-4 part 2
 V..... libx264              H.264 / AVC / MPEG-4 AVC
 A....D aac                  AAC (Advanced Audio Coding)
 A....D libmp3lame           MP3 (MPEG audio layer 3)
`
	set := parseEncoderList(out)
	for _, want := range []string{"mpeg4", "libx264", "aac", "libmp3lame"} {
		if !set[want] {
			t.Fatalf("encoder %q not parsed from list", want)
		}
	}
	if set["="] || set["Video"] {
		t.Fatalf("legend rows leaked into the encoder set: %v", set)
	}
}

func TestChooseEncoderFallsBack(t *testing.T) {
	available := map[string]bool{"mpeg4": true, "aac": true}
	if got := chooseEncoder(available, videoEncoderPrefs); got != "mpeg4" {
		t.Fatalf("video encoder = %q, want mpeg4", got)
	}
	if got := chooseEncoder(available, audioEncoderPrefs); got != "aac" {
		t.Fatalf("audio encoder = %q, want aac", got)
	}
	if got := chooseEncoder(nil, videoEncoderPrefs); got != "libx264" {
		t.Fatalf("empty probe encoder = %q, want libx264", got)
	}
}

func TestReadProgress(t *testing.T) {
	var got []float64
	input := "frame=10\nout_time_us=2500000\nframe=20\nout_time_us=5000000\nprogress=end\n"
	readProgress(strings.NewReader(input), 5, func(f float64) { got = append(got, f) })
	if len(got) != 2 || got[0] != 0.5 || got[1] != 1 {
		t.Fatalf("progress fractions = %v", got)
	}
}

func TestManagerPhotoLifecycle(t *testing.T) {
	pub := &capturePublisher{}
	m := NewManager(pub, nil)
	base := imaging.New(32, 32, color.NRGBA{R: 1, G: 2, B: 3, A: 255})

	job, err := m.Start(context.Background(), Request{
		SessionID: "s1",
		Kind:      media.KindPhoto,
		Image:     ImageInputs{Base: base, Filter: filter.ComputeTransform(filter.Normal, 0)},
		Metadata:  schema.EditMetadata{Filter: "normal"},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	res, err := job.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	defer os.Remove(res.Path)

	want := []schema.ProcessingStage{schema.StageValidation, schema.StageProcessing, schema.StageCompleted}
	got := pub.stageNames()
	if len(got) != len(want) {
		t.Fatalf("stages = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("stage %d = %v, want %v", i, got[i], want[i])
		}
	}
	if len(pub.done) != 1 || pub.done[0].OutputBytes == 0 || pub.done[0].Metadata == nil {
		t.Fatalf("done event incomplete: %+v", pub.done)
	}
	if m.Active() != nil {
		t.Fatal("manager still marked in flight after completion")
	}
}

func TestManagerSingleFlight(t *testing.T) {
	m := NewManager(&capturePublisher{}, nil)
	m.active = &Job{}
	if _, err := m.Start(context.Background(), Request{Kind: media.KindPhoto}); !errors.Is(err, ErrInFlight) {
		t.Fatalf("expected ErrInFlight, got %v", err)
	}
}

func TestManagerFailureResetsForRetry(t *testing.T) {
	pub := &capturePublisher{}
	m := NewManager(pub, nil)
	lm := layer.NewManager()
	lm.AddSticker(layer.StickerOptions{ImagePath: "/no/such/sticker.png", X: 16, Y: 16})
	base := imaging.New(32, 32, color.NRGBA{A: 255})

	job, err := m.Start(context.Background(), Request{
		SessionID: "s1",
		Kind:      media.KindPhoto,
		Image:     ImageInputs{Base: base, Filter: filter.ComputeTransform(filter.Normal, 0), Layers: lm},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := job.Wait(context.Background()); err == nil {
		t.Fatal("expected failure from missing sticker file")
	}
	stages := pub.stageNames()
	if stages[len(stages)-1] != schema.StageFailed {
		t.Fatalf("last stage = %v, want failed", stages[len(stages)-1])
	}
	if m.Active() != nil {
		t.Fatal("in-flight flag not reset after failure")
	}

	// Retry with the offending layer removed succeeds.
	job2, err := m.Start(context.Background(), Request{
		SessionID: "s1",
		Kind:      media.KindPhoto,
		Image:     ImageInputs{Base: base, Filter: filter.ComputeTransform(filter.Normal, 0)},
	})
	if err != nil {
		t.Fatalf("retry Start: %v", err)
	}
	res, err := job2.Wait(context.Background())
	if err != nil {
		t.Fatalf("retry Wait: %v", err)
	}
	os.Remove(res.Path)
}

func TestVideoFallbackWithoutFFmpeg(t *testing.T) {
	if FFmpegAvailable() {
		t.Skip("ffmpeg present; fallback path not reachable")
	}
	vr, err := ExportVideo(context.Background(), VideoInputs{SourcePath: "/tmp/in.mp4", Duration: 10}, nil)
	if err != nil {
		t.Fatalf("ExportVideo: %v", err)
	}
	if vr.Reencoded || vr.Path != "/tmp/in.mp4" {
		t.Fatalf("fallback result = %+v", vr)
	}
}
