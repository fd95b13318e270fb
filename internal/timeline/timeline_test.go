package timeline

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"
)

func TestTrimStateInvariantUnderRandomDrags(t *testing.T) {
	trim, err := NewTrimState(30)
	if err != nil {
		t.Fatalf("NewTrimState: %v", err)
	}
	drags := []struct {
		start bool
		v     float64
	}{
		{true, 5}, {false, 10}, {true, 9.8}, {false, 3}, {true, -4},
		{false, 120}, {true, 29.5}, {false, 0.2}, {true, 0}, {false, 30},
	}
	for i, d := range drags {
		if d.start {
			trim.SetStart(d.v)
		} else {
			trim.SetEnd(d.v)
		}
		if trim.Start < 0 || trim.Start > trim.End-trim.minSpan()+1e-9 || trim.End > trim.Duration {
			t.Fatalf("drag %d broke invariant: start=%v end=%v dur=%v", i, trim.Start, trim.End, trim.Duration)
		}
	}
}

func TestTrimStateShortClip(t *testing.T) {
	trim, err := NewTrimState(0.5)
	if err != nil {
		t.Fatalf("NewTrimState: %v", err)
	}
	trim.SetStart(0.4)
	if trim.Start != 0 {
		t.Fatalf("short clip start = %v, want 0 (span cannot shrink below duration)", trim.Start)
	}
}

func TestNewTrimStateRejectsNonPositiveDuration(t *testing.T) {
	if _, err := NewTrimState(0); !errors.Is(err, ErrInvalidDuration) {
		t.Fatalf("expected ErrInvalidDuration, got %v", err)
	}
}

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func TestPlaybackLoopsWithinTrimWindow(t *testing.T) {
	trim, _ := NewTrimState(30)
	trim.SetStart(5)
	trim.SetEnd(10)

	clock := &fakeClock{t: time.Unix(1000, 0)}
	c := NewController(trim, clock.now)
	if err := c.TogglePlay(); err != nil {
		t.Fatalf("play: %v", err)
	}

	// Run 12 simulated seconds in 100ms ticks; the 5s window must wrap at
	// least twice and the playhead must never escape it.
	for i := 0; i < 120; i++ {
		clock.advance(100 * time.Millisecond)
		c.Tick()
		if p := c.Playhead(); p < 5 || p > 10 {
			t.Fatalf("tick %d: playhead %v escaped [5,10]", i, p)
		}
	}
	if c.Loops() < 2 {
		t.Fatalf("loops = %d, want >= 2", c.Loops())
	}
	if c.State() != StatePlaying {
		t.Fatal("loop must never pause playback")
	}
}

func TestPlaybackPauseStopsAdvance(t *testing.T) {
	trim, _ := NewTrimState(20)
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewController(trim, clock.now)
	_ = c.TogglePlay()
	clock.advance(time.Second)
	c.Tick()
	_ = c.TogglePlay() // pause
	at := c.Playhead()
	clock.advance(5 * time.Second)
	c.Tick()
	if c.Playhead() != at {
		t.Fatalf("playhead advanced while paused: %v -> %v", at, c.Playhead())
	}
}

func TestDragHandleClampsPlayhead(t *testing.T) {
	trim, _ := NewTrimState(30)
	clock := &fakeClock{t: time.Unix(0, 0)}
	c := NewController(trim, clock.now)
	_ = c.BeginScrub(20)
	_ = c.EndScrub()
	if c.Playhead() != 20 {
		t.Fatalf("scrub seek failed: %v", c.Playhead())
	}
	if err := c.BeginDragEnd(); err != nil {
		t.Fatalf("BeginDragEnd: %v", err)
	}
	if err := c.Drag(12); err != nil {
		t.Fatalf("Drag: %v", err)
	}
	if err := c.EndDrag(); err != nil {
		t.Fatalf("EndDrag: %v", err)
	}
	if c.Playhead() > trim.End {
		t.Fatalf("playhead %v outside shrunk window end %v", c.Playhead(), trim.End)
	}
	if c.State() != StatePaused {
		t.Fatalf("state after drag = %v, want paused", c.State())
	}
}

func TestGestureExclusivity(t *testing.T) {
	trim, _ := NewTrimState(30)
	c := NewController(trim, nil)
	if err := c.BeginDragStart(); err != nil {
		t.Fatalf("BeginDragStart: %v", err)
	}
	if err := c.BeginScrub(3); !errors.Is(err, ErrDragActive) {
		t.Fatalf("expected ErrDragActive, got %v", err)
	}
	if err := c.TogglePlay(); !errors.Is(err, ErrDragActive) {
		t.Fatalf("expected ErrDragActive, got %v", err)
	}
	if err := c.Scrub(1); !errors.Is(err, ErrNotScrubbing) {
		t.Fatalf("expected ErrNotScrubbing, got %v", err)
	}
}

type fakeExtractor struct {
	timestamps []float64
	inFlight   int
	failAt     int
}

func (f *fakeExtractor) ExtractFrame(ctx context.Context, src string, at float64, w, h int) (image.Image, error) {
	f.inFlight++
	defer func() { f.inFlight-- }()
	if f.inFlight > 1 {
		return nil, errors.New("concurrent seek detected")
	}
	if f.failAt > 0 && len(f.timestamps) == f.failAt {
		return nil, errors.New("decode failed")
	}
	f.timestamps = append(f.timestamps, at)
	return image.NewNRGBA(image.Rect(0, 0, w, h)), nil
}

func TestGenerateStripSequentialAndEvenlySpaced(t *testing.T) {
	ex := &fakeExtractor{}
	frames, err := GenerateStrip(context.Background(), ex, "clip.mp4", 30, 10, 80, 45)
	if err != nil {
		t.Fatalf("GenerateStrip: %v", err)
	}
	if len(frames) != 10 {
		t.Fatalf("frame count = %d, want 10", len(frames))
	}
	for i := 1; i < len(ex.timestamps); i++ {
		if ex.timestamps[i] <= ex.timestamps[i-1] {
			t.Fatal("timestamps not strictly increasing")
		}
	}
	if last := ex.timestamps[len(ex.timestamps)-1]; last >= 30 {
		t.Fatalf("last timestamp %v seeks past the end", last)
	}
}

func TestGenerateStripStopsOnError(t *testing.T) {
	ex := &fakeExtractor{failAt: 3}
	frames, err := GenerateStrip(context.Background(), ex, "clip.mp4", 30, 10, 80, 45)
	if err == nil {
		t.Fatal("expected error from failing extractor")
	}
	if len(frames) != 3 {
		t.Fatalf("partial frames = %d, want 3", len(frames))
	}
}

func TestGenerateStripHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := &fakeExtractor{}
	if _, err := GenerateStrip(ctx, ex, "clip.mp4", 30, 10, 80, 45); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
