package drawing

import (
	"errors"
	"testing"
)

func stroke(t *testing.T, c *Canvas, pts ...Point) {
	t.Helper()
	if err := c.StartStroke(pts[0]); err != nil {
		t.Fatalf("StartStroke: %v", err)
	}
	for _, p := range pts[1:] {
		if err := c.ContinueStroke(p); err != nil {
			t.Fatalf("ContinueStroke: %v", err)
		}
	}
	if err := c.EndStroke(); err != nil {
		t.Fatalf("EndStroke: %v", err)
	}
}

func pixels(c *Canvas) []byte {
	out := make([]byte, len(c.Image().Pix))
	copy(out, c.Image().Pix)
	return out
}

func equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestStrokePaintsPixels(t *testing.T) {
	c, err := NewCanvas(64, 64)
	if err != nil {
		t.Fatalf("NewCanvas: %v", err)
	}
	if c.HasDrawing() {
		t.Fatal("fresh canvas should be empty")
	}
	stroke(t, c, Point{X: 10, Y: 10}, Point{X: 50, Y: 50})
	if !c.HasDrawing() {
		t.Fatal("expected paint after stroke")
	}
	// A point on the segment must be painted.
	i := c.Image().PixOffset(30, 30)
	if c.Image().Pix[i+3] == 0 {
		t.Fatal("segment midpoint not painted")
	}
}

func TestCloneIsIndependentOfOriginal(t *testing.T) {
	c, err := NewCanvas(64, 64)
	if err != nil {
		t.Fatalf("NewCanvas: %v", err)
	}
	stroke(t, c, Point{X: 10, Y: 10}, Point{X: 50, Y: 50})
	snap := c.Clone()
	before := pixels(snap)

	stroke(t, c, Point{X: 55, Y: 5}, Point{X: 5, Y: 55})
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if !snap.HasDrawing() {
		t.Fatal("clone lost its paint after mutating the original")
	}
	if !equal(before, pixels(snap)) {
		t.Fatal("clone pixels changed with the original")
	}
	if snap.CurrentBrush() != c.CurrentBrush() {
		t.Fatal("clone brush should match at clone time")
	}
}

func TestUndoRedoRoundTripIsPixelIdentical(t *testing.T) {
	c, err := NewCanvas(48, 48)
	if err != nil {
		t.Fatalf("NewCanvas: %v", err)
	}
	const k = 4
	for i := 0; i < k; i++ {
		stroke(t, c, Point{X: float64(5 + i*10), Y: 5}, Point{X: float64(5 + i*10), Y: 40})
	}
	want := pixels(c)

	for i := 0; i < k; i++ {
		if !c.Undo() {
			t.Fatalf("undo %d failed", i)
		}
	}
	if c.HasDrawing() {
		t.Fatal("canvas should be empty after undoing every stroke")
	}
	if c.Undo() {
		t.Fatal("undo past empty should report false")
	}
	for i := 0; i < k; i++ {
		if !c.Redo() {
			t.Fatalf("redo %d failed", i)
		}
	}
	if !equal(pixels(c), want) {
		t.Fatal("canvas after undo/redo round trip is not pixel-identical")
	}
	if c.Redo() {
		t.Fatal("redo past newest should report false")
	}
}

func TestNewStrokeTruncatesRedoTail(t *testing.T) {
	c, _ := NewCanvas(32, 32)
	stroke(t, c, Point{X: 5, Y: 5}, Point{X: 25, Y: 5})
	stroke(t, c, Point{X: 5, Y: 15}, Point{X: 25, Y: 15})
	if !c.Undo() {
		t.Fatal("undo failed")
	}
	// Branch: draw something new; the undone stroke's redo must be gone.
	stroke(t, c, Point{X: 5, Y: 25}, Point{X: 25, Y: 25})
	if c.Redo() {
		t.Fatal("redo should be impossible after branching stroke")
	}
}

func TestHistoryCapEvictsOldest(t *testing.T) {
	h := newHistory(3)
	c, _ := NewCanvas(8, 8)
	c.history = h
	for i := 0; i < 5; i++ {
		stroke(t, c, Point{X: float64(i), Y: float64(i)})
	}
	if h.size() != 3 {
		t.Fatalf("history size = %d, want 3", h.size())
	}
	// Only the retained depth is undoable.
	n := 0
	for c.Undo() {
		n++
	}
	if n != 3 {
		t.Fatalf("undo count = %d, want 3", n)
	}
}

func TestEraserClearsPaint(t *testing.T) {
	c, _ := NewCanvas(32, 32)
	stroke(t, c, Point{X: 16, Y: 16})
	if err := c.SetBrush(Brush{Tool: ToolEraser, SizePx: 20, Opacity: 1}); err != nil {
		t.Fatalf("SetBrush: %v", err)
	}
	stroke(t, c, Point{X: 16, Y: 16})
	if c.HasDrawing() {
		t.Fatal("eraser should have cleared all paint")
	}
}

func TestMidStrokeBrushChange(t *testing.T) {
	c, _ := NewCanvas(64, 16)
	if err := c.SetBrush(Brush{Tool: ToolBrush, SizePx: 6, Color: "#ff0000", Opacity: 1}); err != nil {
		t.Fatalf("SetBrush: %v", err)
	}
	if err := c.StartStroke(Point{X: 8, Y: 8}); err != nil {
		t.Fatalf("StartStroke: %v", err)
	}
	if err := c.ContinueStroke(Point{X: 24, Y: 8}); err != nil {
		t.Fatalf("ContinueStroke: %v", err)
	}
	// Change color mid-stroke; later segments pick it up.
	if err := c.SetBrush(Brush{Tool: ToolBrush, SizePx: 6, Color: "#0000ff", Opacity: 1}); err != nil {
		t.Fatalf("SetBrush: %v", err)
	}
	if err := c.ContinueStroke(Point{X: 56, Y: 8}); err != nil {
		t.Fatalf("ContinueStroke: %v", err)
	}
	if err := c.EndStroke(); err != nil {
		t.Fatalf("EndStroke: %v", err)
	}
	early := c.Image().PixOffset(10, 8)
	late := c.Image().PixOffset(54, 8)
	if c.Image().Pix[early] < 200 {
		t.Fatal("early segment should be red")
	}
	if c.Image().Pix[late+2] < 200 {
		t.Fatal("late segment should be blue")
	}
}

func TestClearIsUndoable(t *testing.T) {
	c, _ := NewCanvas(16, 16)
	stroke(t, c, Point{X: 8, Y: 8})
	want := pixels(c)
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if c.HasDrawing() {
		t.Fatal("clear left paint behind")
	}
	if !c.Undo() {
		t.Fatal("undo after clear failed")
	}
	if !equal(pixels(c), want) {
		t.Fatal("undo after clear did not restore the stroke")
	}
}

func TestStrokeStateErrors(t *testing.T) {
	c, _ := NewCanvas(16, 16)
	if err := c.ContinueStroke(Point{}); !errors.Is(err, ErrNoStroke) {
		t.Fatalf("expected ErrNoStroke, got %v", err)
	}
	if err := c.EndStroke(); !errors.Is(err, ErrNoStroke) {
		t.Fatalf("expected ErrNoStroke, got %v", err)
	}
	if err := c.StartStroke(Point{}); err != nil {
		t.Fatalf("StartStroke: %v", err)
	}
	if err := c.StartStroke(Point{}); !errors.Is(err, ErrStrokeInProgress) {
		t.Fatalf("expected ErrStrokeInProgress, got %v", err)
	}
}
