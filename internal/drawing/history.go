// internal/drawing/history.go
package drawing

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
)

// maxHistoryDepth bounds retained snapshots; the oldest entry is evicted
// first. Matches the source editor's cap.
const maxHistoryDepth = 50

// history is a linear undo stack of PNG-encoded full-canvas snapshots.
// index -1 means "empty canvas"; a new push truncates any redo tail.
type history struct {
	snapshots [][]byte
	index     int
	depth     int
}

func newHistory(depth int) *history {
	if depth < 1 {
		depth = 1
	}
	return &history{index: -1, depth: depth}
}

func (h *history) push(img *image.NRGBA) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	// Drop the redo tail beyond the current index.
	h.snapshots = h.snapshots[:h.index+1]
	h.snapshots = append(h.snapshots, buf.Bytes())
	if len(h.snapshots) > h.depth {
		h.snapshots = h.snapshots[1:]
	}
	h.index = len(h.snapshots) - 1
	return nil
}

// undo steps back and returns the snapshot to restore; a nil image with
// ok=true means "restore to empty".
func (h *history) undo() (*image.NRGBA, bool) {
	if h.index < 0 {
		return nil, false
	}
	h.index--
	if h.index < 0 {
		return nil, true
	}
	return h.decode(h.index), true
}

func (h *history) redo() (*image.NRGBA, bool) {
	if h.index >= len(h.snapshots)-1 {
		return nil, false
	}
	h.index++
	return h.decode(h.index), true
}

func (h *history) decode(i int) *image.NRGBA {
	img, err := png.Decode(bytes.NewReader(h.snapshots[i]))
	if err != nil {
		// Snapshots are produced by our own encoder; a decode failure
		// means corrupted memory, not user input.
		panic(fmt.Sprintf("drawing: decode history snapshot %d: %v", i, err))
	}
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x, y, img.At(x, y))
		}
	}
	return out
}

func (h *history) size() int { return len(h.snapshots) }
