// internal/layer/live.go
package layer

import "fmt"

// OverlayNode is the live-preview description of one layer: everything a
// thin client needs to place the overlay with plain CSS. It is derived from
// the same pose model the raster path reads, so the two renders cannot
// silently diverge.
type OverlayNode struct {
	ID        string     `json:"id"`
	Kind      Kind       `json:"kind"`
	Transform string     `json:"transform"`
	Opacity   float64    `json:"opacity"`
	ZIndex    int        `json:"zIndex"`
	Selected  bool       `json:"selected"`
	Text      *TextStyle `json:"text,omitempty"`
	Sticker   *Sticker   `json:"sticker,omitempty"`
}

// RenderLive returns overlay nodes for every layer in z order.
func (m *Manager) RenderLive() []OverlayNode {
	nodes := make([]OverlayNode, 0, len(m.layers))
	for i, l := range m.layers {
		nodes = append(nodes, OverlayNode{
			ID:   l.ID,
			Kind: l.Kind,
			Transform: fmt.Sprintf("translate(%.2fpx, %.2fpx) rotate(%.2fdeg) scale(%.4g)",
				l.Pose.X, l.Pose.Y, l.Pose.RotationDegrees, l.Pose.Scale),
			Opacity:  l.Pose.Opacity,
			ZIndex:   i,
			Selected: l.ID == m.selectedID,
			Text:     l.Text,
			Sticker:  l.Sticker,
		})
	}
	return nodes
}
