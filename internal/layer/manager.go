// internal/layer/manager.go
package layer

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Sentinel errors, checked with errors.Is.
var (
	ErrNoSelection    = errors.New("no layer selected")
	ErrLayerNotFound  = errors.New("layer not found")
	ErrGestureActive  = errors.New("another gesture is already active")
	ErrNoGesture      = errors.New("no gesture in progress")
	ErrNotTextLayer   = errors.New("selected layer is not a text layer")
	ErrNotEditingText = errors.New("no text edit in progress")
)

// TextOptions seeds a new text layer. Zero-value fields fall back to the
// defaults the source editor used.
type TextOptions struct {
	Content         string
	FontFamily      string
	FontSizePx      float64
	Weight          FontWeight
	Color           string
	BackgroundColor string
	Align           TextAlign
	ShadowEnabled   bool
	X, Y            float64
}

// StickerOptions seeds a new sticker layer.
type StickerOptions struct {
	Emoji     string
	ImagePath string
	WidthPx   float64
	HeightPx  float64
	X, Y      float64
}

// Manager owns the session's layer list, the at-most-one selection, and the
// per-selection gesture state machine. It is not safe for concurrent use;
// the session serializes access.
type Manager struct {
	layers     []*Layer
	selectedID string
	gesture    gestureState
	editing    bool // inline text edit in progress on the selected layer
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{}
}

// Clone returns a deep copy of the layer list for rendering outside the
// session lock. Selection and gesture state do not carry over.
func (m *Manager) Clone() *Manager {
	out := NewManager()
	out.layers = make([]*Layer, len(m.layers))
	for i, l := range m.layers {
		cp := *l
		if l.Text != nil {
			text := *l.Text
			cp.Text = &text
		}
		if l.Sticker != nil {
			sticker := *l.Sticker
			cp.Sticker = &sticker
		}
		out.layers[i] = &cp
	}
	return out
}

// AddText appends a text layer and selects it.
func (m *Manager) AddText(opts TextOptions) *Layer {
	if opts.FontFamily == "" {
		opts.FontFamily = "sans-serif"
	}
	if opts.FontSizePx <= 0 {
		opts.FontSizePx = 32
	}
	if opts.Weight == "" {
		opts.Weight = WeightNormal
	}
	if opts.Color == "" {
		opts.Color = "#ffffff"
	}
	if opts.Align == "" {
		opts.Align = AlignCenter
	}
	l := &Layer{
		ID:   uuid.NewString(),
		Kind: KindText,
		Pose: Pose{X: opts.X, Y: opts.Y, Scale: 1, Opacity: 1},
		Text: &TextStyle{
			Content:         opts.Content,
			FontFamily:      opts.FontFamily,
			FontSizePx:      opts.FontSizePx,
			Weight:          opts.Weight,
			Color:           opts.Color,
			BackgroundColor: opts.BackgroundColor,
			Align:           opts.Align,
			ShadowEnabled:   opts.ShadowEnabled,
		},
	}
	m.append(l)
	return l
}

// AddSticker appends a sticker layer and selects it.
func (m *Manager) AddSticker(opts StickerOptions) *Layer {
	if opts.WidthPx <= 0 {
		opts.WidthPx = 96
	}
	if opts.HeightPx <= 0 {
		opts.HeightPx = opts.WidthPx
	}
	l := &Layer{
		ID:   uuid.NewString(),
		Kind: KindSticker,
		Pose: Pose{X: opts.X, Y: opts.Y, Scale: 1, Opacity: 1},
		Sticker: &Sticker{
			Emoji:     opts.Emoji,
			ImagePath: opts.ImagePath,
			WidthPx:   opts.WidthPx,
			HeightPx:  opts.HeightPx,
		},
	}
	m.append(l)
	return l
}

func (m *Manager) append(l *Layer) {
	m.layers = append(m.layers, l)
	m.selectedID = l.ID
	m.gesture = gestureState{}
	m.editing = false
}

// Layers returns the z-ordered layer list (index 0 is bottom-most).
func (m *Manager) Layers() []*Layer {
	return m.layers
}

// Count returns the number of layers.
func (m *Manager) Count() int { return len(m.layers) }

// Selected returns the selected layer, or nil.
func (m *Manager) Selected() *Layer {
	if m.selectedID == "" {
		return nil
	}
	for _, l := range m.layers {
		if l.ID == m.selectedID {
			return l
		}
	}
	return nil
}

// Select makes the layer with id the unique selection. Selecting a new
// layer ends any in-progress gesture or text edit on the old one.
func (m *Manager) Select(id string) error {
	for _, l := range m.layers {
		if l.ID == id {
			if m.selectedID != id {
				m.gesture = gestureState{}
				m.editing = false
			}
			m.selectedID = id
			return nil
		}
	}
	return fmt.Errorf("select %q: %w", id, ErrLayerNotFound)
}

// DeselectAll clears the selection and aborts any gesture.
func (m *Manager) DeselectAll() {
	m.selectedID = ""
	m.gesture = gestureState{}
	m.editing = false
}

// DeleteSelected removes the selected layer from the list.
func (m *Manager) DeleteSelected() error {
	if m.selectedID == "" {
		return ErrNoSelection
	}
	for i, l := range m.layers {
		if l.ID == m.selectedID {
			m.layers = append(m.layers[:i], m.layers[i+1:]...)
			m.DeselectAll()
			return nil
		}
	}
	return ErrLayerNotFound
}

// PatchProps is a partial update of the selected layer's editable
// properties. Nil fields are left untouched.
type PatchProps struct {
	X               *float64    `json:"x,omitempty"`
	Y               *float64    `json:"y,omitempty"`
	RotationDegrees *float64    `json:"rotationDegrees,omitempty"`
	Scale           *float64    `json:"scale,omitempty"`
	Opacity         *float64    `json:"opacity,omitempty"`
	Content         *string     `json:"content,omitempty"`
	FontFamily      *string     `json:"fontFamily,omitempty"`
	FontSizePx      *float64    `json:"fontSizePx,omitempty"`
	Weight          *FontWeight `json:"weight,omitempty"`
	Color           *string     `json:"color,omitempty"`
	BackgroundColor *string     `json:"backgroundColor,omitempty"`
	Align           *TextAlign  `json:"align,omitempty"`
	ShadowEnabled   *bool       `json:"shadowEnabled,omitempty"`
}

// UpdateSelected applies a partial property update to the selected layer.
// Scale and opacity are clamped; text fields on a sticker layer are an
// error.
func (m *Manager) UpdateSelected(p PatchProps) error {
	l := m.Selected()
	if l == nil {
		return ErrNoSelection
	}
	if p.X != nil {
		l.Pose.X = *p.X
	}
	if p.Y != nil {
		l.Pose.Y = *p.Y
	}
	if p.RotationDegrees != nil {
		l.Pose.RotationDegrees = *p.RotationDegrees
	}
	if p.Scale != nil {
		l.Pose.Scale = clampScale(*p.Scale)
	}
	if p.Opacity != nil {
		l.Pose.Opacity = clampOpacity(*p.Opacity)
	}

	hasText := p.Content != nil || p.FontFamily != nil || p.FontSizePx != nil ||
		p.Weight != nil || p.Color != nil || p.BackgroundColor != nil ||
		p.Align != nil || p.ShadowEnabled != nil
	if hasText {
		if l.Kind != KindText {
			return ErrNotTextLayer
		}
		t := l.Text
		if p.Content != nil {
			t.Content = *p.Content
		}
		if p.FontFamily != nil {
			t.FontFamily = *p.FontFamily
		}
		if p.FontSizePx != nil && *p.FontSizePx > 0 {
			t.FontSizePx = *p.FontSizePx
		}
		if p.Weight != nil {
			t.Weight = *p.Weight
		}
		if p.Color != nil {
			t.Color = *p.Color
		}
		if p.BackgroundColor != nil {
			t.BackgroundColor = *p.BackgroundColor
		}
		if p.Align != nil {
			t.Align = *p.Align
		}
		if p.ShadowEnabled != nil {
			t.ShadowEnabled = *p.ShadowEnabled
		}
	}
	return nil
}

// BeginTextEdit enters inline text-editing mode on the selected text layer.
// While editing, gestures are refused until CommitTextEdit.
func (m *Manager) BeginTextEdit() error {
	l := m.Selected()
	if l == nil {
		return ErrNoSelection
	}
	if l.Kind != KindText {
		return ErrNotTextLayer
	}
	if m.gesture.phase != GestureIdle {
		return ErrGestureActive
	}
	m.editing = true
	return nil
}

// CommitTextEdit stores the edited string and exits editing mode.
func (m *Manager) CommitTextEdit(content string) error {
	if !m.editing {
		return ErrNotEditingText
	}
	l := m.Selected()
	if l == nil || l.Kind != KindText {
		m.editing = false
		return ErrNotTextLayer
	}
	l.Text.Content = content
	m.editing = false
	return nil
}

// EditingText reports whether an inline text edit is in progress.
func (m *Manager) EditingText() bool { return m.editing }
