package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/reelworks/reeledit/internal/audio"
	"github.com/reelworks/reeledit/internal/drawing"
	"github.com/reelworks/reeledit/internal/filter"
	"github.com/reelworks/reeledit/internal/layer"
	"github.com/reelworks/reeledit/internal/publish"
	"github.com/reelworks/reeledit/internal/session"
	"github.com/reelworks/reeledit/internal/timeline"
	"github.com/reelworks/reeledit/internal/transform"
	"github.com/reelworks/reeledit/pkg/schema"
)

const maxUploadMemory = 8 << 20

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %v", errBadRequest, err)
	}
	return nil
}

// --- sessions ---

type sessionCreated struct {
	SessionID string  `json:"sessionId"`
	Kind      string  `json:"kind"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
	Duration  float64 `json:"duration,omitempty"`
	Screen    string  `json:"screen"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, s.log, fmt.Errorf("%w: parse multipart: %v", errBadRequest, err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, s.log, fmt.Errorf("%w: missing file field", errBadRequest))
		return
	}
	defer file.Close()

	es, err := s.reg.Open(r.Context(), file, header.Filename, header.Size)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	p := es.RenderPreview()
	writeJSON(w, http.StatusCreated, sessionCreated{
		SessionID: es.ID,
		Kind:      string(es.Kind()),
		Width:     p.Width,
		Height:    p.Height,
		Duration:  durationOf(p),
		Screen:    p.Screen.String(),
	})
}

func durationOf(p session.Preview) float64 {
	if p.Trim == nil {
		return 0
	}
	return p.Trim.Duration
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.reg.Close(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, es.RenderPreview())
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, es.BuildMetadata())
}

// --- filters ---

func (s *Server) handleListFilters(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, filter.List())
}

func (s *Server) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	var req struct {
		Filter    string `json:"filter"`
		Intensity int    `json:"intensity"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if err := es.SetFilter(req.Filter, req.Intensity); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, es.RenderPreview())
}

// --- layers ---

func (s *Server) handleAddTextLayer(w http.ResponseWriter, r *http.Request) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	var opts layer.TextOptions
	if err := decodeJSON(r, &opts); err != nil {
		writeError(w, s.log, err)
		return
	}
	var added *layer.Layer
	if err := es.Layers(func(m *layer.Manager) error {
		added = m.AddText(opts)
		return nil
	}); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleAddStickerLayer(w http.ResponseWriter, r *http.Request) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	var opts layer.StickerOptions
	if err := decodeJSON(r, &opts); err != nil {
		writeError(w, s.log, err)
		return
	}
	var added *layer.Layer
	if err := es.Layers(func(m *layer.Manager) error {
		added = m.AddSticker(opts)
		return nil
	}); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleSelectLayer(w http.ResponseWriter, r *http.Request) {
	s.layerOp(w, r, func(m *layer.Manager) error {
		return m.Select(chi.URLParam(r, "layerID"))
	})
}

func (s *Server) handleDeselectLayers(w http.ResponseWriter, r *http.Request) {
	s.layerOp(w, r, func(m *layer.Manager) error {
		m.DeselectAll()
		return nil
	})
}

func (s *Server) handleDeleteSelectedLayer(w http.ResponseWriter, r *http.Request) {
	s.layerOp(w, r, (*layer.Manager).DeleteSelected)
}

func (s *Server) handlePatchSelectedLayer(w http.ResponseWriter, r *http.Request) {
	var props layer.PatchProps
	if err := decodeJSON(r, &props); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.layerOp(w, r, func(m *layer.Manager) error {
		return m.UpdateSelected(props)
	})
}

func (s *Server) handleGestureBegin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phase   layer.GesturePhase `json:"phase"`
		Pointer layer.Point        `json:"pointer"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.layerOp(w, r, func(m *layer.Manager) error {
		return m.BeginGesture(req.Phase, req.Pointer)
	})
}

func (s *Server) handleGestureMove(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pointer layer.Point `json:"pointer"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.layerOp(w, r, func(m *layer.Manager) error {
		return m.UpdateGesture(req.Pointer)
	})
}

func (s *Server) handleGestureEnd(w http.ResponseWriter, r *http.Request) {
	s.layerOp(w, r, (*layer.Manager).EndGesture)
}

func (s *Server) handleGestureCancel(w http.ResponseWriter, r *http.Request) {
	s.layerOp(w, r, (*layer.Manager).CancelGesture)
}

func (s *Server) handleTextEditBegin(w http.ResponseWriter, r *http.Request) {
	s.layerOp(w, r, (*layer.Manager).BeginTextEdit)
}

func (s *Server) handleTextEditCommit(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content string `json:"content"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.layerOp(w, r, func(m *layer.Manager) error {
		return m.CommitTextEdit(req.Content)
	})
}

// layerOp runs a layer mutation and answers with the refreshed overlay.
func (s *Server) layerOp(w http.ResponseWriter, r *http.Request, fn func(*layer.Manager) error) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	if err := es.Layers(fn); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, es.RenderPreview().Overlay)
}

// --- drawing ---

func (s *Server) handleSetBrush(w http.ResponseWriter, r *http.Request) {
	var b drawing.Brush
	if err := decodeJSON(r, &b); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.drawingOp(w, r, func(c *drawing.Canvas) error {
		return c.SetBrush(b)
	})
}

// handleStroke replays a full stroke: start, the recorded points, end.
func (s *Server) handleStroke(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Points []drawing.Point `json:"points"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if len(req.Points) == 0 {
		writeError(w, s.log, fmt.Errorf("%w: stroke needs at least one point", errBadRequest))
		return
	}
	s.drawingOp(w, r, func(c *drawing.Canvas) error {
		if err := c.StartStroke(req.Points[0]); err != nil {
			return err
		}
		for _, p := range req.Points[1:] {
			if err := c.ContinueStroke(p); err != nil {
				return err
			}
		}
		return c.EndStroke()
	})
}

func (s *Server) handleDrawingUndo(w http.ResponseWriter, r *http.Request) {
	s.drawingOp(w, r, func(c *drawing.Canvas) error {
		c.Undo()
		return nil
	})
}

func (s *Server) handleDrawingRedo(w http.ResponseWriter, r *http.Request) {
	s.drawingOp(w, r, func(c *drawing.Canvas) error {
		c.Redo()
		return nil
	})
}

func (s *Server) handleDrawingClear(w http.ResponseWriter, r *http.Request) {
	s.drawingOp(w, r, (*drawing.Canvas).Clear)
}

func (s *Server) drawingOp(w http.ResponseWriter, r *http.Request, fn func(*drawing.Canvas) error) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	if err := es.Drawing(fn); err != nil {
		writeError(w, s.log, err)
		return
	}
	var hasDrawing bool
	_ = es.Drawing(func(c *drawing.Canvas) error {
		hasDrawing = c.HasDrawing()
		return nil
	})
	writeJSON(w, http.StatusOK, map[string]bool{"hasDrawing": hasDrawing})
}

// --- transform & crop ---

func (s *Server) handleRotate(w http.ResponseWriter, r *http.Request) {
	s.transformOp(w, r, func(t *transform.State) error {
		t.RotateClockwise()
		return nil
	})
}

func (s *Server) handleFlip(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Axis string `json:"axis"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.transformOp(w, r, func(t *transform.State) error {
		switch req.Axis {
		case "horizontal":
			t.ToggleFlipHorizontal()
		case "vertical":
			t.ToggleFlipVertical()
		default:
			return fmt.Errorf("%w: axis must be horizontal or vertical", errBadRequest)
		}
		return nil
	})
}

func (s *Server) transformOp(w http.ResponseWriter, r *http.Request, fn func(*transform.State) error) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	if err := es.Transform(fn); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, es.RenderPreview())
}

func (s *Server) handleCropBegin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Aspect transform.AspectRatio `json:"aspect"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	if req.Aspect == "" {
		req.Aspect = transform.AspectFree
	}
	s.cropOp(w, r, func(sel *transform.Selector) error {
		return sel.Begin(req.Aspect)
	})
}

func (s *Server) handleCropAspect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Aspect transform.AspectRatio `json:"aspect"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.cropOp(w, r, func(sel *transform.Selector) error {
		return sel.SetAspect(req.Aspect)
	})
}

func (s *Server) handleCropDragBegin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle  transform.Handle       `json:"handle"`
		Pointer transform.PointPercent `json:"pointer"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.cropOp(w, r, func(sel *transform.Selector) error {
		return sel.BeginDrag(req.Handle, req.Pointer)
	})
}

func (s *Server) handleCropDrag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Pointer transform.PointPercent `json:"pointer"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.cropOp(w, r, func(sel *transform.Selector) error {
		return sel.Drag(req.Pointer)
	})
}

func (s *Server) handleCropDragEnd(w http.ResponseWriter, r *http.Request) {
	s.cropOp(w, r, (*transform.Selector).EndDrag)
}

func (s *Server) handleCropCancel(w http.ResponseWriter, r *http.Request) {
	s.cropOp(w, r, func(sel *transform.Selector) error {
		sel.Cancel()
		return nil
	})
}

func (s *Server) handleCropApply(w http.ResponseWriter, r *http.Request) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	if err := es.ApplyCrop(); err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, es.RenderPreview())
}

func (s *Server) cropOp(w http.ResponseWriter, r *http.Request, fn func(*transform.Selector) error) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	var region transform.RegionPercent
	err := es.Crop(func(sel *transform.Selector) error {
		if err := fn(sel); err != nil {
			return err
		}
		region = sel.Region()
		return nil
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, region)
}

// --- timeline ---

type timelineState struct {
	State    string  `json:"state"`
	Playhead float64 `json:"playhead"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
	Loops    int     `json:"loops"`
}

func (s *Server) handleTogglePlay(w http.ResponseWriter, r *http.Request) {
	s.timelineOp(w, r, func(c *timeline.Controller, _ *timeline.TrimState) error {
		return c.TogglePlay()
	})
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	s.timelineOp(w, r, func(c *timeline.Controller, _ *timeline.TrimState) error {
		c.Tick()
		return nil
	})
}

func (s *Server) handleTrimDragBegin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle string `json:"handle"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.timelineOp(w, r, func(c *timeline.Controller, _ *timeline.TrimState) error {
		switch req.Handle {
		case "start":
			return c.BeginDragStart()
		case "end":
			return c.BeginDragEnd()
		default:
			return fmt.Errorf("%w: handle must be start or end", errBadRequest)
		}
	})
}

func (s *Server) handleTrimDrag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds float64 `json:"seconds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.timelineOp(w, r, func(c *timeline.Controller, _ *timeline.TrimState) error {
		return c.Drag(req.Seconds)
	})
}

func (s *Server) handleTrimDragEnd(w http.ResponseWriter, r *http.Request) {
	s.timelineOp(w, r, func(c *timeline.Controller, _ *timeline.TrimState) error {
		return c.EndDrag()
	})
}

func (s *Server) handleScrubBegin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds float64 `json:"seconds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.timelineOp(w, r, func(c *timeline.Controller, _ *timeline.TrimState) error {
		return c.BeginScrub(req.Seconds)
	})
}

func (s *Server) handleScrub(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seconds float64 `json:"seconds"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	s.timelineOp(w, r, func(c *timeline.Controller, _ *timeline.TrimState) error {
		return c.Scrub(req.Seconds)
	})
}

func (s *Server) handleScrubEnd(w http.ResponseWriter, r *http.Request) {
	s.timelineOp(w, r, func(c *timeline.Controller, _ *timeline.TrimState) error {
		return c.EndScrub()
	})
}

func (s *Server) timelineOp(w http.ResponseWriter, r *http.Request, fn func(*timeline.Controller, *timeline.TrimState) error) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	var state timelineState
	err := es.Timeline(func(c *timeline.Controller, trim *timeline.TrimState) error {
		if err := fn(c, trim); err != nil {
			return err
		}
		state = timelineState{
			State:    string(c.State()),
			Playhead: c.Playhead(),
			Start:    trim.Start,
			End:      trim.End,
			Duration: trim.Duration,
			Loops:    c.Loops(),
		}
		return nil
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type thumbnail struct {
	Index     int     `json:"index"`
	Timestamp float64 `json:"timestamp"`
	Width     int     `json:"width"`
	Height    int     `json:"height"`
}

func (s *Server) handleThumbnails(w http.ResponseWriter, r *http.Request) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	n := queryInt(r, "n", 10)
	boxW := queryInt(r, "w", 80)
	boxH := queryInt(r, "h", 45)
	frames, err := es.Thumbnails(r.Context(), s.extractor, n, boxW, boxH)
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	out := make([]thumbnail, len(frames))
	for i, f := range frames {
		b := f.Image.Bounds()
		out[i] = thumbnail{Index: f.Index, Timestamp: f.Timestamp, Width: b.Dx(), Height: b.Dy()}
	}
	writeJSON(w, http.StatusOK, out)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

// --- audio ---

func (s *Server) handleSetAudio(w http.ResponseWriter, r *http.Request) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	var req struct {
		Track          *schema.Track `json:"track,omitempty"`
		StartOffset    *float64      `json:"startOffset,omitempty"`
		MusicVolume    *float64      `json:"musicVolume,omitempty"`
		OriginalVolume *float64      `json:"originalVolume,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	var state audio.MixState
	err := es.Audio(func(m *audio.MixState) error {
		if req.Track != nil {
			m.SetTrack(*req.Track)
		}
		if req.StartOffset != nil {
			m.SetStartOffset(*req.StartOffset)
		}
		if req.MusicVolume != nil {
			m.SetMusicVolume(*req.MusicVolume)
		}
		if req.OriginalVolume != nil {
			m.SetOriginalVolume(*req.OriginalVolume)
		}
		state = *m
		return nil
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleClearAudio(w http.ResponseWriter, r *http.Request) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	if err := es.Audio(func(m *audio.MixState) error {
		m.ClearTrack()
		return nil
	}); err != nil {
		writeError(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMusic(fetch func(MusicLibrary, context.Context) ([]schema.Track, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.music == nil {
			writeJSON(w, http.StatusOK, []schema.Track{})
			return
		}
		tracks, err := fetch(s.music, r.Context())
		if err != nil {
			writeError(w, s.log, err)
			return
		}
		writeJSON(w, http.StatusOK, tracks)
	}
}

// --- export & publish ---

func (s *Server) handleStartExport(w http.ResponseWriter, r *http.Request) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	job, err := es.StartExport(r.Context())
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	stage, _ := job.Status()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"exportId": job.ID,
		"stage":    stage,
	})
}

func (s *Server) handleExportStatus(w http.ResponseWriter, r *http.Request) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	job, running := es.ExportStatus()
	if !running {
		writeJSON(w, http.StatusOK, map[string]any{
			"running": false,
			"screen":  es.Screen().String(),
		})
		return
	}
	stage, progress := job.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"running":  true,
		"exportId": job.ID,
		"stage":    stage,
		"progress": progress,
	})
}

func (s *Server) handleCancelExport(w http.ResponseWriter, r *http.Request) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	if err := es.CancelExport(); err != nil {
		writeError(w, s.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	es, ok := s.sess(w, r)
	if !ok {
		return
	}
	var req struct {
		Caption       string `json:"caption"`
		Side          string `json:"side"`
		Free          bool   `json:"free"`
		AllowComments bool   `json:"allowComments"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, s.log, err)
		return
	}
	resp, err := es.Publish(r.Context(), publish.Post{
		Caption:       req.Caption,
		Side:          publish.Side(req.Side),
		Free:          req.Free,
		AllowComments: req.AllowComments,
	})
	if err != nil {
		writeError(w, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}
