package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/reelworks/reeledit/internal/audio"
	"github.com/reelworks/reeledit/internal/bus"
	"github.com/reelworks/reeledit/internal/drawing"
	"github.com/reelworks/reeledit/internal/export"
	"github.com/reelworks/reeledit/internal/filter"
	"github.com/reelworks/reeledit/internal/layer"
	"github.com/reelworks/reeledit/internal/media"
	"github.com/reelworks/reeledit/internal/metrics"
	"github.com/reelworks/reeledit/internal/publish"
	"github.com/reelworks/reeledit/internal/timeline"
	"github.com/reelworks/reeledit/internal/transform"
	"github.com/reelworks/reeledit/pkg/schema"
)

var (
	ErrClosed        = errors.New("session is closed")
	ErrNotVideo      = errors.New("operation requires a video session")
	ErrNotPhoto      = errors.New("operation requires a photo session")
	ErrUnknownFilter = errors.New("unknown filter id")
	ErrNoExport      = errors.New("no finished export to publish")
	ErrNoActiveJob   = errors.New("no export in flight")
)

// PublishClient is the slice of the publish package a session needs.
type PublishClient interface {
	Submit(ctx context.Context, exportPath string, kind media.Kind, post publish.Post, meta schema.EditMetadata) (*schema.PublishResponse, error)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Bus     bus.Publisher
	Publish PublishClient
	Log     *slog.Logger
}

// EditSession is the root aggregate for one editing pass. All methods
// serialize on the session mutex: the engine serves many sessions, but
// each one is a single-document editor mutated one operation at a time.
type EditSession struct {
	ID string

	mu       sync.Mutex
	screen   Screen
	lastUsed time.Time

	src     *media.Source
	working *image.NRGBA // photo only; crop applies mutate it

	filterID  string
	intensity int

	transform transform.State
	crop      *transform.Selector
	layers    *layer.Manager
	drawing   *drawing.Canvas
	mix       *audio.MixState

	trim     *timeline.TrimState  // video only
	playback *timeline.Controller // video only

	exports    *export.Manager
	lastExport *export.Result

	deps  Deps
	owned []string // temp files this session must remove
}

// New ingests the upload and opens the session on the editing screen. On
// any error no session exists and no temp file survives.
func New(ctx context.Context, r io.Reader, filename string, declaredSize int64, deps Deps) (*EditSession, error) {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	src, err := media.Ingest(ctx, r, filename, declaredSize)
	if err != nil {
		metrics.IngestRejections.Inc()
		return nil, err
	}

	s := &EditSession{
		ID:        uuid.New().String(),
		screen:    ScreenEditing,
		lastUsed:  time.Now(),
		src:       src,
		filterID:  filter.Normal,
		intensity: 100,
		crop:      transform.NewSelector(),
		layers:    layer.NewManager(),
		mix:       audio.NewMixState(),
		exports:   export.NewManager(deps.Bus, deps.Log),
		deps:      deps,
	}

	canvasW, canvasH := src.Info.Width, src.Info.Height
	if src.Kind == media.KindPhoto {
		img, err := imaging.Open(src.Path)
		if err != nil {
			src.Close()
			return nil, fmt.Errorf("decode photo: %w", err)
		}
		s.working = imaging.Clone(img)
	} else {
		s.trim, err = timeline.NewTrimState(src.Info.Duration)
		if err != nil {
			src.Close()
			return nil, err
		}
		s.playback = timeline.NewController(s.trim, nil)
	}
	s.drawing, err = drawing.NewCanvas(canvasW, canvasH)
	if err != nil {
		src.Close()
		return nil, err
	}

	deps.Log.Info("session opened",
		"session", s.ID, "kind", src.Kind, "file", filename,
		"dims", fmt.Sprintf("%dx%d", canvasW, canvasH), "duration", src.Info.Duration)
	return s, nil
}

// Kind reports the session's media kind.
func (s *EditSession) Kind() media.Kind { return s.src.Kind }

// Screen returns the current flow position.
func (s *EditSession) Screen() Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen
}

// LastUsed is the time of the last mutation, for the janitor.
func (s *EditSession) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastUsed
}

// do serializes a mutation and rejects closed sessions.
func (s *EditSession) do(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen == ScreenClosed {
		return ErrClosed
	}
	if s.screen == ScreenExporting {
		return &ErrScreenState{Current: s.screen, Op: "edit"}
	}
	s.lastUsed = time.Now()
	return fn()
}

// SetFilter selects a catalog filter at the given intensity.
func (s *EditSession) SetFilter(id string, intensity int) error {
	return s.do(func() error {
		if !filter.Known(id) {
			return fmt.Errorf("%w: %q", ErrUnknownFilter, id)
		}
		s.filterID = id
		s.intensity = intensity
		return nil
	})
}

// Layers exposes the layer manager; callers go through Do for mutations.
func (s *EditSession) Layers(fn func(*layer.Manager) error) error {
	return s.do(func() error { return fn(s.layers) })
}

// Drawing exposes the drawing canvas under the session lock.
func (s *EditSession) Drawing(fn func(*drawing.Canvas) error) error {
	return s.do(func() error { return fn(s.drawing) })
}

// Transform exposes flip/rotate state under the session lock.
func (s *EditSession) Transform(fn func(*transform.State) error) error {
	return s.do(func() error { return fn(&s.transform) })
}

// Crop runs fn against the crop selector. When fn leaves the selector in
// the applying state is the caller's business; ApplyCrop commits.
func (s *EditSession) Crop(fn func(*transform.Selector) error) error {
	return s.do(func() error { return fn(s.crop) })
}

// ApplyCrop rerasters the working photo to the selected region.
func (s *EditSession) ApplyCrop() error {
	return s.do(func() error {
		if s.src.Kind != media.KindPhoto {
			return ErrNotPhoto
		}
		out, err := s.crop.Apply(s.working)
		if err != nil {
			return err
		}
		s.working = out
		return nil
	})
}

// Timeline runs fn against the playback controller. Video sessions only.
func (s *EditSession) Timeline(fn func(*timeline.Controller, *timeline.TrimState) error) error {
	return s.do(func() error {
		if s.playback == nil {
			return ErrNotVideo
		}
		return fn(s.playback, s.trim)
	})
}

// Audio exposes the mix state under the session lock.
func (s *EditSession) Audio(fn func(*audio.MixState) error) error {
	return s.do(func() error { return fn(s.mix) })
}

// Thumbnails generates the strip for the timeline. Video sessions only.
func (s *EditSession) Thumbnails(ctx context.Context, ex timeline.FrameExtractor, n, boxW, boxH int) ([]timeline.Frame, error) {
	s.mu.Lock()
	if s.screen == ScreenClosed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.src.Kind != media.KindVideo {
		s.mu.Unlock()
		return nil, ErrNotVideo
	}
	path, duration := s.src.Path, s.src.Info.Duration
	s.mu.Unlock()

	// The seek loop is long; it runs outside the lock against the
	// immutable source file.
	return timeline.GenerateStrip(ctx, ex, path, duration, n, boxW, boxH)
}

// Preview is the serializable live-render document.
type Preview struct {
	SessionID    string              `json:"sessionId"`
	Screen       Screen              `json:"screen"`
	MediaKind    media.Kind          `json:"mediaKind"`
	Width        int                 `json:"width"`
	Height       int                 `json:"height"`
	FilterCSS    string              `json:"filterCss"`
	TransformCSS string              `json:"transformCss"`
	Overlay      []layer.OverlayNode `json:"overlay"`
	HasDrawing   bool                `json:"hasDrawing"`
	Trim         *timeline.TrimState `json:"trim,omitempty"`
	Playhead     float64             `json:"playhead,omitempty"`
}

// RenderPreview snapshots the live document.
func (s *EditSession) RenderPreview() Preview {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := Preview{
		SessionID:    s.ID,
		Screen:       s.screen,
		MediaKind:    s.src.Kind,
		Width:        s.src.Info.Width,
		Height:       s.src.Info.Height,
		FilterCSS:    filter.ComputeTransform(s.filterID, s.intensity).CSS,
		TransformCSS: s.transform.CSSTransform(),
		Overlay:      s.layers.RenderLive(),
		HasDrawing:   s.drawing.HasDrawing(),
	}
	if s.trim != nil {
		trim := *s.trim
		p.Trim = &trim
		p.Playhead = s.playback.Playhead()
	}
	return p
}

// BuildMetadata derives the edit envelope: fields appear only when the
// matching edit was made.
func (s *EditSession) BuildMetadata() schema.EditMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buildMetadataLocked()
}

func (s *EditSession) buildMetadataLocked() schema.EditMetadata {
	var m schema.EditMetadata
	if s.trim != nil && s.trim.Trimmed() {
		start, end := s.trim.Start, s.trim.End
		m.TrimStart, m.TrimEnd = &start, &end
	}
	if s.filterID != filter.Normal && s.intensity > 0 {
		m.Filter = s.filterID
		m.FilterIntensity = s.intensity
	}
	if s.mix.HasTrack() {
		m.AudioTrackID = s.mix.TrackID
		m.AudioTrackTitle = s.mix.Title
		offset, vol, orig := s.mix.StartOffsetSeconds, s.mix.MusicVolume, s.mix.OriginalVolume
		m.AudioStartTime = &offset
		m.AudioVolume = &vol
		m.OriginalVolume = &orig
	}
	m.HasLayers = s.layers.Count() > 0
	m.HasDrawing = s.drawing.HasDrawing()
	return m
}

// StartExport moves the session to exporting and launches the job. The
// session returns to editing on failure and advances to publishing on
// success.
func (s *EditSession) StartExport(ctx context.Context) (*export.Job, error) {
	s.mu.Lock()
	if s.screen == ScreenClosed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if !s.screen.CanTransitionTo(ScreenExporting) {
		op := &ErrScreenState{Current: s.screen, Op: "start export"}
		s.mu.Unlock()
		return nil, op
	}
	req := export.Request{
		SessionID: s.ID,
		Kind:      s.src.Kind,
		Metadata:  s.buildMetadataLocked(),
	}
	ft := filter.ComputeTransform(s.filterID, s.intensity)
	if s.src.Kind == media.KindPhoto {
		// The job renders outside the session lock, so it gets deep
		// copies of the mutable tool state.
		req.Image = export.ImageInputs{
			Base:      s.working,
			Transform: s.transform,
			Filter:    ft,
			Layers:    s.layers.Clone(),
			Drawing:   s.drawing.Clone(),
		}
	} else {
		req.Video = export.VideoInputs{
			SourcePath: s.src.Path,
			Duration:   s.src.Info.Duration,
			Trim:       s.trim,
			Filter:     ft,
			Overlay:    s.videoOverlayLocked(),
		}
	}
	// The screen flips before the job launches so the completion
	// callback can never observe the pre-export screen.
	s.screen = ScreenExporting
	s.lastUsed = time.Now()
	s.mu.Unlock()

	// The job outlives the HTTP request that started it; only an explicit
	// cancel or closing the session stops it.
	job, err := s.exports.Start(context.WithoutCancel(ctx), req)
	if err != nil {
		s.mu.Lock()
		s.screen = ScreenEditing
		s.mu.Unlock()
		return nil, err
	}

	metrics.ExportsInFlight.Inc()
	started := time.Now()
	go func() {
		res, err := job.Wait(context.Background())
		metrics.ExportsInFlight.Dec()
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.ExportDuration.WithLabelValues(string(s.src.Kind), outcome).
			Observe(time.Since(started).Seconds())
		s.finishExport(res, err)
	}()
	return job, nil
}

func (s *EditSession) finishExport(res *export.Result, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen == ScreenClosed {
		if res != nil && res.Path != s.src.Path {
			os.Remove(res.Path)
		}
		return
	}
	if err != nil {
		s.deps.Log.Warn("export failed", "session", s.ID, "error", err)
		s.screen = ScreenEditing
		return
	}
	if s.lastExport != nil && s.lastExport.Path != s.src.Path {
		os.Remove(s.lastExport.Path)
	}
	s.lastExport = res
	if res.Path != s.src.Path {
		s.owned = append(s.owned, res.Path)
	}
	s.screen = ScreenPublishing
}

// ExportStatus reports the in-flight job, if any.
func (s *EditSession) ExportStatus() (*export.Job, bool) {
	j := s.exports.Active()
	return j, j != nil
}

// CancelExport aborts the in-flight job.
func (s *EditSession) CancelExport() error {
	j := s.exports.Active()
	if j == nil {
		return ErrNoActiveJob
	}
	j.Cancel()
	return nil
}

// Publish submits the finished export and closes the session on success.
func (s *EditSession) Publish(ctx context.Context, post publish.Post) (*schema.PublishResponse, error) {
	s.mu.Lock()
	if s.screen == ScreenClosed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.screen != ScreenPublishing || s.lastExport == nil {
		sc := s.screen
		s.mu.Unlock()
		return nil, fmt.Errorf("%w (screen %s)", ErrNoExport, sc)
	}
	path := s.lastExport.Path
	meta := s.lastExport.Metadata
	kind := s.src.Kind
	s.mu.Unlock()

	resp, err := s.deps.Publish.Submit(ctx, path, kind, post, meta)
	if err != nil {
		metrics.Publishes.WithLabelValues("error").Inc()
		return nil, err
	}
	if !resp.Success {
		metrics.Publishes.WithLabelValues("rejected").Inc()
		return resp, nil
	}
	metrics.Publishes.WithLabelValues("ok").Inc()
	s.Close()
	return resp, nil
}

// Close releases every resource the session owns: the source temp file
// and any export outputs, on all paths. Idempotent.
func (s *EditSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.screen == ScreenClosed {
		return
	}
	s.screen = ScreenClosed
	if j := s.exports.Active(); j != nil {
		j.Cancel()
	}
	for _, path := range s.owned {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.deps.Log.Warn("remove owned file failed", "session", s.ID, "path", path, "error", err)
		}
	}
	s.owned = nil
	if err := s.src.Close(); err != nil {
		s.deps.Log.Warn("release media source failed", "session", s.ID, "error", err)
	}
	s.deps.Log.Info("session closed", "session", s.ID)
}

// videoOverlayLocked composites layers and drawing over a transparent
// frame for the ffmpeg overlay input. Nil when the edit has neither.
func (s *EditSession) videoOverlayLocked() image.Image {
	if s.layers.Count() == 0 && !s.drawing.HasDrawing() {
		return nil
	}
	base := image.NewNRGBA(image.Rect(0, 0, s.src.Info.Width, s.src.Info.Height))
	out, err := s.layers.RenderRaster(base, 1)
	if err != nil {
		s.deps.Log.Warn("overlay raster failed, exporting without layers", "session", s.ID, "error", err)
		out = base
	}
	if s.drawing.HasDrawing() {
		out = s.drawing.RenderRaster(out)
	}
	return out
}
