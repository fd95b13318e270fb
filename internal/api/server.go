// Package api exposes the editing engine over HTTP. Every mutation routes
// through the session registry; the session itself serializes tool access.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/reelworks/reeledit/internal/session"
	"github.com/reelworks/reeledit/internal/timeline"
	"github.com/reelworks/reeledit/pkg/schema"
)

// MusicLibrary is the catalog slice of the audio package the API proxies.
type MusicLibrary interface {
	Biblioteca(ctx context.Context) ([]schema.Track, error)
	Trending(ctx context.Context) ([]schema.Track, error)
}

// Server wires the registry and collaborators into an HTTP handler.
type Server struct {
	reg       *session.Registry
	music     MusicLibrary
	extractor timeline.FrameExtractor
	log       *slog.Logger
}

// NewServer builds the handler stack. extractor may be nil to use the
// ffmpeg one; music may be nil when no library service is configured.
func NewServer(reg *session.Registry, music MusicLibrary, extractor timeline.FrameExtractor, log *slog.Logger) *Server {
	if extractor == nil {
		extractor = timeline.FFmpegExtractor{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Server{reg: reg, music: music, extractor: extractor, log: log}
}

// Router assembles the chi routing tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/filters", s.handleListFilters)
		r.Get("/music/biblioteca", s.handleMusic((MusicLibrary).Biblioteca))
		r.Get("/music/trending", s.handleMusic((MusicLibrary).Trending))

		r.Post("/sessions", s.handleCreateSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Delete("/", s.handleCloseSession)
			r.Get("/preview", s.handlePreview)
			r.Get("/metadata", s.handleMetadata)

			r.Put("/filter", s.handleSetFilter)

			r.Route("/layers", func(r chi.Router) {
				r.Post("/text", s.handleAddTextLayer)
				r.Post("/sticker", s.handleAddStickerLayer)
				r.Post("/{layerID}/select", s.handleSelectLayer)
				r.Post("/deselect", s.handleDeselectLayers)
				r.Delete("/selected", s.handleDeleteSelectedLayer)
				r.Patch("/selected", s.handlePatchSelectedLayer)
				r.Post("/gesture/begin", s.handleGestureBegin)
				r.Post("/gesture/move", s.handleGestureMove)
				r.Post("/gesture/end", s.handleGestureEnd)
				r.Post("/gesture/cancel", s.handleGestureCancel)
				r.Post("/text-edit/begin", s.handleTextEditBegin)
				r.Post("/text-edit/commit", s.handleTextEditCommit)
			})

			r.Route("/drawing", func(r chi.Router) {
				r.Put("/brush", s.handleSetBrush)
				r.Post("/stroke", s.handleStroke)
				r.Post("/undo", s.handleDrawingUndo)
				r.Post("/redo", s.handleDrawingRedo)
				r.Post("/clear", s.handleDrawingClear)
			})

			r.Route("/transform", func(r chi.Router) {
				r.Post("/rotate", s.handleRotate)
				r.Post("/flip", s.handleFlip)
				r.Post("/crop/begin", s.handleCropBegin)
				r.Put("/crop/aspect", s.handleCropAspect)
				r.Post("/crop/drag/begin", s.handleCropDragBegin)
				r.Post("/crop/drag", s.handleCropDrag)
				r.Post("/crop/drag/end", s.handleCropDragEnd)
				r.Post("/crop/cancel", s.handleCropCancel)
				r.Post("/crop/apply", s.handleCropApply)
			})

			r.Route("/timeline", func(r chi.Router) {
				r.Post("/play", s.handleTogglePlay)
				r.Post("/tick", s.handleTick)
				r.Post("/drag/begin", s.handleTrimDragBegin)
				r.Post("/drag", s.handleTrimDrag)
				r.Post("/drag/end", s.handleTrimDragEnd)
				r.Post("/scrub/begin", s.handleScrubBegin)
				r.Post("/scrub", s.handleScrub)
				r.Post("/scrub/end", s.handleScrubEnd)
				r.Get("/thumbnails", s.handleThumbnails)
			})

			r.Route("/audio", func(r chi.Router) {
				r.Put("/", s.handleSetAudio)
				r.Delete("/", s.handleClearAudio)
			})

			r.Route("/export", func(r chi.Router) {
				r.Post("/", s.handleStartExport)
				r.Get("/status", s.handleExportStatus)
				r.Delete("/", s.handleCancelExport)
			})

			r.Post("/publish", s.handlePublish)
		})
	})
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// sess resolves the session from the URL or writes a 404.
func (s *Server) sess(w http.ResponseWriter, r *http.Request) (*session.EditSession, bool) {
	es, err := s.reg.Get(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, s.log, err)
		return nil, false
	}
	return es, true
}
