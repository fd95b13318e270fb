package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/reelworks/reeledit/internal/drawing"
	"github.com/reelworks/reeledit/internal/export"
	"github.com/reelworks/reeledit/internal/layer"
	"github.com/reelworks/reeledit/internal/media"
	"github.com/reelworks/reeledit/internal/session"
	"github.com/reelworks/reeledit/internal/timeline"
	"github.com/reelworks/reeledit/internal/transform"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses: validation 400, not
// found 404, state conflicts 409, everything else 500.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	status := http.StatusInternalServerError

	var verr *media.ValidationError
	var screenErr *session.ErrScreenState
	switch {
	case errors.As(err, &verr),
		errors.Is(err, session.ErrUnknownFilter),
		errors.Is(err, session.ErrNotVideo),
		errors.Is(err, session.ErrNotPhoto),
		errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrSessionNotFound),
		errors.Is(err, layer.ErrLayerNotFound):
		status = http.StatusNotFound
	case errors.As(err, &screenErr),
		errors.Is(err, session.ErrClosed),
		errors.Is(err, session.ErrNoExport),
		errors.Is(err, session.ErrNoActiveJob),
		errors.Is(err, export.ErrInFlight),
		errors.Is(err, layer.ErrNoSelection),
		errors.Is(err, layer.ErrGestureActive),
		errors.Is(err, layer.ErrNoGesture),
		errors.Is(err, layer.ErrNotTextLayer),
		errors.Is(err, layer.ErrNotEditingText),
		errors.Is(err, drawing.ErrStrokeInProgress),
		errors.Is(err, drawing.ErrNoStroke),
		errors.Is(err, transform.ErrNoCropInProgress),
		errors.Is(err, transform.ErrCropDragActive),
		errors.Is(err, transform.ErrNoCropDrag),
		errors.Is(err, timeline.ErrDragActive),
		errors.Is(err, timeline.ErrNotDragging),
		errors.Is(err, timeline.ErrNotScrubbing):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		log.Error("request failed", "error", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// errBadRequest tags malformed client input (bad JSON, bad enum values).
var errBadRequest = errors.New("bad request")
