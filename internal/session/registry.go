package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/reelworks/reeledit/internal/metrics"
)

// ErrSessionNotFound means the id is unknown or already closed.
var ErrSessionNotFound = errors.New("session not found")

// Registry tracks the live sessions by id and reaps idle ones.
type Registry struct {
	deps    Deps
	idleTTL time.Duration

	mu       sync.Mutex
	sessions map[string]*EditSession
}

// NewRegistry builds an empty registry. idleTTL bounds how long an
// untouched session survives.
func NewRegistry(deps Deps, idleTTL time.Duration) *Registry {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &Registry{
		deps:     deps,
		idleTTL:  idleTTL,
		sessions: make(map[string]*EditSession),
	}
}

// Open ingests the upload and registers the resulting session.
func (r *Registry) Open(ctx context.Context, body io.Reader, filename string, declaredSize int64) (*EditSession, error) {
	s, err := New(ctx, body, filename, declaredSize, r.deps)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.sessions[s.ID] = s
	r.mu.Unlock()
	metrics.SessionsOpened.Inc()
	metrics.ActiveSessions.Inc()
	return s, nil
}

// Get looks up a live session.
func (r *Registry) Get(id string) (*EditSession, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if !ok || s.Screen() == ScreenClosed {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Close ends the session and drops it from the registry.
func (r *Registry) Close(id string) error {
	r.mu.Lock()
	s, ok := r.sessions[id]
	delete(r.sessions, id)
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	s.Close()
	metrics.ActiveSessions.Dec()
	return nil
}

// Len counts live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll releases every session, for shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	all := make([]*EditSession, 0, len(r.sessions))
	for _, s := range r.sessions {
		all = append(all, s)
	}
	r.sessions = make(map[string]*EditSession)
	r.mu.Unlock()
	for _, s := range all {
		s.Close()
		metrics.ActiveSessions.Dec()
	}
}

// RunJanitor sweeps idle sessions until ctx is done.
func (r *Registry) RunJanitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.sweep(time.Now())
		}
	}
}

func (r *Registry) sweep(now time.Time) {
	r.mu.Lock()
	var expired []*EditSession
	for id, s := range r.sessions {
		if now.Sub(s.LastUsed()) > r.idleTTL {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range expired {
		r.deps.Log.Info("reaping idle session", "session", s.ID)
		s.Close()
		metrics.ActiveSessions.Dec()
		metrics.SessionsExpired.Inc()
	}
}
