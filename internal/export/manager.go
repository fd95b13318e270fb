package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reelworks/reeledit/internal/bus"
	"github.com/reelworks/reeledit/internal/media"
	"github.com/reelworks/reeledit/pkg/schema"
)

// ErrInFlight rejects a second export while one is running. The flag
// resets on every outcome, so a retry after failure works.
var ErrInFlight = errors.New("an export is already in progress")

// Request is one export run.
type Request struct {
	SessionID string
	Kind      media.Kind
	Image     ImageInputs
	Video     VideoInputs
	Metadata  schema.EditMetadata
}

// Result is the final outcome of a finished job.
type Result struct {
	Path      string
	Bytes     int64
	Reencoded bool
	Metadata  schema.EditMetadata
}

// Job is one in-flight or finished export.
type Job struct {
	ID string

	mu       sync.Mutex
	stage    schema.ProcessingStage
	progress float64

	cancel context.CancelFunc
	done   chan struct{}
	result *Result
	err    error
}

// Status returns the current stage and fractional progress.
func (j *Job) Status() (schema.ProcessingStage, float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.stage, j.progress
}

// Cancel aborts the job. Finished jobs ignore it.
func (j *Job) Cancel() { j.cancel() }

// Wait blocks until the job finishes or ctx expires.
func (j *Job) Wait(ctx context.Context) (*Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-j.done:
		return j.result, j.err
	}
}

func (j *Job) setProgress(p float64) {
	j.mu.Lock()
	j.progress = p
	j.mu.Unlock()
}

func (j *Job) setStage(s schema.ProcessingStage) {
	j.mu.Lock()
	j.stage = s
	j.mu.Unlock()
}

// Manager runs at most one export at a time for its session and publishes
// lifecycle events for every stage transition.
type Manager struct {
	pub bus.Publisher
	log *slog.Logger

	mu     sync.Mutex
	active *Job
}

// NewManager wires the event publisher. A nil publisher gets the no-op.
func NewManager(pub bus.Publisher, log *slog.Logger) *Manager {
	if pub == nil {
		pub = bus.Nop{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Manager{pub: pub, log: log}
}

// Active returns the currently running job, or nil.
func (m *Manager) Active() *Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Start launches the export. A second Start while one is running returns
// ErrInFlight.
func (m *Manager) Start(ctx context.Context, req Request) (*Job, error) {
	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return nil, ErrInFlight
	}
	jctx, cancel := context.WithCancel(ctx)
	job := &Job{
		ID:     uuid.New().String(),
		stage:  schema.StageValidation,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.active = job
	m.mu.Unlock()

	go m.run(jctx, job, req)
	return job, nil
}

func (m *Manager) run(ctx context.Context, job *Job, req Request) {
	started := time.Now()
	defer func() {
		job.cancel()
		m.mu.Lock()
		m.active = nil
		m.mu.Unlock()
		close(job.done)
	}()

	var events []schema.ExportLifecycleEvent
	emit := func(stage schema.ProcessingStage, errText string, ft schema.FailureType) {
		job.setStage(stage)
		ev := schema.ExportLifecycleEvent{
			SessionID:   req.SessionID,
			ExportID:    job.ID,
			MediaKind:   string(req.Kind),
			Stage:       stage,
			Error:       errText,
			FailureType: ft,
			HappenedAt:  time.Now().UnixMilli(),
		}
		if stage == schema.StageProcessing || stage == schema.StageEncoding {
			ev.ProcessingStart = started.UnixMilli()
		}
		if stage == schema.StageCompleted || stage == schema.StageFailed {
			ev.ProcessingEnd = time.Now().UnixMilli()
		}
		events = append(events, ev)
		if err := m.pub.ExportStage(ev); err != nil {
			m.log.Warn("publish lifecycle event failed", "stage", stage, "error", err)
		}
	}

	emit(schema.StageValidation, "", "")

	result, err := m.execute(ctx, job, req, emit)
	if err != nil {
		ft := classify(ctx, err)
		emit(schema.StageFailed, err.Error(), ft)
		m.publishDone(job, req, nil, events, err, ft, started)
		job.err = err
		return
	}

	job.setProgress(1)
	emit(schema.StageCompleted, "", "")
	m.publishDone(job, req, result, events, nil, "", started)
	job.result = result
}

func (m *Manager) execute(ctx context.Context, job *Job, req Request, emit func(schema.ProcessingStage, string, schema.FailureType)) (*Result, error) {
	switch req.Kind {
	case media.KindPhoto:
		emit(schema.StageProcessing, "", "")
		path, err := ExportImage(req.Image)
		if err != nil {
			return nil, err
		}
		return finishResult(path, true, req.Metadata)
	case media.KindVideo:
		emit(schema.StageEncoding, "", "")
		vr, err := ExportVideo(ctx, req.Video, job.setProgress)
		if err != nil {
			return nil, err
		}
		if !vr.Reencoded {
			m.log.Info("ffmpeg unavailable, exporting original with metadata",
				"session", req.SessionID)
		}
		return finishResult(vr.Path, vr.Reencoded, req.Metadata)
	default:
		return nil, fmt.Errorf("unknown media kind %q", req.Kind)
	}
}

func finishResult(path string, reencoded bool, meta schema.EditMetadata) (*Result, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat export output: %w", err)
	}
	return &Result{Path: path, Bytes: st.Size(), Reencoded: reencoded, Metadata: meta}, nil
}

func (m *Manager) publishDone(job *Job, req Request, result *Result, events []schema.ExportLifecycleEvent, runErr error, ft schema.FailureType, started time.Time) {
	done := schema.ExportDone{
		SessionID:        req.SessionID,
		ExportID:         job.ID,
		MediaKind:        string(req.Kind),
		ProcessingTimeMs: time.Since(started).Milliseconds(),
		Lifecycle:        events,
		HappenedAt:       time.Now().UnixMilli(),
	}
	if result != nil {
		done.OutputPath = result.Path
		done.OutputBytes = result.Bytes
		done.Reencoded = result.Reencoded
		md := result.Metadata
		done.Metadata = &md
	}
	if runErr != nil {
		done.Error = runErr.Error()
		done.FailureType = ft
	}
	if err := m.pub.ExportDone(done); err != nil {
		m.log.Warn("publish export done failed", "error", err)
	}
}

func classify(ctx context.Context, err error) schema.FailureType {
	var verr *media.ValidationError
	switch {
	case errors.As(err, &verr):
		return schema.FailureTypeValidation
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), ctx.Err() != nil:
		return schema.FailureTypeRetryable
	default:
		return schema.FailureTypePermanent
	}
}
