// pkg/schema/events.go
package schema

// ProcessingStage identifies where an export job is in its lifecycle.
type ProcessingStage string

const (
	StageValidation ProcessingStage = "validation"
	StageProcessing ProcessingStage = "processing"
	StageEncoding   ProcessingStage = "encoding"
	StageCompleted  ProcessingStage = "completed"
	StageFailed     ProcessingStage = "failed"
)

// FailureType classifies export failures for downstream consumers.
type FailureType string

const (
	FailureTypeRetryable  FailureType = "retryable"
	FailureTypePermanent  FailureType = "permanent"
	FailureTypeValidation FailureType = "validation"
)

// ExportLifecycleEvent is published on every export stage transition.
type ExportLifecycleEvent struct {
	SessionID       string          `json:"session_id"`
	ExportID        string          `json:"export_id"`
	MediaKind       string          `json:"media_kind"`
	Stage           ProcessingStage `json:"stage"`
	Progress        float64         `json:"progress,omitempty"`
	ProcessingStart int64           `json:"processing_start,omitempty"`
	ProcessingEnd   int64           `json:"processing_end,omitempty"`
	Error           string          `json:"error,omitempty"`
	FailureType     FailureType     `json:"failure_type,omitempty"`
	HappenedAt      int64           `json:"happened_at"`
}

// ExportDone is published once per export with the final outcome.
type ExportDone struct {
	SessionID        string                 `json:"session_id"`
	ExportID         string                 `json:"export_id"`
	MediaKind        string                 `json:"media_kind"`
	OutputPath       string                 `json:"output_path,omitempty"`
	OutputBytes      int64                  `json:"output_bytes,omitempty"`
	Reencoded        bool                   `json:"reencoded"`
	ProcessingTimeMs int64                  `json:"processing_time_ms"`
	Metadata         *EditMetadata          `json:"metadata,omitempty"`
	Lifecycle        []ExportLifecycleEvent `json:"lifecycle,omitempty"`
	Error            string                 `json:"error,omitempty"`
	FailureType      FailureType            `json:"failure_type,omitempty"`
	HappenedAt       int64                  `json:"happened_at"`
}
