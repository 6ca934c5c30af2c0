// Package job owns the pipeline state machine: one active job at a
// time, driven through extraction, transcription, optional
// translation, editing, and export/embedding, with progress reporting
// and cooperative cancellation.
package job

import (
	"errors"
	"time"

	"github.com/subgen/backend/internal/translate"
)

// State is one node of the job state machine. Transitions are strictly
// forward except AwaitingEdit, which export and embed operations
// re-enter repeatedly.
type State string

const (
	StateIdle         State = "idle"
	StateExtracting   State = "extracting"
	StateTranscribing State = "transcribing"
	StateTranslating  State = "translating"
	StateAwaitingEdit State = "awaiting_edit"
	StateExporting    State = "exporting"
	StateEmbedding    State = "embedding"
	StateCompleted    State = "completed"
	StateFailed       State = "failed"
	StateCancelled    State = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Active reports whether a job in this state occupies the single
// pipeline slot.
func (s State) Active() bool {
	return s != StateIdle && !s.Terminal()
}

// OutputMode selects what Complete produces from the edited segments.
type OutputMode string

const (
	// OutputFile writes a sidecar subtitle file next to the source.
	OutputFile OutputMode = "file"
	// OutputSoft muxes a selectable subtitle stream into a new file.
	OutputSoft OutputMode = "soft"
	// OutputHard burns subtitles into re-encoded video frames.
	OutputHard OutputMode = "hard"
	// OutputBoth writes the sidecar file and hard-embeds.
	OutputBoth OutputMode = "both"
)

// ParseOutputMode validates a mode tag from a request. Empty defaults
// to a sidecar file.
func ParseOutputMode(s string) (OutputMode, error) {
	switch OutputMode(s) {
	case "":
		return OutputFile, nil
	case OutputFile, OutputSoft, OutputHard, OutputBoth:
		return OutputMode(s), nil
	default:
		return "", errors.New("unknown output mode: " + s)
	}
}

// Request is one user-initiated pipeline run.
type Request struct {
	SourcePath string     `json:"source_path"`
	SourceLang string     `json:"source_lang"` // "auto" or ISO 639 code
	TargetLang string     `json:"target_lang"` // empty disables translation
	OutputMode OutputMode `json:"output_mode"`
}

// Job is the record of one run, persisted for history.
type Job struct {
	ID          string            `json:"id"`
	Request     Request           `json:"request"`
	State       State             `json:"state"`
	FailedStage State             `json:"failed_stage,omitempty"`
	Error       string            `json:"error,omitempty"`
	Translation *translate.Result `json:"translation,omitempty"`
	OutputPaths []string          `json:"output_paths,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	CompletedAt *time.Time        `json:"completed_at,omitempty"`
}

// Progress is the poll-able view of pipeline advancement. Overall is
// stage-weighted across the whole run; ETASeconds is zero when no
// estimate is available yet.
type Progress struct {
	Stage         State   `json:"stage"`
	StageFraction float64 `json:"stage_fraction"`
	Overall       float64 `json:"overall"`
	ETASeconds    float64 `json:"eta_seconds"`
}

// ErrJobActive is returned by Start while another job occupies the
// pipeline slot; a second job is rejected, never queued.
var ErrJobActive = errors.New("a job is already active")

// ErrNoActiveJob is returned by operations that need an active job.
var ErrNoActiveJob = errors.New("no active job")

// ErrNotEditable is returned when export, embed, or edit operations
// arrive outside the AwaitingEdit rest state.
var ErrNotEditable = errors.New("job is not awaiting edits")
