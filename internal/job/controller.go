package job

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/subgen/backend/internal/media"
	"github.com/subgen/backend/internal/segment"
	"github.com/subgen/backend/internal/subtitle"
	"github.com/subgen/backend/internal/transcribe"
	"github.com/subgen/backend/internal/translate"
)

// Extractor produces the decoded audio for transcription.
type Extractor interface {
	ExtractAudio(ctx context.Context, sourcePath string) (string, error)
	CleanupAudio(wavPath string)
}

// Translator runs one translation pass over the store.
type Translator interface {
	Translate(ctx context.Context, store *segment.Store, sourceLang, targetLang string, progress func(float64)) (translate.Result, error)
}

// Embedder attaches a subtitle file to the source media.
type Embedder interface {
	Embed(ctx context.Context, sourcePath, subtitlePath string, mode media.EmbedMode, langSuffix string) (string, error)
}

// Recorder persists job records for history. Saves are best-effort;
// a persistence failure never aborts the pipeline.
type Recorder interface {
	SaveJob(j *Job) error
}

// StageWeights are the expected shares of total runtime per stage,
// used for overall progress and the remaining-time estimate.
type StageWeights struct {
	Extract    float64
	Transcribe float64
	Translate  float64
	Finalize   float64
}

// DefaultStageWeights reflect typical runs: transcription dominates.
var DefaultStageWeights = StageWeights{
	Extract:    0.05,
	Transcribe: 0.70,
	Translate:  0.20,
	Finalize:   0.05,
}

// minETAElapsed guards the linear remaining-time model against noisy
// estimates in the first moments of a run.
const minETAElapsed = 2 * time.Second

// ControllerConfig wires the controller's collaborators.
type ControllerConfig struct {
	Extractor   Extractor
	Transcriber transcribe.Transcriber
	Translator  Translator
	Embedder    Embedder
	Recorder    Recorder
	Store       *segment.Store
	Events      *EventBus
	Weights     StageWeights
}

// Controller drives the pipeline for the single active job: one
// foreground-facing API, one worker goroutine per run, communicating
// through the event bus and a cancellable context.
type Controller struct {
	extractor   Extractor
	transcriber transcribe.Transcriber
	translator  Translator
	embedder    Embedder
	recorder    Recorder
	store       *segment.Store
	events      *EventBus
	weights     StageWeights

	mu        sync.RWMutex
	current   *Job
	cancel    context.CancelFunc
	jobCtx    context.Context
	startedAt time.Time
	stage     State
	stageFrac float64
	lastFrac  float64 // last published progress fraction
}

// NewController builds a controller in the idle state.
func NewController(cfg ControllerConfig) *Controller {
	weights := cfg.Weights
	if weights == (StageWeights{}) {
		weights = DefaultStageWeights
	}
	store := cfg.Store
	if store == nil {
		store = segment.NewStore()
	}
	events := cfg.Events
	if events == nil {
		events = NewEventBus(0)
	}
	return &Controller{
		extractor:   cfg.Extractor,
		transcriber: cfg.Transcriber,
		translator:  cfg.Translator,
		embedder:    cfg.Embedder,
		recorder:    cfg.Recorder,
		store:       store,
		events:      events,
		weights:     weights,
	}
}

// Store exposes the segment store for read handlers.
func (c *Controller) Store() *segment.Store { return c.store }

// Events exposes the event bus for incremental polling.
func (c *Controller) Events() *EventBus { return c.events }

// Start begins a new pipeline run. It is rejected, not queued, while
// another job is active. The segment store is reset before the worker
// starts.
func (c *Controller) Start(req Request) (Job, error) {
	if strings.TrimSpace(req.SourcePath) == "" {
		return Job{}, errors.New("source path is required")
	}
	if req.OutputMode == "" {
		req.OutputMode = OutputFile
	}

	c.mu.Lock()
	if c.current != nil && c.current.State.Active() {
		c.mu.Unlock()
		return Job{}, ErrJobActive
	}

	now := time.Now()
	j := &Job{
		ID:        uuid.New().String(),
		Request:   req,
		State:     StateExtracting,
		CreatedAt: now,
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.current = j
	c.cancel = cancel
	c.jobCtx = ctx
	c.startedAt = now
	c.stage = StateExtracting
	c.stageFrac = 0
	c.lastFrac = 0
	c.store.Clear()
	snapshot := *j
	c.mu.Unlock()

	c.persist(j)
	c.publishState(j, StateExtracting)
	log.Printf("[job] started %s: %s (source=%s target=%s mode=%s)",
		j.ID, req.SourcePath, req.SourceLang, req.TargetLang, req.OutputMode)

	go c.run(ctx, j)
	return snapshot, nil
}

// Cancel requests cooperative cancellation of the active job. The
// worker observes it at stage boundaries; external processes and
// network calls are interrupted through the context.
func (c *Controller) Cancel() error {
	c.mu.Lock()
	if c.current == nil || !c.current.State.Active() {
		c.mu.Unlock()
		return ErrNoActiveJob
	}
	cancel := c.cancel
	resting := c.current.State == StateAwaitingEdit
	j := c.current
	c.mu.Unlock()

	cancel()
	if resting {
		// No worker or operation is in flight to observe the context.
		c.finishTerminal(j, StateCancelled, "", "")
	}
	return nil
}

// Active returns a snapshot of the current job and its progress. ok is
// false when the controller is idle (no job has run yet).
func (c *Controller) Active() (Job, Progress, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return Job{}, Progress{}, false
	}
	return *c.current, c.progressLocked(), true
}

// EditSegment changes one segment's text during the editing rest
// state.
func (c *Controller) EditSegment(index int, text string) error {
	c.mu.RLock()
	editable := c.current != nil && c.current.State == StateAwaitingEdit
	c.mu.RUnlock()
	if !editable {
		return ErrNotEditable
	}
	return c.store.EditText(index, text)
}

// Export serializes the current segments. Re-exporting is allowed any
// number of times from the editing rest state; an unsupported format
// tag fails the job.
func (c *Controller) Export(format string) (string, error) {
	c.mu.Lock()
	if c.current == nil || c.current.State != StateAwaitingEdit {
		c.mu.Unlock()
		return "", ErrNotEditable
	}
	j := c.current
	c.mu.Unlock()

	c.setStage(j, StateExporting)
	blob, err := subtitle.Export(c.store.Segments(), format)
	if err != nil {
		c.finishTerminal(j, StateFailed, StateExporting, err.Error())
		return "", err
	}
	c.setStage(j, StateAwaitingEdit)
	return blob, nil
}

// Embed attaches the current segments to the source media and returns
// the new output path, re-entering the editing rest state.
func (c *Controller) Embed(mode media.EmbedMode) (string, error) {
	c.mu.Lock()
	if c.current == nil || c.current.State != StateAwaitingEdit {
		c.mu.Unlock()
		return "", ErrNotEditable
	}
	j := c.current
	ctx := c.jobCtx
	c.mu.Unlock()

	c.setStage(j, StateEmbedding)
	outputPath, err := c.embed(ctx, j, mode)
	if err != nil {
		if ctx.Err() != nil {
			c.finishTerminal(j, StateCancelled, "", "")
		} else {
			c.finishTerminal(j, StateFailed, StateEmbedding, err.Error())
		}
		return "", err
	}

	c.mu.Lock()
	j.OutputPaths = append(j.OutputPaths, outputPath)
	c.mu.Unlock()
	c.persist(j)
	c.setStage(j, StateAwaitingEdit)
	return outputPath, nil
}

// Complete finalizes the job per its output mode and transitions to
// Completed, freeing the pipeline slot.
func (c *Controller) Complete() (Job, error) {
	c.mu.Lock()
	if c.current == nil || c.current.State != StateAwaitingEdit {
		c.mu.Unlock()
		return Job{}, ErrNotEditable
	}
	j := c.current
	ctx := c.jobCtx
	c.mu.Unlock()

	var outputs []string

	if j.Request.OutputMode == OutputFile || j.Request.OutputMode == OutputBoth {
		c.setStage(j, StateExporting)
		blob, err := subtitle.Export(c.store.Segments(), subtitle.FormatSRT)
		if err != nil {
			c.finishTerminal(j, StateFailed, StateExporting, err.Error())
			return Job{}, err
		}
		path := c.sidecarPath(j)
		if err := os.WriteFile(path, []byte(blob), 0o644); err != nil {
			err = fmt.Errorf("write subtitle file: %w", err)
			c.finishTerminal(j, StateFailed, StateExporting, err.Error())
			return Job{}, err
		}
		outputs = append(outputs, path)
	}

	if mode, ok := embedModeFor(j.Request.OutputMode); ok {
		c.setStage(j, StateEmbedding)
		outputPath, err := c.embed(ctx, j, mode)
		if err != nil {
			if ctx.Err() != nil {
				c.finishTerminal(j, StateCancelled, "", "")
			} else {
				c.finishTerminal(j, StateFailed, StateEmbedding, err.Error())
			}
			return Job{}, err
		}
		outputs = append(outputs, outputPath)
	}

	c.mu.Lock()
	j.OutputPaths = append(j.OutputPaths, outputs...)
	snapshot := *j
	c.mu.Unlock()
	c.finishTerminal(j, StateCompleted, "", "")
	snapshot.State = StateCompleted
	return snapshot, nil
}

// run is the pipeline worker: one goroutine per job, ending in
// AwaitingEdit or a terminal state.
func (c *Controller) run(ctx context.Context, j *Job) {
	audioPath, err := c.extractor.ExtractAudio(ctx, j.Request.SourcePath)
	if err != nil {
		c.failStage(ctx, j, StateExtracting, err)
		return
	}
	defer c.extractor.CleanupAudio(audioPath)
	if ctx.Err() != nil {
		c.finishTerminal(j, StateCancelled, "", "")
		return
	}

	c.setStage(j, StateTranscribing)
	result, err := c.transcriber.Transcribe(ctx, transcribe.Request{
		AudioPath: audioPath,
		Language:  j.Request.SourceLang,
	}, c.progressFn(j, StateTranscribing))
	if err != nil {
		c.failStage(ctx, j, StateTranscribing, err)
		return
	}
	if ctx.Err() != nil {
		c.finishTerminal(j, StateCancelled, "", "")
		return
	}
	if err := c.store.ReplaceAll(result.Segments); err != nil {
		c.failStage(ctx, j, StateTranscribing, err)
		return
	}
	log.Printf("[job] %s transcribed %d segments", j.ID, len(result.Segments))

	if j.Request.TargetLang != "" {
		c.setStage(j, StateTranslating)
		res, err := c.translator.Translate(ctx, c.store, j.Request.SourceLang, j.Request.TargetLang,
			c.progressFn(j, StateTranslating))
		c.mu.Lock()
		j.Translation = &res
		c.mu.Unlock()
		if err != nil {
			// The whole pass failed; transcription is intact but the
			// job surfaces the typed cause.
			c.failStage(ctx, j, StateTranslating, err)
			return
		}
		if ctx.Err() != nil {
			c.finishTerminal(j, StateCancelled, "", "")
			return
		}
		log.Printf("[job] %s translation %s: %d segments translated, %d failed",
			j.ID, res.Status, res.TranslatedSegments, res.FailedSegments)
	}

	c.setStage(j, StateAwaitingEdit)
	c.persist(j)
}

// failStage routes a stage error to Cancelled when it was caused by
// cancellation, else to Failed with the stage and typed cause.
func (c *Controller) failStage(ctx context.Context, j *Job, stage State, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		c.finishTerminal(j, StateCancelled, "", "")
		return
	}
	c.finishTerminal(j, StateFailed, stage, err.Error())
}

func (c *Controller) finishTerminal(j *Job, state State, failedStage State, errMsg string) {
	now := time.Now()
	c.mu.Lock()
	if j.State.Terminal() {
		c.mu.Unlock()
		return
	}
	j.State = state
	j.FailedStage = failedStage
	j.Error = errMsg
	j.CompletedAt = &now
	c.stage = state
	if c.cancel != nil {
		c.cancel()
	}
	c.mu.Unlock()

	c.persist(j)
	event := Event{JobID: j.ID, Type: EventState, State: state}
	if state == StateFailed {
		event.Type = EventError
		event.Message = fmt.Sprintf("%s failed: %s", failedStage, errMsg)
		log.Printf("[job] %s failed in %s: %s", j.ID, failedStage, errMsg)
	} else {
		log.Printf("[job] %s %s", j.ID, state)
	}
	c.events.Publish(event)
}

// persist saves the job record for history. Saves are best-effort per
// the Recorder contract: failures are logged, never propagated.
func (c *Controller) persist(j *Job) {
	if c.recorder == nil {
		return
	}
	c.mu.RLock()
	snapshot := *j
	c.mu.RUnlock()
	if err := c.recorder.SaveJob(&snapshot); err != nil {
		log.Printf("[job] persist %s: %v", snapshot.ID, err)
	}
}

func (c *Controller) setStage(j *Job, stage State) {
	c.mu.Lock()
	if j.State.Terminal() {
		c.mu.Unlock()
		return
	}
	j.State = stage
	c.stage = stage
	c.stageFrac = 0
	c.lastFrac = 0
	c.mu.Unlock()
	c.persist(j)
	c.publishState(j, stage)
}

func (c *Controller) publishState(j *Job, stage State) {
	progress := c.Progress()
	c.events.Publish(Event{JobID: j.ID, Type: EventState, State: stage, Progress: &progress})
}

// progressFn returns the per-stage callback handed to collaborators.
// Updates are published at 1% granularity to keep the bus quiet.
func (c *Controller) progressFn(j *Job, stage State) func(float64) {
	return func(frac float64) {
		if frac < 0 {
			frac = 0
		}
		if frac > 1 {
			frac = 1
		}
		c.mu.Lock()
		if c.stage != stage {
			c.mu.Unlock()
			return
		}
		c.stageFrac = frac
		publish := frac-c.lastFrac >= 0.01 || frac >= 1
		if publish {
			c.lastFrac = frac
		}
		c.mu.Unlock()

		if publish {
			progress := c.Progress()
			c.events.Publish(Event{JobID: j.ID, Type: EventProgress, State: stage, Progress: &progress})
		}
	}
}

// Progress computes the current stage-weighted overall fraction and
// the linear remaining-time estimate.
func (c *Controller) Progress() Progress {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.progressLocked()
}

func (c *Controller) progressLocked() Progress {
	p := Progress{Stage: c.stage, StageFraction: c.stageFrac}
	if c.current == nil {
		return p
	}

	translating := c.current.Request.TargetLang != ""
	w := c.weights
	total := w.Extract + w.Transcribe + w.Finalize
	if translating {
		total += w.Translate
	}

	var done float64
	switch c.stage {
	case StateExtracting:
		done = w.Extract * c.stageFrac
	case StateTranscribing:
		done = w.Extract + w.Transcribe*c.stageFrac
	case StateTranslating:
		done = w.Extract + w.Transcribe + w.Translate*c.stageFrac
	case StateAwaitingEdit:
		done = total - w.Finalize
	case StateExporting, StateEmbedding:
		done = total - w.Finalize + w.Finalize*c.stageFrac
	case StateCompleted:
		done = total
	case StateFailed, StateCancelled:
		done = 0
	}
	if total > 0 {
		p.Overall = done / total
	}

	// remaining ≈ elapsed/f × (1−f), clamped early in a run where the
	// fraction is too small to divide by meaningfully.
	elapsed := time.Since(c.startedAt)
	if c.stage.Active() && elapsed >= minETAElapsed && p.Overall >= 0.01 && p.Overall < 1 {
		p.ETASeconds = elapsed.Seconds() / p.Overall * (1 - p.Overall)
	}
	return p
}

// embed exports the effective text to a temp SRT and hands it to the
// embedder. The source file is never touched.
func (c *Controller) embed(ctx context.Context, j *Job, mode media.EmbedMode) (string, error) {
	blob, err := subtitle.Export(c.store.Segments(), subtitle.FormatSRT)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "subgen-embed-*.srt")
	if err != nil {
		return "", fmt.Errorf("write temp subtitle: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.WriteString(blob); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp subtitle: %w", err)
	}
	tmp.Close()

	return c.embedder.Embed(ctx, j.Request.SourcePath, tmpPath, mode, c.langSuffix(j))
}

// sidecarPath derives the subtitle file path next to the source, with
// the language code in the name when known: "movie_es.srt".
func (c *Controller) sidecarPath(j *Job) string {
	src := j.Request.SourcePath
	stem := strings.TrimSuffix(src, filepath.Ext(src))
	if suffix := c.langSuffix(j); suffix != "" {
		stem = stem + "_" + suffix
	}
	return stem + ".srt"
}

func (c *Controller) langSuffix(j *Job) string {
	if j.Request.TargetLang != "" {
		return j.Request.TargetLang
	}
	if j.Request.SourceLang != "" && j.Request.SourceLang != "auto" {
		return j.Request.SourceLang
	}
	return ""
}

func embedModeFor(mode OutputMode) (media.EmbedMode, bool) {
	switch mode {
	case OutputSoft:
		return media.EmbedSoft, true
	case OutputHard, OutputBoth:
		return media.EmbedHard, true
	default:
		return "", false
	}
}
