package translate

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/subgen/backend/internal/segment"
)

// TranslationError means the whole pass failed: every batch exhausted
// a pool in which every endpoint is unreachable. Already-transcribed
// segments stay usable.
type TranslationError struct {
	Message string
}

func (e *TranslationError) Error() string {
	return "translate: " + e.Message
}

// Config carries the fallback policy knobs. The retry counts and
// timeouts are tuned empirically, so they are configuration rather
// than constants.
type Config struct {
	MaxCharsPerBatch       int           // character budget per request payload
	MaxSegmentsPerBatch    int           // hard cap on texts per request
	AttemptsPerEndpoint    int           // attempts per endpoint before fallback
	MaxInFlightPerEndpoint int           // concurrent requests per endpoint
	StageTimeout           time.Duration // wall-clock ceiling for one pass
}

func (c Config) withDefaults() Config {
	if c.MaxCharsPerBatch <= 0 {
		c.MaxCharsPerBatch = 1500
	}
	if c.MaxSegmentsPerBatch <= 0 {
		c.MaxSegmentsPerBatch = 25
	}
	if c.AttemptsPerEndpoint <= 0 {
		c.AttemptsPerEndpoint = 2
	}
	if c.MaxInFlightPerEndpoint <= 0 {
		c.MaxInFlightPerEndpoint = 4
	}
	if c.StageTimeout <= 0 {
		c.StageTimeout = 10 * time.Minute
	}
	return c
}

// Status classifies the outcome of a translation pass.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

// Result summarizes one translation pass.
type Result struct {
	Status             Status `json:"status"`
	TranslatedSegments int    `json:"translated_segments"`
	FailedSegments     int    `json:"failed_segments"`
	TotalBatches       int    `json:"total_batches"`
	FailedBatches      int    `json:"failed_batches"`
}

// Coordinator translates segment text across the endpoint pool. The
// worker pool it runs is scoped to a single Translate call and fully
// drained before the call returns.
type Coordinator struct {
	pool   *Pool
	client *Client
	cfg    Config
}

// NewCoordinator wires a pool and wire client with policy config.
func NewCoordinator(pool *Pool, client *Client, cfg Config) *Coordinator {
	return &Coordinator{pool: pool, client: client, cfg: cfg.withDefaults()}
}

// Pool exposes the endpoint pool for status reporting.
func (c *Coordinator) Pool() *Pool { return c.pool }

type batch struct {
	indices []int
	texts   []string
}

// Translate runs one pass over the store's segments. Batch failures
// are absorbed: affected segments keep their original text and are
// flagged. The returned error is non-nil only when the pass as a whole
// failed (every batch lost, every endpoint unreachable).
func (c *Coordinator) Translate(ctx context.Context, store *segment.Store, sourceLang, targetLang string, progress func(float64)) (Result, error) {
	batches := c.buildBatches(store.Segments())
	result := Result{Status: StatusSuccess, TotalBatches: len(batches)}
	if len(batches) == 0 {
		progress(1.0)
		return result, nil
	}

	passCtx, cancel := context.WithTimeout(ctx, c.cfg.StageTimeout)
	defer cancel()

	sems := newSemSet(c.cfg.MaxInFlightPerEndpoint)

	var processed atomic.Int64
	var failedBatches atomic.Int64
	var translated atomic.Int64
	var failedSegments atomic.Int64

	jobs := make(chan batch)
	workers := c.cfg.MaxInFlightPerEndpoint * c.pool.Size()
	if workers > len(batches) {
		workers = len(batches)
	}
	if workers < 1 {
		workers = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range jobs {
				ok := false
				// Batches still queued after the ceiling are
				// abandoned, not hung.
				if passCtx.Err() == nil {
					ok = c.translateBatch(passCtx, sems, b, store, sourceLang, targetLang)
				}
				if ok {
					translated.Add(int64(len(b.indices)))
				} else {
					failedBatches.Add(1)
					failedSegments.Add(int64(len(b.indices)))
					for _, idx := range b.indices {
						store.MarkTranslationFailed(idx)
					}
				}
				done := processed.Add(1)
				progress(float64(done) / float64(len(batches)))
			}
		}()
	}

	for _, b := range batches {
		jobs <- b
	}
	close(jobs)
	wg.Wait()

	result.TranslatedSegments = int(translated.Load())
	result.FailedSegments = int(failedSegments.Load())
	result.FailedBatches = int(failedBatches.Load())

	switch {
	case result.FailedBatches == 0:
	case result.FailedBatches < result.TotalBatches:
		result.Status = StatusPartial
		log.Printf("[translate] partial pass: %d/%d batches failed", result.FailedBatches, result.TotalBatches)
	default:
		result.Status = StatusFailed
		if c.pool.AllUnreachable() {
			return result, &TranslationError{Message: "all endpoints unreachable"}
		}
		log.Printf("[translate] pass failed for all %d batches", result.TotalBatches)
	}
	return result, nil
}

// translateBatch walks the pool in preference order, trying each
// reachable endpoint a bounded number of times, and writes results
// back by segment index on success.
func (c *Coordinator) translateBatch(ctx context.Context, sems *semSet, b batch, store *segment.Store, sourceLang, targetLang string) bool {
	for _, entry := range c.pool.candidates() {
		if !sems.acquire(ctx, entry.BaseURL) {
			return false
		}
		translated, err := c.attemptEndpoint(ctx, entry, b.texts, sourceLang, targetLang)
		sems.release(entry.BaseURL)

		if err == nil {
			c.pool.markSuccess(entry)
			for i, idx := range b.indices {
				store.SetTranslation(idx, translated[i])
			}
			return true
		}
		if ctx.Err() != nil {
			// Cancellation or ceiling, not the endpoint's fault.
			return false
		}
		log.Printf("[translate] endpoint %s failed for batch of %d: %v", entry.BaseURL, len(b.texts), err)
	}
	return false
}

func (c *Coordinator) attemptEndpoint(ctx context.Context, entry *poolEntry, texts []string, sourceLang, targetLang string) ([]string, error) {
	var lastErr error
	for attempt := 0; attempt < c.cfg.AttemptsPerEndpoint; attempt++ {
		translated, err := c.client.Translate(ctx, entry.Endpoint, texts, sourceLang, targetLang)
		if err == nil {
			return translated, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, err
		}
		c.pool.markFailure(entry)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no attempts made")
	}
	return nil, lastErr
}

// buildBatches partitions non-empty segment texts into batches bounded
// by the character budget and segment cap. Each segment lands in
// exactly one batch.
func (c *Coordinator) buildBatches(segments []segment.Segment) []batch {
	var batches []batch
	var current batch
	chars := 0

	flush := func() {
		if len(current.indices) > 0 {
			batches = append(batches, current)
			current = batch{}
			chars = 0
		}
	}

	for _, seg := range segments {
		text := seg.Text
		if strings.TrimSpace(text) == "" {
			continue
		}
		if len(current.indices) > 0 &&
			(chars+len(text) > c.cfg.MaxCharsPerBatch || len(current.indices) >= c.cfg.MaxSegmentsPerBatch) {
			flush()
		}
		current.indices = append(current.indices, seg.Index)
		current.texts = append(current.texts, text)
		chars += len(text)
	}
	flush()
	return batches
}

// semSet holds one bounded semaphore per endpoint so no single free
// public server is overwhelmed while healthy fallbacks run in
// parallel.
type semSet struct {
	mu       sync.Mutex
	capacity int
	sems     map[string]chan struct{}
}

func newSemSet(capacity int) *semSet {
	return &semSet{capacity: capacity, sems: make(map[string]chan struct{})}
}

func (s *semSet) sem(key string) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.sems[key]
	if !ok {
		sem = make(chan struct{}, s.capacity)
		s.sems[key] = sem
	}
	return sem
}

func (s *semSet) acquire(ctx context.Context, key string) bool {
	select {
	case s.sem(key) <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *semSet) release(key string) {
	<-s.sem(key)
}
