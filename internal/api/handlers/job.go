package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/subgen/backend/internal/db"
	"github.com/subgen/backend/internal/job"
	"github.com/subgen/backend/internal/language"
)

type JobHandler struct {
	controller *job.Controller
	db         *db.Database
}

func NewJobHandler(controller *job.Controller, database *db.Database) *JobHandler {
	return &JobHandler{controller: controller, db: database}
}

type startJobRequest struct {
	SourcePath string `json:"source_path"`
	SourceLang string `json:"source_lang"`
	TargetLang string `json:"target_lang"`
	OutputMode string `json:"output_mode"`
}

// StartJob begins a new pipeline run. A second start while a job is
// active is rejected with 409.
func (h *JobHandler) StartJob(w http.ResponseWriter, r *http.Request) {
	var req startJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	sourceLang, err := language.Normalize(req.SourceLang)
	if err != nil {
		jsonError(w, "invalid source language: "+err.Error(), http.StatusBadRequest)
		return
	}
	targetLang := ""
	if req.TargetLang != "" {
		targetLang, err = language.NormalizeTarget(req.TargetLang)
		if err != nil {
			jsonError(w, "invalid target language: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	mode, err := job.ParseOutputMode(req.OutputMode)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	j, err := h.controller.Start(job.Request{
		SourcePath: req.SourcePath,
		SourceLang: sourceLang,
		TargetLang: targetLang,
		OutputMode: mode,
	})
	if err != nil {
		if errors.Is(err, job.ErrJobActive) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	jsonResponse(w, j, http.StatusAccepted)
}

// ListJobs returns job history, newest first.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	jobs, err := h.db.ListJobs(limit)
	if err != nil {
		jsonError(w, "failed to list jobs: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, jobs, http.StatusOK)
}

// ActiveJob returns the current job and its progress snapshot for
// polling clients.
func (h *JobHandler) ActiveJob(w http.ResponseWriter, r *http.Request) {
	j, progress, ok := h.controller.Active()
	if !ok {
		jsonError(w, "no active job", http.StatusNotFound)
		return
	}
	jsonResponse(w, map[string]interface{}{
		"job":      j,
		"progress": progress,
	}, http.StatusOK)
}

// CancelJob cancels the active job.
func (h *JobHandler) CancelJob(w http.ResponseWriter, r *http.Request) {
	if err := h.controller.Cancel(); err != nil {
		if errors.Is(err, job.ErrNoActiveJob) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		jsonError(w, "failed to cancel job: "+err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Events returns pipeline events after the given sequence number, for
// incremental polling: GET /api/jobs/events?since=42
func (h *JobHandler) Events(w http.ResponseWriter, r *http.Request) {
	since, _ := strconv.ParseInt(r.URL.Query().Get("since"), 10, 64)
	events := h.controller.Events().Since(since)
	jsonResponse(w, events, http.StatusOK)
}

// CompleteJob finalizes the active job per its output mode.
func (h *JobHandler) CompleteJob(w http.ResponseWriter, r *http.Request) {
	j, err := h.controller.Complete()
	if err != nil {
		if errors.Is(err, job.ErrNotEditable) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, "failed to complete job: "+err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, j, http.StatusOK)
}
