package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/subgen/backend/internal/job"
	"github.com/subgen/backend/internal/media"
	"github.com/subgen/backend/internal/subtitle"
)

type SubtitleHandler struct {
	controller *job.Controller
}

func NewSubtitleHandler(controller *job.Controller) *SubtitleHandler {
	return &SubtitleHandler{controller: controller}
}

var exportContentTypes = map[string]string{
	subtitle.FormatSRT: "application/x-subrip; charset=utf-8",
	subtitle.FormatVTT: "text/vtt; charset=utf-8",
}

// Export serializes the current segments and returns the subtitle
// document directly: GET /api/export?format=srt
func (h *SubtitleHandler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = subtitle.FormatSRT
	}
	contentType, ok := exportContentTypes[format]
	if !ok {
		jsonError(w, "unsupported format: "+format, http.StatusBadRequest)
		return
	}

	blob, err := h.controller.Export(format)
	if err != nil {
		if errors.Is(err, job.ErrNotEditable) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, "export failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write([]byte(blob))
}

type embedRequest struct {
	Mode string `json:"mode"` // "soft" or "hard"
}

// Embed attaches the current segments to the source media and returns
// the path of the new output file.
func (h *SubtitleHandler) Embed(w http.ResponseWriter, r *http.Request) {
	var req embedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	mode, err := media.ParseEmbedMode(req.Mode)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	outputPath, err := h.controller.Embed(mode)
	if err != nil {
		if errors.Is(err, job.ErrNotEditable) {
			jsonError(w, err.Error(), http.StatusConflict)
			return
		}
		jsonError(w, "embed failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	jsonResponse(w, map[string]string{"output_path": outputPath}, http.StatusOK)
}
