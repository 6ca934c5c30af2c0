package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/subgen/backend/internal/job"
	"github.com/subgen/backend/internal/segment"
)

type SegmentHandler struct {
	controller *job.Controller
}

func NewSegmentHandler(controller *job.Controller) *SegmentHandler {
	return &SegmentHandler{controller: controller}
}

// ListSegments returns the current working set of segments.
func (h *SegmentHandler) ListSegments(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, h.controller.Store().Segments(), http.StatusOK)
}

type editSegmentRequest struct {
	Text string `json:"text"`
}

// EditSegment replaces one segment's text during the editing rest
// state. When the segment carries a translation, the translated text
// is what gets edited.
func (h *SegmentHandler) EditSegment(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		jsonError(w, "invalid segment index", http.StatusBadRequest)
		return
	}

	var req editSegmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.controller.EditSegment(index, req.Text); err != nil {
		switch {
		case errors.Is(err, job.ErrNotEditable):
			jsonError(w, err.Error(), http.StatusConflict)
		case errors.Is(err, segment.ErrIndexOutOfRange):
			jsonError(w, err.Error(), http.StatusNotFound)
		default:
			jsonError(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
