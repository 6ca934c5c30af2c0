package handlers

import (
	"net/http"

	"github.com/subgen/backend/internal/media"
)

type MediaHandler struct {
	extractor *media.Extractor
}

func NewMediaHandler(extractor *media.Extractor) *MediaHandler {
	return &MediaHandler{extractor: extractor}
}

// Info probes a media file and returns its streams, duration and
// codecs: GET /api/media/info?path=/movies/film.mkv
func (h *MediaHandler) Info(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		jsonError(w, "path is required", http.StatusBadRequest)
		return
	}

	info, err := h.extractor.Probe(r.Context(), path)
	if err != nil {
		jsonError(w, "probe failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	jsonResponse(w, info, http.StatusOK)
}
