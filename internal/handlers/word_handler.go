package handlers

import (
	"net/http"

	"speakwell/internal/service"
)

// WordHandler serves dictionary lookups
type WordHandler struct {
	words *service.WordService
}

// NewWordHandler creates a new word handler
func NewWordHandler(words *service.WordService) *WordHandler {
	return &WordHandler{words: words}
}

func (h *WordHandler) Lookup(w http.ResponseWriter, r *http.Request) {
	info, err := h.words.Lookup(r.Context(), r.PathValue("word"))
	if err != nil {
		handleServiceError(w, "failed to look up word", err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}

// Popular returns the most practiced words, ?limit= up to 50
func (h *WordHandler) Popular(w http.ResponseWriter, r *http.Request) {
	list, err := h.words.Popular(r.Context(), queryInt(r, "limit", 10))
	if err != nil {
		handleServiceError(w, "failed to list popular words", err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (h *WordHandler) DailyChallenge(w http.ResponseWriter, r *http.Request) {
	info, err := h.words.DailyChallenge(r.Context())
	if err != nil {
		handleServiceError(w, "failed to pick daily challenge", err)
		return
	}
	respondJSON(w, http.StatusOK, info)
}
