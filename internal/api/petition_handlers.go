package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ignite/petitions-api/internal/service/signing"
)

// HandleSign accepts a signing submission for a petition.
//
//	POST /api/petitions/{slug}/sign
func (h *Handlers) HandleSign(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	r.Body = http.MaxBytesReader(w, r.Body, 16*1024)
	var sub signing.Submission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.signing.Sign(r.Context(), slug, sub, clientIP(r), r.UserAgent())
	if err != nil {
		h.respondSignError(w, slug, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *Handlers) respondSignError(w http.ResponseWriter, slug string, err error) {
	var verr *signing.ValidationError
	var dup *signing.AlreadySignedError

	switch {
	case errors.Is(err, signing.ErrPetitionNotFound):
		respondError(w, http.StatusNotFound, "Petition not found")
	case errors.As(err, &verr):
		respondErrorDetails(w, http.StatusBadRequest, "Invalid input", verr.Fields)
	case errors.Is(err, signing.ErrDisposableEmail):
		respondError(w, http.StatusBadRequest, "Disposable email addresses are not allowed")
	case errors.Is(err, signing.ErrBotCheckFailed):
		respondError(w, http.StatusBadRequest, "Bot check failed")
	case errors.As(err, &dup):
		respondError(w, http.StatusConflict, dup.Error())
	case errors.Is(err, signing.ErrRateLimited):
		respondError(w, http.StatusTooManyRequests, "Rate limited")
	default:
		log.Printf("[api] sign %s: %v", slug, err)
		respondError(w, http.StatusInternalServerError, "Could not save signature")
	}
}

// HandleStats returns the public confirmed-signature count for a petition.
//
//	GET /api/petitions/{slug}/stats
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	stats, err := h.signing.Stats(r.Context(), slug)
	if err != nil {
		if errors.Is(err, signing.ErrPetitionNotFound) {
			respondError(w, http.StatusNotFound, "Petition not found")
			return
		}
		log.Printf("[api] stats %s: %v", slug, err)
		respondError(w, http.StatusInternalServerError, "Could not fetch stats")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"confirmed_count": stats.ConfirmedCount,
	})
}
