package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/ignite/petitions-api/internal/service/signing"
)

// HandleConfirm consumes a confirmation link click. This endpoint is reached
// from an email hyperlink, so it always redirects to the frontend thank-you
// page with the outcome in the query string and never returns JSON.
//
//	GET /api/confirm?token=...
func (h *Handlers) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	outcome, err := h.signing.Confirm(r.Context(), token)
	if err != nil {
		h.redirectConfirm(w, r, confirmErrorCode(err))
		return
	}

	switch outcome {
	case signing.OutcomeAlreadyConfirmed:
		h.redirectConfirm(w, r, "already_confirmed=true")
	default:
		h.redirectConfirm(w, r, "confirmed=true")
	}
}

func confirmErrorCode(err error) string {
	switch {
	case errors.Is(err, signing.ErrInvalidToken):
		return "error=invalid_token"
	case errors.Is(err, signing.ErrExpiredToken):
		return "error=expired_token"
	case errors.Is(err, signing.ErrConfirmFailed):
		return "error=confirmation_failed"
	default:
		log.Printf("[api] confirm: %v", err)
		return "error=server_error"
	}
}

func (h *Handlers) redirectConfirm(w http.ResponseWriter, r *http.Request, query string) {
	http.Redirect(w, r, h.frontendURL+"/thank-you?"+query, http.StatusFound)
}

// HandleResend re-sends the confirmation email for a still-pending
// signature.
//
//	POST /api/confirm/resend
func (h *Handlers) HandleResend(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4*1024)
	var body struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email == "" {
		respondError(w, http.StatusBadRequest, "Email is required")
		return
	}

	err := h.signing.Resend(r.Context(), body.Email)
	var verr *signing.ValidationError
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, map[string]string{
			"message": "Confirmation email re-sent. Please check your inbox.",
		})
	case errors.As(err, &verr):
		respondError(w, http.StatusBadRequest, "Invalid email address")
	case errors.Is(err, signing.ErrNoPendingSignature):
		respondError(w, http.StatusNotFound, "No pending signature for this email")
	case errors.Is(err, signing.ErrExpiredToken):
		respondError(w, http.StatusBadRequest, "Confirmation link expired, please sign again")
	default:
		log.Printf("[api] resend: %v", err)
		respondError(w, http.StatusInternalServerError, "Could not resend confirmation")
	}
}
