package api

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/ignite/petitions-api/internal/service/signing"
)

// HandleAdminStats returns extended counters for a petition, including
// pending signatures.
//
//	GET /api/admin/stats?petition=slug
func (h *Handlers) HandleAdminStats(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("petition")
	if slug == "" {
		respondError(w, http.StatusBadRequest, "Petition slug is required")
		return
	}

	stats, err := h.signing.AdminStats(r.Context(), slug)
	if err != nil {
		if errors.Is(err, signing.ErrPetitionNotFound) {
			respondError(w, http.StatusNotFound, "Petition not found")
			return
		}
		log.Printf("[api] admin stats %s: %v", slug, err)
		respondError(w, http.StatusInternalServerError, "Could not fetch stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// HandleAdminExportCSV streams the confirmed signatures for a petition as a
// CSV attachment.
//
//	GET /api/admin/signatures.csv?petition=slug
func (h *Handlers) HandleAdminExportCSV(w http.ResponseWriter, r *http.Request) {
	slug := r.URL.Query().Get("petition")
	if slug == "" {
		respondError(w, http.StatusBadRequest, "Petition slug is required")
		return
	}

	signatures, err := h.signing.ExportConfirmed(r.Context(), slug)
	if err != nil {
		log.Printf("[api] admin export %s: %v", slug, err)
		respondError(w, http.StatusInternalServerError, "Could not export signatures")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="signatures-%s-%s.csv"`, slug, time.Now().Format("2006-01-02")))

	cw := csv.NewWriter(w)
	cw.Write([]string{"first_name", "last_name", "email", "phone", "country", "city", "status", "created_at", "confirmed_at"})
	for _, s := range signatures {
		confirmedAt := ""
		if s.ConfirmedAt != nil {
			confirmedAt = s.ConfirmedAt.Format(time.RFC3339)
		}
		cw.Write([]string{
			s.FirstName, s.LastName, s.Email, s.Phone, s.Country, s.City,
			string(s.Status), s.CreatedAt.Format(time.RFC3339), confirmedAt,
		})
	}
	cw.Flush()

	log.Printf("[api] admin export %s: %d signatures", slug, len(signatures))
}
