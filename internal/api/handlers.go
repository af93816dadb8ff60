package api

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/ignite/petitions-api/internal/service/signing"
)

// Handlers contains all HTTP handlers for the petitions API.
type Handlers struct {
	signing     *signing.Service
	frontendURL string
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(signingService *signing.Service, frontendURL string) *Handlers {
	return &Handlers{
		signing:     signingService,
		frontendURL: frontendURL,
	}
}

// Response helpers. Every JSON response uses the {ok, data|error} envelope.

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": true, "data": data})
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": message})
}

func respondErrorDetails(w http.ResponseWriter, status int, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{"ok": false, "error": message, "details": details})
}

// clientIP returns the requester address without the port. The RealIP
// middleware has already resolved proxy headers into RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
