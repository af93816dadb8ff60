// Package auth guards the admin API surface. Requests authenticate with
// either a bearer JWT (HMAC-signed) or, as a fallback, the static admin API
// key header.
package auth

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ignite/petitions-api/internal/config"
)

// AdminAuth validates admin credentials on incoming requests.
type AdminAuth struct {
	jwtSecret []byte
	apiKey    string
}

// NewAdminAuth creates the admin authenticator from configuration.
func NewAdminAuth(cfg config.AdminConfig) *AdminAuth {
	return &AdminAuth{
		jwtSecret: []byte(cfg.JWTSecret),
		apiKey:    cfg.APIKey,
	}
}

// Claims is the JWT payload for admin tokens.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// VerifyToken parses and validates a bearer token. Only HMAC signatures
// are accepted.
func (a *AdminAuth) VerifyToken(tokenString string) (*Claims, error) {
	if len(a.jwtSecret) == 0 {
		return nil, fmt.Errorf("jwt secret not configured")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// IssueToken mints a short-lived admin token. Used by operational tooling,
// not exposed over HTTP.
func (a *AdminAuth) IssueToken(email string, ttl time.Duration) (string, error) {
	if len(a.jwtSecret) == 0 {
		return "", fmt.Errorf("jwt secret not configured")
	}
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.jwtSecret)
}

// Middleware rejects requests lacking a valid bearer JWT or the admin API
// key in X-API-Key.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if _, err := a.VerifyToken(tokenString); err == nil {
				next.ServeHTTP(w, r)
				return
			}
			log.Printf("[auth] rejected admin bearer token from %s", r.RemoteAddr)
		}

		if key := r.Header.Get("X-API-Key"); key != "" && a.apiKey != "" && key == a.apiKey {
			next.ServeHTTP(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"ok":    false,
			"error": "Unauthorized - JWT token or API key required",
		})
	})
}
