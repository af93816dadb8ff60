package domain

import "time"

// SignatureStatus enumerates the lifecycle states of a signature.
type SignatureStatus string

const (
	SignaturePending      SignatureStatus = "pending"
	SignatureConfirmed    SignatureStatus = "confirmed"
	SignatureUnsubscribed SignatureStatus = "unsubscribed"
)

// Signature represents one person's signing record for a petition.
//
// A signature is created either directly as confirmed (when a phone number,
// the strong identifier, was supplied) or as pending with a single-use
// confirm token (email-only submissions). The only mutation after creation is
// the pending -> confirmed transition.
type Signature struct {
	ID          string          `json:"id" db:"id"`
	PetitionID  string          `json:"petition_id" db:"petition_id"`
	FirstName   string          `json:"first_name" db:"first_name"`
	LastName    string          `json:"last_name" db:"last_name"`
	Email       string          `json:"email,omitempty" db:"email"`
	Phone       string          `json:"phone,omitempty" db:"phone"`
	Country     string          `json:"country" db:"country"`
	City        string          `json:"city" db:"city"`
	State       string          `json:"state,omitempty" db:"state"`
	PostalCode  string          `json:"postal_code,omitempty" db:"postal_code"`
	ConsentNews bool            `json:"consent_news" db:"consent_news"`
	Status      SignatureStatus `json:"status" db:"status"`

	// ConfirmToken is set iff the signature was created pending. Once the
	// token is consumed the status moves past pending and the token can
	// never confirm again.
	ConfirmToken string `json:"-" db:"confirm_token"`

	// IPHash and UAHash are one-way sha256 fingerprints of the requester.
	// Raw IP and User-Agent values are never stored.
	IPHash string `json:"-" db:"ip_hash"`
	UAHash string `json:"-" db:"ua_hash"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty" db:"confirmed_at"`
}

// IsConfirmed reports whether the signature counts toward petition totals.
func (s *Signature) IsConfirmed() bool {
	return s.Status == SignatureConfirmed
}

// TokenExpired reports whether the confirm token is older than ttl at the
// given instant. Only meaningful for pending signatures.
func (s *Signature) TokenExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}
