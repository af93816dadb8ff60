package signing

import (
	"context"
	"time"

	"github.com/ignite/petitions-api/internal/domain"
)

// Repository defines the data access contract for petitions and signatures.
// Implementations must be safe for concurrent use.
type Repository interface {
	// FindPetitionBySlug returns a public petition by slug. Returns
	// ErrPetitionNotFound if it doesn't exist or is not public.
	FindPetitionBySlug(ctx context.Context, slug string) (*domain.Petition, error)

	// FindPetitionByID returns a petition by primary key, public or not.
	FindPetitionByID(ctx context.Context, id string) (*domain.Petition, error)

	// CreateSignature inserts a new signature. The database carries unique
	// indexes on (petition_id, email) and (petition_id, phone); a violation
	// is returned as *AlreadySignedError so concurrent double-submits
	// collapse to a single row.
	CreateSignature(ctx context.Context, s *domain.Signature) error

	// FindByIdentifiers returns an existing signature for the petition
	// matching the phone or the email (either is sufficient), regardless of
	// status. Returns ErrSignatureNotFound when neither matches. Empty
	// identifier arguments are ignored.
	FindByIdentifiers(ctx context.Context, petitionID, phone, email string) (*domain.Signature, error)

	// FindByConfirmToken returns the signature holding the given confirm
	// token, or ErrSignatureNotFound.
	FindByConfirmToken(ctx context.Context, token string) (*domain.Signature, error)

	// FindPendingByEmail returns the most recent pending signature for the
	// email across all petitions, or ErrSignatureNotFound.
	FindPendingByEmail(ctx context.Context, email string) (*domain.Signature, error)

	// CountRecentByIdentifiers counts signatures created inside the rolling
	// window whose phone or email matches (summed across both identifiers).
	CountRecentByIdentifiers(ctx context.Context, phone, email string, window time.Duration) (int, error)

	// ConfirmSignature transitions a pending signature to confirmed and sets
	// confirmed_at. Returns ErrSignatureNotFound if the row is not pending
	// (the token was already consumed or never existed).
	ConfirmSignature(ctx context.Context, id string, confirmedAt time.Time) error

	// PetitionStats returns public aggregate counters for a petition slug,
	// or ErrPetitionNotFound.
	PetitionStats(ctx context.Context, slug string) (*domain.PetitionStats, error)

	// PetitionStatsEnhanced returns the admin-facing counters for a slug,
	// or ErrPetitionNotFound.
	PetitionStatsEnhanced(ctx context.Context, slug string) (*domain.PetitionStatsEnhanced, error)

	// ListConfirmedBySlug returns confirmed signatures for a petition,
	// newest first. Used by the admin CSV export.
	ListConfirmedBySlug(ctx context.Context, slug string) ([]domain.Signature, error)
}

// BotChecker verifies that a submission came from a human. Implementations
// own the bypass policy (development mode, reserved sentinel token) and any
// provider timeout handling.
type BotChecker interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// Notifier sends transactional email. Send failures are best-effort from the
// workflow's point of view: they are logged and audited but never fail the
// request, because the signature row is already durable.
type Notifier interface {
	SendConfirmation(ctx context.Context, email, name, petitionSlug, token string) error
	SendThankYou(ctx context.Context, email, name, petitionSlug string) error
}

// RateLimiter bounds signing attempts per identifier inside a rolling
// window. Allow reports whether another attempt is permitted; implementations
// may record the attempt as part of the check.
type RateLimiter interface {
	Allow(ctx context.Context, phone, email string) (bool, error)
}
