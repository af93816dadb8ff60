package signing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/petitions-api/internal/domain"
	"github.com/ignite/petitions-api/internal/metrics"
)

// Options tunes workflow policy. Zero values fall back to production
// defaults; Now and Dispatch exist so tests can control time and make the
// fire-and-forget notification dispatch synchronous.
type Options struct {
	ConfirmTTL time.Duration
	Now        func() time.Time
	Dispatch   func(func())
}

// Service orchestrates the signing and confirmation workflows. All public
// methods are safe for concurrent use if the collaborators are.
type Service struct {
	repo     Repository
	bots     BotChecker
	notifier Notifier
	limiter  RateLimiter

	confirmTTL time.Duration
	now        func() time.Time
	dispatch   func(func())
}

// NewService creates a signing service with constructor-injected
// collaborators.
func NewService(repo Repository, bots BotChecker, notifier Notifier, limiter RateLimiter, opts Options) *Service {
	s := &Service{
		repo:       repo,
		bots:       bots,
		notifier:   notifier,
		limiter:    limiter,
		confirmTTL: opts.ConfirmTTL,
		now:        opts.Now,
		dispatch:   opts.Dispatch,
	}
	if s.confirmTTL <= 0 {
		s.confirmTTL = 24 * time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.dispatch == nil {
		s.dispatch = func(fn func()) { go fn() }
	}
	return s
}

// SignResult is the successful outcome of a signing attempt.
type SignResult struct {
	SignatureID  string                 `json:"signature_id"`
	Status       domain.SignatureStatus `json:"status"`
	ConfirmToken string                 `json:"confirm_token,omitempty"`
	Message      string                 `json:"message"`
}

// Sign runs the full intake workflow for one submission. Each step can
// terminate the attempt: unknown petition, invalid input, disposable email,
// failed bot check, duplicate identifier, or rate limit. On success exactly
// one signature row is written and, for pending signatures, a confirmation
// email is dispatched off the request path.
func (s *Service) Sign(ctx context.Context, slug string, sub Submission, remoteIP, userAgent string) (*SignResult, error) {
	petition, err := s.repo.FindPetitionBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	v, verr := Validate(sub)
	if verr != nil {
		log.Printf("[signing] %s: rejected invalid submission (%d field errors)", slug, len(verr.Fields))
		return nil, verr
	}

	if v.Email != "" && IsDisposableEmail(v.Email) {
		log.Printf("[signing] %s: rejected disposable email domain", slug)
		metrics.SignRejectionsTotal.WithLabelValues("disposable_email").Inc()
		return nil, ErrDisposableEmail
	}

	ok, err := s.bots.Verify(ctx, v.TurnstileToken, remoteIP)
	if err != nil || !ok {
		if err != nil {
			log.Printf("[signing] %s: bot verification error: %v", slug, err)
		}
		metrics.SignRejectionsTotal.WithLabelValues("bot_check").Inc()
		return nil, ErrBotCheckFailed
	}

	existing, err := s.repo.FindByIdentifiers(ctx, petition.ID, v.Phone, v.Email)
	if err != nil && !errors.Is(err, ErrSignatureNotFound) {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if existing != nil {
		metrics.SignRejectionsTotal.WithLabelValues("duplicate").Inc()
		// Prefer naming the phone when it is the conflicting identifier.
		if v.Phone != "" && existing.Phone == v.Phone {
			return nil, &AlreadySignedError{Identifier: "phone number"}
		}
		return nil, &AlreadySignedError{Identifier: "email address"}
	}

	allowed, err := s.limiter.Allow(ctx, v.Phone, v.Email)
	if err != nil {
		return nil, fmt.Errorf("rate limit check: %w", err)
	}
	if !allowed {
		log.Printf("[signing] %s: rate limited", slug)
		metrics.SignRejectionsTotal.WithLabelValues("rate_limited").Inc()
		return nil, ErrRateLimited
	}

	sig := &domain.Signature{
		ID:          uuid.New().String(),
		PetitionID:  petition.ID,
		FirstName:   v.FirstName,
		LastName:    v.LastName,
		Email:       v.Email,
		Phone:       v.Phone,
		Country:     v.Country,
		City:        v.City,
		State:       v.State,
		PostalCode:  v.PostalCode,
		ConsentNews: v.ConsentNews,
		IPHash:      HashFingerprint(remoteIP),
		UAHash:      HashFingerprint(userAgent),
		CreatedAt:   s.now().UTC(),
	}

	result := &SignResult{SignatureID: sig.ID}

	// Status is decided once, at creation. A phone number is treated as a
	// verified identifier; email-only signers must complete the
	// confirmation round-trip.
	if v.HasPhone() {
		now := sig.CreatedAt
		sig.Status = domain.SignatureConfirmed
		sig.ConfirmedAt = &now
		result.Message = "Thank you, your signature is confirmed."
	} else {
		sig.Status = domain.SignaturePending
		sig.ConfirmToken = NewConfirmToken()
		result.ConfirmToken = sig.ConfirmToken
		result.Message = "Please check your email to confirm your signature."
	}
	result.Status = sig.Status

	if err := s.repo.CreateSignature(ctx, sig); err != nil {
		var dup *AlreadySignedError
		if errors.As(err, &dup) {
			// Lost the race to a concurrent submit; same outcome as the
			// fast-path duplicate check.
			metrics.SignRejectionsTotal.WithLabelValues("duplicate").Inc()
			return nil, dup
		}
		return nil, fmt.Errorf("create signature: %w", err)
	}

	metrics.SignaturesCreatedTotal.WithLabelValues(string(sig.Status)).Inc()
	log.Printf("[signing] %s: signature %s created (%s)", slug, sig.ID, sig.Status)

	if sig.Status == domain.SignaturePending {
		email, name, token := sig.Email, sig.FirstName+" "+sig.LastName, sig.ConfirmToken
		s.dispatch(func() {
			// Detached from the request context: the email outcome must not
			// affect the response, and the request may complete first.
			sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.notifier.SendConfirmation(sendCtx, email, name, slug, token); err != nil {
				log.Printf("[signing] %s: confirmation email failed: %v", slug, err)
			}
		})
	}

	return result, nil
}

// Stats returns the public counters for a petition.
func (s *Service) Stats(ctx context.Context, slug string) (*domain.PetitionStats, error) {
	return s.repo.PetitionStats(ctx, slug)
}

// AdminStats returns the extended counters for the admin surface.
func (s *Service) AdminStats(ctx context.Context, slug string) (*domain.PetitionStatsEnhanced, error) {
	return s.repo.PetitionStatsEnhanced(ctx, slug)
}

// ExportConfirmed returns the confirmed signatures for a petition, newest
// first, for the admin CSV export.
func (s *Service) ExportConfirmed(ctx context.Context, slug string) ([]domain.Signature, error) {
	return s.repo.ListConfirmedBySlug(ctx, slug)
}
