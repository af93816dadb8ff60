package signing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/ignite/petitions-api/internal/domain"
	"github.com/ignite/petitions-api/internal/metrics"
)

// ConfirmOutcome distinguishes a fresh confirmation from an idempotent
// repeat.
type ConfirmOutcome string

const (
	OutcomeConfirmed        ConfirmOutcome = "confirmed"
	OutcomeAlreadyConfirmed ConfirmOutcome = "already_confirmed"
)

// Confirm consumes a confirmation token. The transition is pending ->
// confirmed exactly once; confirming an already-confirmed signature is an
// idempotent no-op with no second thank-you email, and an expired token is a
// terminal failure that leaves the row pending.
func (s *Service) Confirm(ctx context.Context, token string) (ConfirmOutcome, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	sig, err := s.repo.FindByConfirmToken(ctx, token)
	if errors.Is(err, ErrSignatureNotFound) {
		return "", ErrInvalidToken
	}
	if err != nil {
		return "", fmt.Errorf("token lookup: %w", err)
	}

	if sig.Status != domain.SignaturePending {
		log.Printf("[signing] confirm: signature %s already %s", sig.ID, sig.Status)
		return OutcomeAlreadyConfirmed, nil
	}

	now := s.now().UTC()
	if sig.TokenExpired(now, s.confirmTTL) {
		log.Printf("[signing] confirm: signature %s token expired (age %s)", sig.ID, now.Sub(sig.CreatedAt))
		return "", ErrExpiredToken
	}

	if err := s.repo.ConfirmSignature(ctx, sig.ID, now); err != nil {
		if errors.Is(err, ErrSignatureNotFound) {
			// A concurrent confirm got there first.
			return OutcomeAlreadyConfirmed, nil
		}
		return "", fmt.Errorf("%w: %v", ErrConfirmFailed, err)
	}

	metrics.ConfirmationsTotal.Inc()
	log.Printf("[signing] confirm: signature %s confirmed", sig.ID)

	s.sendThankYou(sig)
	return OutcomeConfirmed, nil
}

// Resend re-sends the confirmation email for a still-pending, still-fresh
// signature. The existing token is reused; resending never extends the TTL.
func (s *Service) Resend(ctx context.Context, email string) error {
	normalized, ok := normalizeEmail(email)
	if !ok {
		return &ValidationError{Fields: []FieldError{{Field: "email", Message: "must be a valid email address"}}}
	}

	sig, err := s.repo.FindPendingByEmail(ctx, normalized)
	if errors.Is(err, ErrSignatureNotFound) {
		return ErrNoPendingSignature
	}
	if err != nil {
		return fmt.Errorf("pending lookup: %w", err)
	}

	if sig.TokenExpired(s.now().UTC(), s.confirmTTL) {
		return ErrExpiredToken
	}

	petition, err := s.repo.FindPetitionByID(ctx, sig.PetitionID)
	if err != nil {
		return fmt.Errorf("petition lookup: %w", err)
	}

	name := sig.FirstName + " " + sig.LastName
	if err := s.notifier.SendConfirmation(ctx, sig.Email, name, petition.Slug, sig.ConfirmToken); err != nil {
		return fmt.Errorf("resend confirmation: %w", err)
	}

	log.Printf("[signing] resend: confirmation re-sent for signature %s", sig.ID)
	return nil
}

func (s *Service) sendThankYou(sig *domain.Signature) {
	if sig.Email == "" {
		return
	}

	email, name, petitionID := sig.Email, sig.FirstName+" "+sig.LastName, sig.PetitionID
	s.dispatch(func() {
		sendCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		slug := ""
		if p, err := s.repo.FindPetitionByID(sendCtx, petitionID); err == nil {
			slug = p.Slug
		}
		if err := s.notifier.SendThankYou(sendCtx, email, name, slug); err != nil {
			log.Printf("[signing] confirm: thank-you email failed: %v", err)
		}
	})
}
