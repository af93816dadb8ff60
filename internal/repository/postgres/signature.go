package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"github.com/ignite/petitions-api/internal/domain"
	"github.com/ignite/petitions-api/internal/service/signing"
)

const signatureColumns = `id, petition_id, first_name, last_name,
	COALESCE(email,''), COALESCE(phone,''), country, city,
	COALESCE(state,''), COALESCE(postal_code,''), consent_news, status,
	COALESCE(confirm_token,''), ip_hash, ua_hash, created_at, confirmed_at`

func scanSignature(row interface{ Scan(...interface{}) error }) (*domain.Signature, error) {
	s := &domain.Signature{}
	var confirmedAt sql.NullTime
	err := row.Scan(
		&s.ID, &s.PetitionID, &s.FirstName, &s.LastName,
		&s.Email, &s.Phone, &s.Country, &s.City,
		&s.State, &s.PostalCode, &s.ConsentNews, &s.Status,
		&s.ConfirmToken, &s.IPHash, &s.UAHash, &s.CreatedAt, &confirmedAt,
	)
	if err != nil {
		return nil, err
	}
	if confirmedAt.Valid {
		s.ConfirmedAt = &confirmedAt.Time
	}
	return s, nil
}

// nullable maps "" to NULL so the partial unique indexes only consider rows
// that actually carry the identifier.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func (r *Repo) CreateSignature(ctx context.Context, s *domain.Signature) error {
	var confirmedAt interface{}
	if s.ConfirmedAt != nil {
		confirmedAt = *s.ConfirmedAt
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO signatures
			(id, petition_id, first_name, last_name, email, phone,
			 country, city, state, postal_code, consent_news, status,
			 confirm_token, ip_hash, ua_hash, created_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`, s.ID, s.PetitionID, s.FirstName, s.LastName, nullable(s.Email), nullable(s.Phone),
		s.Country, s.City, nullable(s.State), nullable(s.PostalCode), s.ConsentNews, s.Status,
		nullable(s.ConfirmToken), s.IPHash, s.UAHash, s.CreatedAt, confirmedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			// The unique indexes are the authoritative duplicate guard; a
			// violation means a concurrent submit won the race.
			identifier := "email address"
			if strings.Contains(pqErr.Constraint, "phone") {
				identifier = "phone number"
			}
			return &signing.AlreadySignedError{Identifier: identifier}
		}
		return fmt.Errorf("create signature: %w", err)
	}
	return nil
}

func (r *Repo) FindByIdentifiers(ctx context.Context, petitionID, phone, email string) (*domain.Signature, error) {
	if phone == "" && email == "" {
		return nil, signing.ErrSignatureNotFound
	}

	// Phone matches are reported first so duplicate messages prefer the
	// stronger identifier when both were supplied.
	q := fmt.Sprintf(`
		SELECT %s FROM signatures
		WHERE petition_id = $1
		  AND ((phone IS NOT NULL AND phone = $2) OR (email IS NOT NULL AND email = $3))
		ORDER BY (phone IS NOT NULL AND phone = $2) DESC, created_at DESC
		LIMIT 1
	`, signatureColumns)

	s, err := scanSignature(r.db.QueryRowContext(ctx, q, petitionID, nullable(phone), nullable(email)))
	if err == sql.ErrNoRows {
		return nil, signing.ErrSignatureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find by identifiers: %w", err)
	}
	return s, nil
}

func (r *Repo) FindByConfirmToken(ctx context.Context, token string) (*domain.Signature, error) {
	q := fmt.Sprintf(`SELECT %s FROM signatures WHERE confirm_token = $1`, signatureColumns)
	s, err := scanSignature(r.db.QueryRowContext(ctx, q, token))
	if err == sql.ErrNoRows {
		return nil, signing.ErrSignatureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find by confirm token: %w", err)
	}
	return s, nil
}

func (r *Repo) FindPendingByEmail(ctx context.Context, email string) (*domain.Signature, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM signatures
		WHERE email = $1 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1
	`, signatureColumns)
	s, err := scanSignature(r.db.QueryRowContext(ctx, q, email))
	if err == sql.ErrNoRows {
		return nil, signing.ErrSignatureNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find pending by email: %w", err)
	}
	return s, nil
}

func (r *Repo) CountRecentByIdentifiers(ctx context.Context, phone, email string, window time.Duration) (int, error) {
	if phone == "" && email == "" {
		return 0, nil
	}
	since := time.Now().UTC().Add(-window)

	// Counts are summed per identifier, mirroring the Redis limiter: a row
	// matching both phone and email contributes to both counts.
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE phone IS NOT NULL AND phone = $2)
		     + COUNT(*) FILTER (WHERE email IS NOT NULL AND email = $3)
		FROM signatures
		WHERE created_at >= $1
	`, since, nullable(phone), nullable(email)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recent: %w", err)
	}
	return count, nil
}

func (r *Repo) ConfirmSignature(ctx context.Context, id string, confirmedAt time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE signatures SET status = 'confirmed', confirmed_at = $1
		WHERE id = $2 AND status = 'pending'
	`, confirmedAt, id)
	if err != nil {
		return fmt.Errorf("confirm signature: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return signing.ErrSignatureNotFound
	}
	return nil
}

func (r *Repo) ListConfirmedBySlug(ctx context.Context, slug string) ([]domain.Signature, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM signatures s
		JOIN petitions p ON p.id = s.petition_id
		WHERE p.slug = $1 AND s.status = 'confirmed'
		ORDER BY s.created_at DESC
	`, qualifySignatureColumns("s"))

	rows, err := r.db.QueryContext(ctx, q, slug)
	if err != nil {
		return nil, fmt.Errorf("list confirmed: %w", err)
	}
	defer rows.Close()

	var out []domain.Signature
	for rows.Next() {
		s, err := scanSignature(rows)
		if err != nil {
			return nil, fmt.Errorf("scan signature: %w", err)
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// qualifySignatureColumns prefixes each column in signatureColumns with a
// table alias for use in joins.
func qualifySignatureColumns(alias string) string {
	parts := strings.Split(signatureColumns, ",")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if strings.HasPrefix(p, "COALESCE(") {
			p = "COALESCE(" + alias + "." + strings.TrimPrefix(p, "COALESCE(")
		} else {
			p = alias + "." + p
		}
		parts[i] = p
	}
	return strings.Join(parts, ", ")
}
