package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/ignite/petitions-api/internal/domain"
)

// EmailLogRepo persists notification audit records. Writes are best-effort
// from the caller's perspective: an audit failure must never block a send.
type EmailLogRepo struct{ db *sql.DB }

// NewEmailLogRepo creates a Postgres-backed email audit log.
func NewEmailLogRepo(db *sql.DB) *EmailLogRepo { return &EmailLogRepo{db: db} }

// Log inserts one audit row for a notification attempt.
func (r *EmailLogRepo) Log(ctx context.Context, e *domain.EmailLog) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}

	var meta interface{}
	if len(e.Meta) > 0 {
		b, err := json.Marshal(e.Meta)
		if err != nil {
			return fmt.Errorf("marshal email log meta: %w", err)
		}
		meta = b
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO email_log (id, to_email, template, meta, success, error, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, e.ID, e.ToEmail, e.Template, meta, e.Success, nullable(e.Error))
	if err != nil {
		return fmt.Errorf("log email: %w", err)
	}
	return nil
}
