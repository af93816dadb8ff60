package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/petitions-api/internal/domain"
	"github.com/ignite/petitions-api/internal/service/signing"
)

// Repo implements signing.Repository against PostgreSQL.
type Repo struct{ db *sql.DB }

// NewRepo creates a Postgres-backed petition/signature repository.
func NewRepo(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) FindPetitionBySlug(ctx context.Context, slug string) (*domain.Petition, error) {
	p := &domain.Petition{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, slug, title, goal_count, is_public, created_at
		FROM petitions
		WHERE slug = $1 AND is_public = true
	`, slug).Scan(&p.ID, &p.Slug, &p.Title, &p.GoalCount, &p.IsPublic, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, signing.ErrPetitionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find petition by slug: %w", err)
	}
	return p, nil
}

func (r *Repo) FindPetitionByID(ctx context.Context, id string) (*domain.Petition, error) {
	p := &domain.Petition{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, slug, title, goal_count, is_public, created_at
		FROM petitions
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Slug, &p.Title, &p.GoalCount, &p.IsPublic, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, signing.ErrPetitionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find petition by id: %w", err)
	}
	return p, nil
}

func (r *Repo) PetitionStats(ctx context.Context, slug string) (*domain.PetitionStats, error) {
	s := &domain.PetitionStats{}
	err := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.slug, p.title,
		       COUNT(s.id) FILTER (WHERE s.status = 'confirmed')
		FROM petitions p
		LEFT JOIN signatures s ON s.petition_id = p.id
		WHERE p.slug = $1 AND p.is_public = true
		GROUP BY p.id, p.slug, p.title
	`, slug).Scan(&s.ID, &s.Slug, &s.Title, &s.ConfirmedCount)
	if err == sql.ErrNoRows {
		return nil, signing.ErrPetitionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("petition stats: %w", err)
	}
	return s, nil
}

func (r *Repo) PetitionStatsEnhanced(ctx context.Context, slug string) (*domain.PetitionStatsEnhanced, error) {
	s := &domain.PetitionStatsEnhanced{}
	err := r.db.QueryRowContext(ctx, `
		SELECT p.id, p.slug, p.title,
		       COUNT(s.id) FILTER (WHERE s.status = 'confirmed'),
		       COUNT(s.id) FILTER (WHERE s.status = 'pending'),
		       COUNT(s.id),
		       NOW()
		FROM petitions p
		LEFT JOIN signatures s ON s.petition_id = p.id
		WHERE p.slug = $1
		GROUP BY p.id, p.slug, p.title
	`, slug).Scan(&s.ID, &s.Slug, &s.Title, &s.ConfirmedCount, &s.PendingCount, &s.TotalCount, &s.LastUpdated)
	if err == sql.ErrNoRows {
		return nil, signing.ErrPetitionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("petition stats enhanced: %w", err)
	}
	return s, nil
}
