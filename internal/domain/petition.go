package domain

import "time"

// Petition represents a signable petition. Petitions are created out of band
// and are immutable as far as this service is concerned; only public petitions
// accept signatures.
type Petition struct {
	ID        string    `json:"id" db:"id"`
	Slug      string    `json:"slug" db:"slug"`
	Title     string    `json:"title" db:"title"`
	GoalCount int       `json:"goal_count" db:"goal_count"`
	IsPublic  bool      `json:"is_public" db:"is_public"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PetitionStats holds the public aggregate counters for a petition.
type PetitionStats struct {
	ID             string `json:"id" db:"id"`
	Slug           string `json:"slug" db:"slug"`
	Title          string `json:"title" db:"title"`
	ConfirmedCount int    `json:"confirmed_count" db:"confirmed_count"`
}

// PetitionStatsEnhanced extends PetitionStats with the non-public counters
// exposed on the admin surface.
type PetitionStatsEnhanced struct {
	PetitionStats
	PendingCount int       `json:"pending_count" db:"pending_count"`
	TotalCount   int       `json:"total_count" db:"total_count"`
	LastUpdated  time.Time `json:"last_updated" db:"last_updated"`
}
