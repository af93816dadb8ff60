package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/petitions-api/internal/domain"
	"github.com/ignite/petitions-api/internal/service/signing"
)

var sigCols = []string{
	"id", "petition_id", "first_name", "last_name", "email", "phone",
	"country", "city", "state", "postal_code", "consent_news", "status",
	"confirm_token", "ip_hash", "ua_hash", "created_at", "confirmed_at",
}

func sigRow(mockRows *sqlmock.Rows, s *domain.Signature) *sqlmock.Rows {
	var confirmedAt interface{}
	if s.ConfirmedAt != nil {
		confirmedAt = *s.ConfirmedAt
	}
	return mockRows.AddRow(
		s.ID, s.PetitionID, s.FirstName, s.LastName, s.Email, s.Phone,
		s.Country, s.City, s.State, s.PostalCode, s.ConsentNews, string(s.Status),
		s.ConfirmToken, s.IPHash, s.UAHash, s.CreatedAt, confirmedAt,
	)
}

func testSignature() *domain.Signature {
	return &domain.Signature{
		ID:         "sig-1",
		PetitionID: "pet-1",
		FirstName:  "Ada",
		LastName:   "Lovelace",
		Email:      "ada@example.com",
		Country:    "GB",
		City:       "London",
		Status:     domain.SignaturePending,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestCreateSignature(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepo(db)

	sig := testSignature()
	sig.ConfirmToken = "tok"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO signatures")).
		WithArgs(sig.ID, sig.PetitionID, sig.FirstName, sig.LastName,
			sig.Email, nil, sig.Country, sig.City, nil, nil,
			sig.ConsentNews, string(sig.Status), sig.ConfirmToken,
			sig.IPHash, sig.UAHash, sig.CreatedAt, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.CreateSignature(context.Background(), sig))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSignatureUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepo(db)

	tests := []struct {
		constraint string
		identifier string
	}{
		{"signatures_petition_phone_uniq", "phone number"},
		{"signatures_petition_email_uniq", "email address"},
	}

	for _, tc := range tests {
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO signatures")).
			WillReturnError(&pq.Error{Code: "23505", Constraint: tc.constraint})

		err = repo.CreateSignature(context.Background(), testSignature())
		var dup *signing.AlreadySignedError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, tc.identifier, dup.Identifier)
	}
}

func TestFindByIdentifiersPrefersPhone(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepo(db)

	sig := testSignature()
	sig.Phone = "5551234567"

	mock.ExpectQuery("SELECT .* FROM signatures").
		WithArgs("pet-1", "5551234567", "ada@example.com").
		WillReturnRows(sigRow(sqlmock.NewRows(sigCols), sig))

	got, err := repo.FindByIdentifiers(context.Background(), "pet-1", "5551234567", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sig-1", got.ID)
	assert.Equal(t, "5551234567", got.Phone)
}

func TestFindByIdentifiersNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepo(db)

	mock.ExpectQuery("SELECT .* FROM signatures").
		WillReturnRows(sqlmock.NewRows(sigCols))

	_, err = repo.FindByIdentifiers(context.Background(), "pet-1", "", "ada@example.com")
	assert.ErrorIs(t, err, signing.ErrSignatureNotFound)
}

func TestFindByIdentifiersNoneGiven(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepo(db)

	// No identifiers never hits the database
	_, err = repo.FindByIdentifiers(context.Background(), "pet-1", "", "")
	assert.ErrorIs(t, err, signing.ErrSignatureNotFound)
}

func TestFindByConfirmToken(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepo(db)

	sig := testSignature()
	sig.ConfirmToken = "tok"

	mock.ExpectQuery("SELECT .* FROM signatures WHERE confirm_token").
		WithArgs("tok").
		WillReturnRows(sigRow(sqlmock.NewRows(sigCols), sig))

	got, err := repo.FindByConfirmToken(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "tok", got.ConfirmToken)

	mock.ExpectQuery("SELECT .* FROM signatures WHERE confirm_token").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(sigCols))

	_, err = repo.FindByConfirmToken(context.Background(), "missing")
	assert.ErrorIs(t, err, signing.ErrSignatureNotFound)
}

func TestCountRecentByIdentifiers(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepo(db)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs(sqlmock.AnyArg(), "5551234567", "ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	count, err := repo.CountRecentByIdentifiers(context.Background(), "5551234567", "ada@example.com", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}

func TestConfirmSignature(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepo(db)

	now := time.Now().UTC()

	mock.ExpectExec("UPDATE signatures SET status").
		WithArgs(now, "sig-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.ConfirmSignature(context.Background(), "sig-1", now))

	// Zero rows affected means the row was not pending
	mock.ExpectExec("UPDATE signatures SET status").
		WithArgs(now, "sig-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.ConfirmSignature(context.Background(), "sig-1", now)
	assert.ErrorIs(t, err, signing.ErrSignatureNotFound)
}

func TestListConfirmedBySlug(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepo(db)

	first := testSignature()
	first.Status = domain.SignatureConfirmed
	second := testSignature()
	second.ID = "sig-2"
	second.Status = domain.SignatureConfirmed

	rows := sqlmock.NewRows(sigCols)
	sigRow(rows, first)
	sigRow(rows, second)

	mock.ExpectQuery("SELECT .* FROM signatures s").
		WithArgs("save-the-bees").
		WillReturnRows(rows)

	out, err := repo.ListConfirmedBySlug(context.Background(), "save-the-bees")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "sig-1", out[0].ID)
	assert.Equal(t, "sig-2", out[1].ID)
}

func TestPetitionStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepo(db)

	mock.ExpectQuery("SELECT p.id, p.slug, p.title").
		WithArgs("save-the-bees").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "title", "count"}).
			AddRow("pet-1", "save-the-bees", "Save the Bees", 42))

	stats, err := repo.PetitionStats(context.Background(), "save-the-bees")
	require.NoError(t, err)
	assert.Equal(t, 42, stats.ConfirmedCount)

	mock.ExpectQuery("SELECT p.id, p.slug, p.title").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "title", "count"}))

	_, err = repo.PetitionStats(context.Background(), "missing")
	assert.ErrorIs(t, err, signing.ErrPetitionNotFound)
}

func TestFindPetitionBySlugOnlyPublic(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	repo := NewRepo(db)

	mock.ExpectQuery(regexp.QuoteMeta("is_public = true")).
		WithArgs("save-the-bees").
		WillReturnRows(sqlmock.NewRows([]string{"id", "slug", "title", "goal_count", "is_public", "created_at"}).
			AddRow("pet-1", "save-the-bees", "Save the Bees", 1000, true, time.Now()))

	p, err := repo.FindPetitionBySlug(context.Background(), "save-the-bees")
	require.NoError(t, err)
	assert.Equal(t, "pet-1", p.ID)
}
