package signing

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/petitions-api/internal/domain"
)

// memRepo is an in-memory Repository for workflow tests.
type memRepo struct {
	mu         sync.Mutex
	petitions  map[string]*domain.Petition // by slug
	signatures []*domain.Signature
	createErr  error
	confirmErr error
}

func newMemRepo() *memRepo {
	return &memRepo{petitions: map[string]*domain.Petition{}}
}

func (m *memRepo) addPetition(id, slug string, public bool) {
	m.petitions[slug] = &domain.Petition{
		ID: id, Slug: slug, Title: strings.ReplaceAll(slug, "-", " "),
		IsPublic: public, CreatedAt: time.Now().UTC(),
	}
}

func (m *memRepo) FindPetitionBySlug(_ context.Context, slug string) (*domain.Petition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.petitions[slug]
	if !ok || !p.IsPublic {
		return nil, ErrPetitionNotFound
	}
	return p, nil
}

func (m *memRepo) FindPetitionByID(_ context.Context, id string) (*domain.Petition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.petitions {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrPetitionNotFound
}

func (m *memRepo) CreateSignature(_ context.Context, s *domain.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.signatures {
		if existing.PetitionID != s.PetitionID {
			continue
		}
		if s.Phone != "" && existing.Phone == s.Phone {
			return &AlreadySignedError{Identifier: "phone number"}
		}
		if s.Email != "" && existing.Email == s.Email {
			return &AlreadySignedError{Identifier: "email address"}
		}
	}
	cp := *s
	m.signatures = append(m.signatures, &cp)
	return nil
}

func (m *memRepo) FindByIdentifiers(_ context.Context, petitionID, phone, email string) (*domain.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var phoneMatch, emailMatch *domain.Signature
	for _, s := range m.signatures {
		if s.PetitionID != petitionID {
			continue
		}
		if phone != "" && s.Phone == phone {
			phoneMatch = s
		}
		if email != "" && s.Email == email {
			emailMatch = s
		}
	}
	if phoneMatch != nil {
		cp := *phoneMatch
		return &cp, nil
	}
	if emailMatch != nil {
		cp := *emailMatch
		return &cp, nil
	}
	return nil, ErrSignatureNotFound
}

func (m *memRepo) FindByConfirmToken(_ context.Context, token string) (*domain.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.signatures {
		if s.ConfirmToken == token {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrSignatureNotFound
}

func (m *memRepo) FindPendingByEmail(_ context.Context, email string) (*domain.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.signatures) - 1; i >= 0; i-- {
		s := m.signatures[i]
		if s.Email == email && s.Status == domain.SignaturePending {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrSignatureNotFound
}

func (m *memRepo) CountRecentByIdentifiers(_ context.Context, phone, email string, window time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	since := time.Now().UTC().Add(-window)
	count := 0
	for _, s := range m.signatures {
		if s.CreatedAt.Before(since) {
			continue
		}
		if phone != "" && s.Phone == phone {
			count++
		}
		if email != "" && s.Email == email {
			count++
		}
	}
	return count, nil
}

func (m *memRepo) ConfirmSignature(_ context.Context, id string, confirmedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.confirmErr != nil {
		return m.confirmErr
	}
	for _, s := range m.signatures {
		if s.ID == id && s.Status == domain.SignaturePending {
			s.Status = domain.SignatureConfirmed
			t := confirmedAt
			s.ConfirmedAt = &t
			return nil
		}
	}
	return ErrSignatureNotFound
}

func (m *memRepo) PetitionStats(_ context.Context, slug string) (*domain.PetitionStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.petitions[slug]
	if !ok || !p.IsPublic {
		return nil, ErrPetitionNotFound
	}
	stats := &domain.PetitionStats{ID: p.ID, Slug: p.Slug, Title: p.Title}
	for _, s := range m.signatures {
		if s.PetitionID == p.ID && s.Status == domain.SignatureConfirmed {
			stats.ConfirmedCount++
		}
	}
	return stats, nil
}

func (m *memRepo) PetitionStatsEnhanced(_ context.Context, slug string) (*domain.PetitionStatsEnhanced, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.petitions[slug]
	if !ok {
		return nil, ErrPetitionNotFound
	}
	stats := &domain.PetitionStatsEnhanced{
		PetitionStats: domain.PetitionStats{ID: p.ID, Slug: p.Slug, Title: p.Title},
		LastUpdated:   time.Now().UTC(),
	}
	for _, s := range m.signatures {
		if s.PetitionID != p.ID {
			continue
		}
		stats.TotalCount++
		switch s.Status {
		case domain.SignatureConfirmed:
			stats.ConfirmedCount++
		case domain.SignaturePending:
			stats.PendingCount++
		}
	}
	return stats, nil
}

func (m *memRepo) ListConfirmedBySlug(_ context.Context, slug string) ([]domain.Signature, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.petitions[slug]
	if !ok {
		return nil, ErrPetitionNotFound
	}
	var out []domain.Signature
	for i := len(m.signatures) - 1; i >= 0; i-- {
		s := m.signatures[i]
		if s.PetitionID == p.ID && s.Status == domain.SignatureConfirmed {
			out = append(out, *s)
		}
	}
	return out, nil
}

// fakeBots approves or rejects every submission.
type fakeBots struct {
	ok  bool
	err error
}

func (f *fakeBots) Verify(context.Context, string, string) (bool, error) { return f.ok, f.err }

// fakeNotifier records sends.
type fakeNotifier struct {
	mu            sync.Mutex
	confirmations []string // "email|slug|token"
	thankYous     []string // "email|slug"
	sendErr       error
}

func (f *fakeNotifier) SendConfirmation(_ context.Context, email, _, slug, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.confirmations = append(f.confirmations, email+"|"+slug+"|"+token)
	return nil
}

func (f *fakeNotifier) SendThankYou(_ context.Context, email, _, slug string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.thankYous = append(f.thankYous, email+"|"+slug)
	return nil
}

// fakeLimiter allows the first n calls.
type fakeLimiter struct {
	mu    sync.Mutex
	limit int
	calls int
}

func (f *fakeLimiter) Allow(context.Context, string, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.calls <= f.limit, nil
}

func validSubmission() Submission {
	return Submission{
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		Country:        "GB",
		City:           "London",
		TurnstileToken: "tok",
	}
}

// testService builds a service with synchronous dispatch so email side
// effects are observable without sleeping.
func testService(repo *memRepo, notifier *fakeNotifier, opts Options) *Service {
	if opts.Dispatch == nil {
		opts.Dispatch = func(fn func()) { fn() }
	}
	return NewService(repo, &fakeBots{ok: true}, notifier, &fakeLimiter{limit: 100}, opts)
}

func TestSignEmailOnlyCreatesPending(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	notifier := &fakeNotifier{}
	svc := testService(repo, notifier, Options{})

	result, err := svc.Sign(context.Background(), "save-the-bees", validSubmission(), "1.2.3.4", "test-agent")
	require.NoError(t, err)

	assert.Equal(t, domain.SignaturePending, result.Status)
	assert.Len(t, result.ConfirmToken, 64)

	// The stored row carries the token and fingerprint hashes, not raw values
	sig, err := repo.FindByConfirmToken(context.Background(), result.ConfirmToken)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", sig.Email)
	assert.Equal(t, HashFingerprint("1.2.3.4"), sig.IPHash)
	assert.NotEqual(t, "1.2.3.4", sig.IPHash)
	assert.Nil(t, sig.ConfirmedAt)

	// Confirmation email dispatched with the same token
	require.Len(t, notifier.confirmations, 1)
	assert.Contains(t, notifier.confirmations[0], result.ConfirmToken)
	assert.Empty(t, notifier.thankYous)
}

func TestSignWithPhoneConfirmsImmediately(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	notifier := &fakeNotifier{}
	svc := testService(repo, notifier, Options{})

	sub := validSubmission()
	sub.Email = ""
	sub.Phone = "+1 (555) 123-4567"

	result, err := svc.Sign(context.Background(), "save-the-bees", sub, "1.2.3.4", "ua")
	require.NoError(t, err)

	assert.Equal(t, domain.SignatureConfirmed, result.Status)
	assert.Empty(t, result.ConfirmToken)
	assert.Empty(t, notifier.confirmations)

	stats, err := repo.PetitionStats(context.Background(), "save-the-bees")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ConfirmedCount)
}

func TestSignUnknownPetition(t *testing.T) {
	repo := newMemRepo()
	svc := testService(repo, &fakeNotifier{}, Options{})

	_, err := svc.Sign(context.Background(), "nope", validSubmission(), "1.2.3.4", "ua")
	assert.ErrorIs(t, err, ErrPetitionNotFound)
}

func TestSignPrivatePetitionNotFound(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "draft-petition", false)
	svc := testService(repo, &fakeNotifier{}, Options{})

	_, err := svc.Sign(context.Background(), "draft-petition", validSubmission(), "1.2.3.4", "ua")
	assert.ErrorIs(t, err, ErrPetitionNotFound)
}

func TestSignInvalidSubmission(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	svc := testService(repo, &fakeNotifier{}, Options{})

	sub := validSubmission()
	sub.FirstName = "A"
	sub.Country = "XX"

	_, err := svc.Sign(context.Background(), "save-the-bees", sub, "1.2.3.4", "ua")
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Len(t, verr.Fields, 2)
}

func TestSignDisposableEmail(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	svc := testService(repo, &fakeNotifier{}, Options{})

	sub := validSubmission()
	sub.Email = "throwaway@mailinator.com"

	_, err := svc.Sign(context.Background(), "save-the-bees", sub, "1.2.3.4", "ua")
	assert.ErrorIs(t, err, ErrDisposableEmail)
}

func TestSignBotCheckFailure(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	svc := NewService(repo, &fakeBots{ok: false}, &fakeNotifier{}, &fakeLimiter{limit: 100}, Options{
		Dispatch: func(fn func()) { fn() },
	})

	_, err := svc.Sign(context.Background(), "save-the-bees", validSubmission(), "1.2.3.4", "ua")
	assert.ErrorIs(t, err, ErrBotCheckFailed)

	// No row written on rejection
	_, err = repo.FindByIdentifiers(context.Background(), "p1", "", "ada@example.com")
	assert.ErrorIs(t, err, ErrSignatureNotFound)
}

func TestSignDuplicateEmail(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	svc := testService(repo, &fakeNotifier{}, Options{})

	_, err := svc.Sign(context.Background(), "save-the-bees", validSubmission(), "1.2.3.4", "ua")
	require.NoError(t, err)

	_, err = svc.Sign(context.Background(), "save-the-bees", validSubmission(), "1.2.3.4", "ua")
	var dup *AlreadySignedError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email address", dup.Identifier)
	assert.Equal(t, "email address already signed this petition", dup.Error())
}

func TestSignDuplicatePrefersPhone(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	svc := testService(repo, &fakeNotifier{}, Options{})

	sub := validSubmission()
	sub.Phone = "5551234567"
	_, err := svc.Sign(context.Background(), "save-the-bees", sub, "1.2.3.4", "ua")
	require.NoError(t, err)

	// Second attempt shares both identifiers; the phone is reported
	_, err = svc.Sign(context.Background(), "save-the-bees", sub, "1.2.3.4", "ua")
	var dup *AlreadySignedError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "phone number", dup.Identifier)
}

func TestSignSamePersonDifferentPetitions(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	repo.addPetition("p2", "save-the-trees", true)
	svc := testService(repo, &fakeNotifier{}, Options{})

	_, err := svc.Sign(context.Background(), "save-the-bees", validSubmission(), "1.2.3.4", "ua")
	require.NoError(t, err)

	// Dedup is scoped per petition
	_, err = svc.Sign(context.Background(), "save-the-trees", validSubmission(), "1.2.3.4", "ua")
	require.NoError(t, err)
}

func TestSignRateLimited(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	limiter := &fakeLimiter{limit: 2}
	svc := NewService(repo, &fakeBots{ok: true}, &fakeNotifier{}, limiter, Options{
		Dispatch: func(fn func()) { fn() },
	})

	for i, email := range []string{"a1@example.com", "a2@example.com"} {
		sub := validSubmission()
		sub.Email = email
		_, err := svc.Sign(context.Background(), "save-the-bees", sub, "1.2.3.4", "ua")
		require.NoError(t, err, "attempt %d", i+1)
	}

	sub := validSubmission()
	sub.Email = "a3@example.com"
	_, err := svc.Sign(context.Background(), "save-the-bees", sub, "1.2.3.4", "ua")
	assert.ErrorIs(t, err, ErrRateLimited)
}

func TestSignCreateRaceMapsToDuplicate(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	repo.createErr = &AlreadySignedError{Identifier: "email address"}
	svc := testService(repo, &fakeNotifier{}, Options{})

	_, err := svc.Sign(context.Background(), "save-the-bees", validSubmission(), "1.2.3.4", "ua")
	var dup *AlreadySignedError
	assert.ErrorAs(t, err, &dup)
}

func TestConfirmLifecycle(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	notifier := &fakeNotifier{}
	svc := testService(repo, notifier, Options{})

	result, err := svc.Sign(context.Background(), "save-the-bees", validSubmission(), "1.2.3.4", "ua")
	require.NoError(t, err)

	outcome, err := svc.Confirm(context.Background(), result.ConfirmToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, outcome)

	// Thank-you email went out once
	require.Len(t, notifier.thankYous, 1)
	assert.Equal(t, "ada@example.com|save-the-bees", notifier.thankYous[0])

	// Second confirm is idempotent and sends nothing
	outcome, err = svc.Confirm(context.Background(), result.ConfirmToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyConfirmed, outcome)
	assert.Len(t, notifier.thankYous, 1)

	stats, err := repo.PetitionStats(context.Background(), "save-the-bees")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ConfirmedCount)
}

func TestConfirmInvalidToken(t *testing.T) {
	svc := testService(newMemRepo(), &fakeNotifier{}, Options{})

	_, err := svc.Confirm(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Confirm(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestConfirmExpiredTokenLeavesPending(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	notifier := &fakeNotifier{}

	current := time.Now().UTC()
	svc := testService(repo, notifier, Options{
		ConfirmTTL: 24 * time.Hour,
		Now:        func() time.Time { return current },
	})

	result, err := svc.Sign(context.Background(), "save-the-bees", validSubmission(), "1.2.3.4", "ua")
	require.NoError(t, err)

	// Jump past the TTL
	current = current.Add(25 * time.Hour)

	_, err = svc.Confirm(context.Background(), result.ConfirmToken)
	assert.ErrorIs(t, err, ErrExpiredToken)

	// The row stays pending; it does not count toward totals
	sig, err := repo.FindByConfirmToken(context.Background(), result.ConfirmToken)
	require.NoError(t, err)
	assert.Equal(t, domain.SignaturePending, sig.Status)
	assert.Empty(t, notifier.thankYous)
}

func TestConfirmConcurrentLoserIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	svc := testService(repo, &fakeNotifier{}, Options{})

	result, err := svc.Sign(context.Background(), "save-the-bees", validSubmission(), "1.2.3.4", "ua")
	require.NoError(t, err)

	// Simulate losing the update race: the row reads as pending but the
	// conditional update matches nothing.
	repo.confirmErr = ErrSignatureNotFound

	outcome, err := svc.Confirm(context.Background(), result.ConfirmToken)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyConfirmed, outcome)
}

func TestResend(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	notifier := &fakeNotifier{}
	svc := testService(repo, notifier, Options{})

	result, err := svc.Sign(context.Background(), "save-the-bees", validSubmission(), "1.2.3.4", "ua")
	require.NoError(t, err)
	require.Len(t, notifier.confirmations, 1)

	// Resend reuses the original token
	err = svc.Resend(context.Background(), "Ada@Example.com")
	require.NoError(t, err)
	require.Len(t, notifier.confirmations, 2)
	assert.Contains(t, notifier.confirmations[1], result.ConfirmToken)
}

func TestResendNoPendingSignature(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	svc := testService(repo, &fakeNotifier{}, Options{})

	err := svc.Resend(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, ErrNoPendingSignature)
}

func TestResendExpired(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)

	current := time.Now().UTC()
	svc := testService(repo, &fakeNotifier{}, Options{
		ConfirmTTL: 24 * time.Hour,
		Now:        func() time.Time { return current },
	})

	_, err := svc.Sign(context.Background(), "save-the-bees", validSubmission(), "1.2.3.4", "ua")
	require.NoError(t, err)

	current = current.Add(48 * time.Hour)
	err = svc.Resend(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestResendInvalidEmail(t *testing.T) {
	svc := testService(newMemRepo(), &fakeNotifier{}, Options{})

	var verr *ValidationError
	err := svc.Resend(context.Background(), "not-an-email")
	assert.ErrorAs(t, err, &verr)
}

func TestAdminStatsCountsPending(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	svc := testService(repo, &fakeNotifier{}, Options{})

	// One pending (email), one confirmed (phone)
	_, err := svc.Sign(context.Background(), "save-the-bees", validSubmission(), "1.2.3.4", "ua")
	require.NoError(t, err)

	sub := validSubmission()
	sub.Email = ""
	sub.Phone = "5559876543"
	_, err = svc.Sign(context.Background(), "save-the-bees", sub, "1.2.3.4", "ua")
	require.NoError(t, err)

	stats, err := svc.AdminStats(context.Background(), "save-the-bees")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.PendingCount)
	assert.Equal(t, 1, stats.ConfirmedCount)
	assert.Equal(t, 2, stats.TotalCount)

	// Public stats only expose confirmed
	pub, err := svc.Stats(context.Background(), "save-the-bees")
	require.NoError(t, err)
	assert.Equal(t, 1, pub.ConfirmedCount)
}

func TestExportConfirmedOnly(t *testing.T) {
	repo := newMemRepo()
	repo.addPetition("p1", "save-the-bees", true)
	svc := testService(repo, &fakeNotifier{}, Options{})

	_, err := svc.Sign(context.Background(), "save-the-bees", validSubmission(), "1.2.3.4", "ua")
	require.NoError(t, err)

	sub := validSubmission()
	sub.Email = ""
	sub.Phone = "5559876543"
	_, err = svc.Sign(context.Background(), "save-the-bees", sub, "1.2.3.4", "ua")
	require.NoError(t, err)

	out, err := svc.ExportConfirmed(context.Background(), "save-the-bees")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, domain.SignatureConfirmed, out[0].Status)
}
