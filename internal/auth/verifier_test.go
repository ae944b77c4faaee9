package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSecretStore struct {
	secrets    map[string]string
	getCalls   int
	upserts    int
	getErr     error
	upsertErr  error
	lastUpsert string
}

func newMockSecretStore() *mockSecretStore {
	return &mockSecretStore{secrets: make(map[string]string)}
}

func (m *mockSecretStore) GetWebhookSecret(userID string) (string, error) {
	m.getCalls++
	if m.getErr != nil {
		return "", m.getErr
	}
	return m.secrets[userID], nil
}

func (m *mockSecretStore) UpsertWebhookSecret(userID, secret string) error {
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.secrets[userID] = secret
	m.lastUpsert = secret
	return nil
}

type fixedGenerator struct {
	secret string
}

func (g fixedGenerator) Generate() string { return g.secret }

func TestVerifyPopulatesCacheOnStoreMatch(t *testing.T) {
	store := newMockSecretStore()
	store.secrets["u1"] = "whk_abc"
	verifier := NewVerifier(NewCredentialCache(time.Hour), store, nil)

	// First verification hits the store exactly once
	assert.True(t, verifier.Verify("u1", "whk_abc"))
	assert.Equal(t, 1, store.getCalls)

	// Subsequent verifications are served entirely from cache
	assert.True(t, verifier.Verify("u1", "whk_abc"))
	assert.True(t, verifier.Verify("u1", "whk_abc"))
	assert.Equal(t, 1, store.getCalls)
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	store := newMockSecretStore()
	store.secrets["u1"] = "whk_abc"
	cache := NewCredentialCache(time.Hour)
	verifier := NewVerifier(cache, store, nil)

	assert.False(t, verifier.Verify("u1", "wrong"))
	// A mismatch never writes through
	_, ok := cache.Get("u1")
	assert.False(t, ok)
}

func TestVerifyRejectsCachedMismatch(t *testing.T) {
	store := newMockSecretStore()
	cache := NewCredentialCache(time.Hour)
	cache.Set("u1", "whk_abc")
	verifier := NewVerifier(cache, store, nil)

	// A cache hit with the wrong secret fails without a store query
	assert.False(t, verifier.Verify("u1", "wrong"))
	assert.Zero(t, store.getCalls)
}

func TestVerifyRejectsUnknownUserAndEmptySecret(t *testing.T) {
	store := newMockSecretStore()
	verifier := NewVerifier(NewCredentialCache(time.Hour), store, nil)

	assert.False(t, verifier.Verify("nobody", "whk_abc"))
	assert.False(t, verifier.Verify("nobody", ""))
}

func TestVerifyTreatsStoreErrorAsFailure(t *testing.T) {
	store := newMockSecretStore()
	store.getErr = errors.New("store down")
	verifier := NewVerifier(NewCredentialCache(time.Hour), store, nil)

	assert.False(t, verifier.Verify("u1", "whk_abc"))
}

func TestRotateWritesThrough(t *testing.T) {
	store := newMockSecretStore()
	store.secrets["u1"] = "whk_old"
	cache := NewCredentialCache(time.Hour)
	verifier := NewVerifier(cache, store, fixedGenerator{secret: "whk_new"})

	// Warm the cache with the old secret
	require.True(t, verifier.Verify("u1", "whk_old"))

	secret, err := verifier.Rotate("u1")
	require.NoError(t, err)
	assert.Equal(t, "whk_new", secret)
	assert.Equal(t, 1, store.upserts)

	// The old secret stops verifying immediately, without waiting for
	// the cache TTL, and the new one is served from cache
	storeCalls := store.getCalls
	assert.False(t, verifier.Verify("u1", "whk_old"))
	assert.True(t, verifier.Verify("u1", "whk_new"))
	assert.Equal(t, storeCalls, store.getCalls)
}

func TestRotateStoreFailureLeavesCacheAlone(t *testing.T) {
	store := newMockSecretStore()
	store.secrets["u1"] = "whk_old"
	cache := NewCredentialCache(time.Hour)
	verifier := NewVerifier(cache, store, fixedGenerator{secret: "whk_new"})

	require.True(t, verifier.Verify("u1", "whk_old"))

	store.upsertErr = errors.New("store down")
	_, err := verifier.Rotate("u1")
	require.Error(t, err)

	// The persisted secret is still the source of truth
	assert.True(t, verifier.Verify("u1", "whk_old"))
}

func TestUUIDSecretGenerator(t *testing.T) {
	gen := UUIDSecretGenerator{}

	a := gen.Generate()
	b := gen.Generate()
	assert.NotEqual(t, a, b)
	assert.Contains(t, a, "whk_")
}
