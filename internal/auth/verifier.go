package auth

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// SecretStore is the slice of the trade store the verifier needs
type SecretStore interface {
	GetWebhookSecret(userID string) (string, error)
	UpsertWebhookSecret(userID, secret string) error
}

// SecretGenerator produces new webhook secrets. Production uses a
// cryptographically secure source; tests inject a deterministic one.
type SecretGenerator interface {
	Generate() string
}

// UUIDSecretGenerator generates secrets from random UUIDs
type UUIDSecretGenerator struct{}

func (UUIDSecretGenerator) Generate() string {
	return "whk_" + uuid.NewString()
}

// Verifier resolves and checks webhook secrets, consulting the
// credential cache before the store and writing through on a match.
type Verifier struct {
	cache *CredentialCache
	store SecretStore
	gen   SecretGenerator
}

// NewVerifier creates a verifier over the given cache and store
func NewVerifier(cache *CredentialCache, store SecretStore, gen SecretGenerator) *Verifier {
	if gen == nil {
		gen = UUIDSecretGenerator{}
	}
	return &Verifier{
		cache: cache,
		store: store,
		gen:   gen,
	}
}

// Verify checks the provided secret against the user's registered one.
// A cache hit with a matching secret never touches the store. On a
// cache miss the store is queried once and a genuine match is written
// through so the next delivery is served from cache.
func (v *Verifier) Verify(userID, providedSecret string) bool {
	if providedSecret == "" {
		return false
	}

	if cached, ok := v.cache.Get(userID); ok {
		return cached == providedSecret
	}

	stored, err := v.store.GetWebhookSecret(userID)
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("failed to load webhook secret")
		return false
	}
	if stored == "" || stored != providedSecret {
		return false
	}

	v.cache.Set(userID, stored)
	return true
}

// Rotate generates a fresh secret for the user, persists it and
// updates the credential cache so the old secret stops verifying
// immediately.
func (v *Verifier) Rotate(userID string) (string, error) {
	secret := v.gen.Generate()
	if err := v.store.UpsertWebhookSecret(userID, secret); err != nil {
		return "", err
	}
	v.cache.Set(userID, secret)
	return secret, nil
}

// CurrentSecret returns the user's persisted secret, or empty when
// none has been generated
func (v *Verifier) CurrentSecret(userID string) (string, error) {
	return v.store.GetWebhookSecret(userID)
}

// CacheStats exposes the credential cache's summary statistics
func (v *Verifier) CacheStats() CacheStats {
	return v.cache.Stats()
}
