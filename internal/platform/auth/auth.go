// Package auth validates API keys against the provider registry and attaches
// the authenticated identity to the request.
package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/caretrail/caretrail/internal/domain/provider"
	"github.com/caretrail/caretrail/internal/platform/apperror"
	"github.com/caretrail/caretrail/internal/platform/cache"
)

// HeaderAPIKey is the request header carrying the raw API key.
const HeaderAPIKey = "X-API-Key"

// AuthenticatedProvider is what the rest of the system sees of a caller.
// The key hash stays inside this package.
type AuthenticatedProvider struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// AuthContext bundles the caller identity with per-request transport
// metadata for downstream consumers such as the audit pipeline.
type AuthContext struct {
	Provider  AuthenticatedProvider
	RequestID string
	IPAddress string
	UserAgent string
}

// Authenticator validates raw API keys. The candidate provider list is
// cached under a fixed key so a hot path does not pay a provider-table scan
// plus a bcrypt sweep against cold data on every request.
type Authenticator struct {
	repo   provider.Repository
	cache  *cache.Client
	logger zerolog.Logger
}

func NewAuthenticator(repo provider.Repository, c *cache.Client, logger zerolog.Logger) *Authenticator {
	return &Authenticator{repo: repo, cache: c, logger: logger}
}

// Authenticate resolves a raw API key to a provider. Every failure mode,
// including a persistence error during the fallback load, reports
// Unauthenticated, so infrastructure trouble is never distinguishable to an
// unauthenticated caller.
func (a *Authenticator) Authenticate(ctx context.Context, rawKey string) (*AuthenticatedProvider, error) {
	if rawKey == "" {
		return nil, apperror.Unauthenticated("API key is required", "no API key provided")
	}

	creds := a.credentials(ctx)
	for _, c := range creds {
		if bcrypt.CompareHashAndPassword([]byte(c.KeyHash), []byte(rawKey)) == nil {
			return &AuthenticatedProvider{ID: c.ID, Name: c.Name}, nil
		}
	}
	return nil, apperror.Unauthenticated("Invalid API key", "invalid API key provided")
}

// credentials returns the candidate list from cache, falling back to the
// repository and repopulating the cache on a miss.
func (a *Authenticator) credentials(ctx context.Context) []provider.Credential {
	if creds, ok := cache.GetList[[]provider.Credential](a.cache, cache.ProviderListKey); ok {
		return creds
	}

	creds, err := a.repo.ListCredentials(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("provider credential load failed during authentication")
		return nil
	}
	cache.SetList(a.cache, cache.ProviderListKey, creds)
	return creds
}
