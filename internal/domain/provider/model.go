package provider

import (
	"time"

	"github.com/google/uuid"
)

// Provider maps to the provider table. The API key hash never serializes and
// never travels past the auth component; authenticated callers only ever see
// the id and name.
type Provider struct {
	ID         uuid.UUID `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	APIKeyHash *string   `db:"api_key_hash" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// Credential is the cacheable slice of a provider the auth component needs
// to validate an API key. It is the only shape that carries the hash.
type Credential struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	KeyHash string    `json:"key_hash"`
}
