package provider

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	// ListCredentials returns every provider holding a non-null API key hash.
	ListCredentials(ctx context.Context) ([]Credential, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	Create(ctx context.Context, p *Provider) error
}
