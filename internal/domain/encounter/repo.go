package encounter

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence boundary for encounters.
type Repository interface {
	Create(ctx context.Context, enc *Encounter) error
	GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error)
	FindMany(ctx context.Context, filters ListFilters) ([]*Encounter, int, error)
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)
}
