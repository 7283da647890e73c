package audit

import "context"

type Repository interface {
	Create(ctx context.Context, data CreateData) error
	// FindMany returns the matching page ordered newest-first by timestamp,
	// along with the total match count before pagination.
	FindMany(ctx context.Context, params QueryParams) ([]*Record, int, error)
}
