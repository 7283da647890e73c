package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/caretrail/caretrail/internal/platform/apperror"
	"github.com/caretrail/caretrail/pkg/pagination"
)

// Service persists and retrieves audit records. Record and Query have
// deliberately different failure policies: a failed audit write must never
// abort the primary request, while a failed compliance query is a real error.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Record persists one audit entry. It never returns an error: persistence
// failures are swallowed and logged, because audit is best-effort rather
// than transactional with the business write it describes.
func (s *Service) Record(ctx context.Context, data CreateData) {
	if err := s.repo.Create(ctx, data); err != nil {
		s.logger.Error().Err(err).
			Str("request_id", data.RequestID).
			Str("resource_path", data.ResourcePath).
			Str("provider_id", data.ProviderID.String()).
			Msg("audit log creation failed")
	}
}

// Query returns a filtered, paginated page of audit records, newest first.
func (s *Service) Query(ctx context.Context, params QueryParams) (*QueryResult, error) {
	// The service reclamps whatever the transport layer accepted; this cap
	// is authoritative.
	p := pagination.Params{Page: params.Page, Limit: params.Limit}.Normalize()
	params.Page, params.Limit = p.Page, p.Limit

	records, total, err := s.repo.FindMany(ctx, params)
	if err != nil {
		s.logger.Error().Err(err).Msg("audit log query failed")
		return nil, apperror.Internal("Failed to retrieve audit logs", err.Error())
	}
	if records == nil {
		records = []*Record{}
	}

	return &QueryResult{
		Data: records,
		Meta: Meta{
			Total:      total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: p.TotalPages(total),
		},
	}, nil
}
