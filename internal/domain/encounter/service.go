package encounter

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/caretrail/caretrail/internal/platform/apperror"
	"github.com/caretrail/caretrail/internal/platform/cache"
	"github.com/caretrail/caretrail/pkg/pagination"
)

// Service implements the encounter operations: idempotent creation, owner
// scoped reads, and filtered listing with read-through caching.
type Service struct {
	repo   Repository
	cache  *cache.Client
	logger zerolog.Logger
}

func NewService(repo Repository, c *cache.Client, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  c,
		logger: logger.With().Str("component", "encounter_service").Logger(),
	}
}

// Create records a new encounter for the calling provider. When the caller
// supplies an idempotency key that maps to a live encounter, that encounter
// is returned unchanged and created reports false. A mapping whose encounter
// no longer resolves is discarded and creation proceeds.
func (s *Service) Create(ctx context.Context, providerID uuid.UUID, idempotencyKey string, input CreateInput) (enc *Encounter, created bool, err error) {
	if idempotencyKey != "" {
		if existing := s.replay(ctx, idempotencyKey); existing != nil {
			return existing, false, nil
		}
	}

	if input.EncounterDate.After(time.Now()) {
		return nil, false, apperror.BadRequest("Encounter date cannot be in the future", "")
	}
	exists, err := s.repo.PatientExists(ctx, input.PatientID)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, apperror.BadRequest("Patient not found", "patient "+input.PatientID.String()+" does not exist")
	}

	enc = &Encounter{
		ID:            uuid.New(),
		PatientID:     input.PatientID,
		ProviderID:    providerID,
		EncounterDate: input.EncounterDate,
		EncounterType: input.EncounterType,
		ClinicalData:  input.ClinicalData,
		CreatedBy:     providerID,
	}
	if err := s.repo.Create(ctx, enc); err != nil {
		return nil, false, err
	}

	cache.SetEntity(s.cache, cache.EncounterKey(enc.ID.String()), enc.ToSnapshot())
	if idempotencyKey != "" {
		s.cache.SetString(cache.IdempotencyKey(idempotencyKey), enc.ID.String())
	}

	s.logger.Info().
		Str("encounter_id", enc.ID.String()).
		Str("provider_id", providerID.String()).
		Msg("encounter created")

	return enc, true, nil
}

// replay resolves an idempotency key to its previously created encounter.
// A stale mapping is deleted so the key can be reused for a fresh create.
func (s *Service) replay(ctx context.Context, idempotencyKey string) *Encounter {
	mapped, ok := s.cache.GetString(cache.IdempotencyKey(idempotencyKey))
	if !ok {
		return nil
	}
	id, err := uuid.Parse(mapped)
	if err != nil {
		s.cache.DeleteString(cache.IdempotencyKey(idempotencyKey))
		return nil
	}
	enc, err := s.getOwnerless(ctx, id)
	if err != nil {
		s.cache.DeleteString(cache.IdempotencyKey(idempotencyKey))
		return nil
	}
	return enc
}

// GetByID returns one encounter, serving from the detail cache when possible.
// The ownership check runs on whichever copy answered, so a cached record is
// exactly as protected as a persisted one.
func (s *Service) GetByID(ctx context.Context, providerID, id uuid.UUID) (*Encounter, error) {
	enc, err := s.getOwnerless(ctx, id)
	if err != nil {
		return nil, err
	}
	if enc.ProviderID != providerID {
		return nil, apperror.Unauthorized("You do not have access to this encounter",
			"provider "+providerID.String()+" requested encounter owned by "+enc.ProviderID.String())
	}
	return enc, nil
}

// getOwnerless fetches by id without an ownership check, cache first.
func (s *Service) getOwnerless(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	if snap, ok := cache.GetEntity[Snapshot](s.cache, cache.EncounterKey(id.String())); ok {
		return snap.Entity(), nil
	}
	enc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	cache.SetEntity(s.cache, cache.EncounterKey(id.String()), enc.ToSnapshot())
	return enc, nil
}

// List returns one page of the calling provider's encounters. The provider
// filter is always overwritten with the caller's id; clients cannot list
// another provider's records by naming them.
func (s *Service) List(ctx context.Context, providerID uuid.UUID, filters ListFilters) (*ListResult, error) {
	filters.ProviderID = providerID.String()
	if filters.StartDate != nil && filters.EndDate != nil && filters.StartDate.After(*filters.EndDate) {
		return nil, apperror.BadRequest("Start date must be before end date", "")
	}
	p := pagination.Params{Page: filters.Page, Limit: filters.Limit}.Normalize()
	filters.Page, filters.Limit = p.Page, p.Limit

	key := cache.ListKey(listKeyFilters(filters))
	if snap, ok := cache.GetList[listSnapshot](s.cache, key); ok {
		return snap.result(), nil
	}

	encounters, total, err := s.repo.FindMany(ctx, filters)
	if err != nil {
		return nil, err
	}
	if encounters == nil {
		encounters = []*Encounter{}
	}

	result := &ListResult{
		Encounters: encounters,
		Meta: ListMeta{
			Total:      total,
			Page:       p.Page,
			Limit:      p.Limit,
			TotalPages: p.TotalPages(total),
		},
	}
	cache.SetList(s.cache, key, result.snapshot())
	return result, nil
}

func listKeyFilters(filters ListFilters) map[string]string {
	m := map[string]string{
		"providerId":    filters.ProviderID,
		"patientId":     filters.PatientID,
		"encounterType": filters.EncounterType,
		"page":          strconv.Itoa(filters.Page),
		"limit":         strconv.Itoa(filters.Limit),
	}
	if filters.StartDate != nil {
		m["startDate"] = filters.StartDate.UTC().Format(time.RFC3339)
	}
	if filters.EndDate != nil {
		m["endDate"] = filters.EndDate.UTC().Format(time.RFC3339)
	}
	return m
}

func (r *ListResult) snapshot() listSnapshot {
	snaps := make([]Snapshot, len(r.Encounters))
	for i, enc := range r.Encounters {
		snaps[i] = enc.ToSnapshot()
	}
	return listSnapshot{Encounters: snaps, Meta: r.Meta}
}

func (s listSnapshot) result() *ListResult {
	encounters := make([]*Encounter, len(s.Encounters))
	for i, snap := range s.Encounters {
		encounters[i] = snap.Entity()
	}
	return &ListResult{Encounters: encounters, Meta: s.Meta}
}
