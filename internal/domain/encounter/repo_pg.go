package encounter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caretrail/caretrail/internal/platform/apperror"
)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepo returns a Repository backed by PostgreSQL.
func NewRepo(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

const encounterColumns = `id, patient_id, provider_id, encounter_date, encounter_type, clinical_data, created_at, updated_at, created_by`

func (r *pgRepository) Create(ctx context.Context, enc *Encounter) error {
	query := `
		INSERT INTO encounter (id, patient_id, provider_id, encounter_date, encounter_type, clinical_data, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		enc.ID, enc.PatientID, enc.ProviderID, enc.EncounterDate,
		enc.EncounterType, enc.ClinicalData, enc.CreatedBy,
	).Scan(&enc.CreatedAt, &enc.UpdatedAt)
	if err != nil {
		return apperror.Internal("A database error occurred while processing your request", "create encounter: "+err.Error())
	}
	return nil
}

func (r *pgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	query := fmt.Sprintf(`SELECT %s FROM encounter WHERE id = $1`, encounterColumns)

	enc, err := scanEncounter(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.NotFound("Encounter not found", "")
		}
		return nil, apperror.Internal("A database error occurred while processing your request", "get encounter: "+err.Error())
	}
	return enc, nil
}

func (r *pgRepository) FindMany(ctx context.Context, filters ListFilters) ([]*Encounter, int, error) {
	where, args := buildFilter(filters)

	var total int
	countQuery := `SELECT COUNT(*) FROM encounter` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, apperror.Internal("A database error occurred while processing your request", "count encounters: "+err.Error())
	}

	offset := (filters.Page - 1) * filters.Limit
	query := fmt.Sprintf(`SELECT %s FROM encounter%s ORDER BY encounter_date DESC LIMIT $%d OFFSET $%d`,
		encounterColumns, where, len(args)+1, len(args)+2)
	args = append(args, filters.Limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, apperror.Internal("A database error occurred while processing your request", "list encounters: "+err.Error())
	}
	defer rows.Close()

	var encounters []*Encounter
	for rows.Next() {
		enc, err := scanEncounter(rows)
		if err != nil {
			return nil, 0, apperror.Internal("A database error occurred while processing your request", "scan encounter: "+err.Error())
		}
		encounters = append(encounters, enc)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.Internal("A database error occurred while processing your request", "iterate encounters: "+err.Error())
	}
	return encounters, total, nil
}

func (r *pgRepository) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM patient WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, apperror.Internal("A database error occurred while processing your request", "patient lookup: "+err.Error())
	}
	return exists, nil
}

func buildFilter(filters ListFilters) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if filters.ProviderID != "" {
		add("provider_id = $%d", filters.ProviderID)
	}
	if filters.PatientID != "" {
		add("patient_id = $%d", filters.PatientID)
	}
	if filters.StartDate != nil {
		add("encounter_date >= $%d", *filters.StartDate)
	}
	if filters.EndDate != nil {
		add("encounter_date <= $%d", *filters.EndDate)
	}
	if filters.EncounterType != "" {
		add("encounter_type = $%d", filters.EncounterType)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanEncounter(row pgx.Row) (*Encounter, error) {
	var enc Encounter
	err := row.Scan(
		&enc.ID, &enc.PatientID, &enc.ProviderID, &enc.EncounterDate,
		&enc.EncounterType, &enc.ClinicalData, &enc.CreatedAt, &enc.UpdatedAt,
		&enc.CreatedBy,
	)
	if err != nil {
		return nil, err
	}
	return &enc, nil
}
