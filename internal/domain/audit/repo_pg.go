package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caretrail/caretrail/internal/platform/apperror"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const auditCols = `id, resource_path, method, provider_id, ip_address, user_agent,
	request_id, request_data, response_data, action, resource_type, resource_id,
	fields_accessed, timestamp`

func (r *repoPG) Create(ctx context.Context, data CreateData) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_log (
			id, resource_path, method, provider_id, ip_address, user_agent,
			request_id, request_data, response_data, action, resource_type,
			resource_id, fields_accessed, timestamp
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NOW())`,
		uuid.New(), data.ResourcePath, data.Method, data.ProviderID,
		nullable(data.IPAddress), nullable(data.UserAgent), nullable(data.RequestID),
		data.RequestData, data.ResponseData,
		nullable(data.Action), nullable(data.ResourceType), nullable(data.ResourceID),
		emptySlice(data.FieldsAccessed),
	)
	if err != nil {
		return apperror.Internal("A database error occurred while processing your request", err.Error())
	}
	return nil
}

func (r *repoPG) FindMany(ctx context.Context, params QueryParams) ([]*Record, int, error) {
	where, args := buildFilter(params)

	var total int
	countSQL := `SELECT COUNT(*) FROM audit_log` + where
	if err := r.pool.QueryRow(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, apperror.Internal("A database error occurred while processing your request", err.Error())
	}

	offset := (params.Page - 1) * params.Limit
	dataSQL := fmt.Sprintf(`SELECT %s FROM audit_log%s ORDER BY timestamp DESC LIMIT $%d OFFSET $%d`,
		auditCols, where, len(args)+1, len(args)+2)
	rows, err := r.pool.Query(ctx, dataSQL, append(args, params.Limit, offset)...)
	if err != nil {
		return nil, 0, apperror.Internal("A database error occurred while processing your request", err.Error())
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.ID, &rec.ResourcePath, &rec.Method, &rec.ProviderID,
			&rec.IPAddress, &rec.UserAgent, &rec.RequestID,
			&rec.RequestData, &rec.ResponseData,
			&rec.Action, &rec.ResourceType, &rec.ResourceID,
			&rec.FieldsAccessed, &rec.Timestamp,
		); err != nil {
			return nil, 0, apperror.Internal("A database error occurred while processing your request", err.Error())
		}
		records = append(records, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, apperror.Internal("A database error occurred while processing your request", err.Error())
	}
	return records, total, nil
}

// buildFilter assembles the WHERE clause shared by the count and data
// queries. Date bounds are inclusive on both ends.
func buildFilter(params QueryParams) (string, []any) {
	var clauses []string
	var args []any

	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, len(args)))
	}

	if params.StartDate != nil {
		add(`timestamp >= $%d`, *params.StartDate)
	}
	if params.EndDate != nil {
		add(`timestamp <= $%d`, *params.EndDate)
	}
	if params.ProviderID != "" {
		add(`provider_id = $%d`, params.ProviderID)
	}
	if params.ResourcePath != "" {
		add(`resource_path ILIKE $%d`, "%"+escapeLike(params.ResourcePath)+"%")
	}
	if params.Method != "" {
		add(`method = $%d`, params.Method)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// escapeLike neutralizes LIKE metacharacters in user-supplied substrings.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
