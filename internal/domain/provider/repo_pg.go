package provider

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/caretrail/caretrail/internal/platform/apperror"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) ListCredentials(ctx context.Context) ([]Credential, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, name, api_key_hash FROM provider WHERE api_key_hash IS NOT NULL`)
	if err != nil {
		return nil, apperror.Internal("A database error occurred while processing your request", err.Error())
	}
	defer rows.Close()

	var creds []Credential
	for rows.Next() {
		var c Credential
		if err := rows.Scan(&c.ID, &c.Name, &c.KeyHash); err != nil {
			return nil, apperror.Internal("A database error occurred while processing your request", err.Error())
		}
		creds = append(creds, c)
	}
	if err := rows.Err(); err != nil {
		return nil, apperror.Internal("A database error occurred while processing your request", err.Error())
	}
	return creds, nil
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	var p Provider
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, api_key_hash, created_at FROM provider WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.APIKeyHash, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("Provider not found", "provider "+id.String()+" does not exist")
	}
	if err != nil {
		return nil, apperror.Internal("A database error occurred while processing your request", err.Error())
	}
	return &p, nil
}

func (r *repoPG) Create(ctx context.Context, p *Provider) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO provider (id, name, api_key_hash) VALUES ($1, $2, $3)`,
		p.ID, p.Name, p.APIKeyHash)
	if err != nil {
		return apperror.Internal("A database error occurred while processing your request", err.Error())
	}
	return nil
}
