package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository interface {
	Create(ctx context.Context, res *Resource) error
	GetByID(ctx context.Context, id string) (*Resource, error)
	List(ctx context.Context, f Filter) ([]*Resource, int, error)
	Update(ctx context.Context, res *Resource) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, res *Resource) error {
	const query = `
		INSERT INTO public.resources (tenant_id, name, kind, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query, res.TenantID, res.Name, res.Kind, res.Active).
		Scan(&res.ID, &res.CreatedAt)
	if err != nil {
		return fmt.Errorf("create resource failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Resource, error) {
	const query = `
		SELECT id, tenant_id, name, kind, active, created_at
		FROM public.resources
		WHERE id = $1
	`
	var res Resource
	err := r.pool.QueryRow(ctx, query, id).
		Scan(&res.ID, &res.TenantID, &res.Name, &res.Kind, &res.Active, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get resource failed: %w", err)
	}
	return &res, nil
}

func (r *pgxRepository) List(ctx context.Context, f Filter) ([]*Resource, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select("id", "tenant_id", "name", "kind", "active", "created_at", "count(*) OVER() AS total_count").
		From("public.resources").
		Where(squirrel.Eq{"tenant_id": f.TenantID})

	if f.Kind != "" {
		query = query.Where(squirrel.Eq{"kind": f.Kind})
	}
	if f.Active != nil {
		query = query.Where(squirrel.Eq{"active": *f.Active})
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	query = query.OrderBy("created_at DESC").
		Limit(uint64(f.PageSize)).
		Offset(uint64((f.Page - 1) * f.PageSize))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list resources query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list resources failed: %w", err)
	}
	defer rows.Close()

	var out []*Resource
	var total int
	for rows.Next() {
		var res Resource
		if err := rows.Scan(&res.ID, &res.TenantID, &res.Name, &res.Kind, &res.Active, &res.CreatedAt, &total); err != nil {
			return nil, 0, fmt.Errorf("scan resource failed: %w", err)
		}
		out = append(out, &res)
	}
	return out, total, nil
}

func (r *pgxRepository) Update(ctx context.Context, res *Resource) error {
	const query = `
		UPDATE public.resources
		SET name = $1, active = $2
		WHERE id = $3 AND tenant_id = $4
	`
	ct, err := r.pool.Exec(ctx, query, res.Name, res.Active, res.ID, res.TenantID)
	if err != nil {
		return fmt.Errorf("update resource failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
