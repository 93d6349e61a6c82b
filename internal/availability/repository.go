package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendaplus/practice-backend/internal/schedule"
)

type Repository interface {
	Create(ctx context.Context, w *Window) error
	GetByID(ctx context.Context, id string) (*Window, error)
	ListForResource(ctx context.Context, tenantID, resourceID string) ([]*Window, error)
	Delete(ctx context.Context, id string) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, w *Window) error {
	const query = `
		INSERT INTO public.availability_windows
			(tenant_id, resource_id, recurrence, weekday, date, start_minute, end_minute)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	var weekday *int16
	if w.Weekday != nil {
		d := int16(*w.Weekday)
		weekday = &d
	}
	err := r.pool.QueryRow(ctx, query,
		w.TenantID, w.ResourceID, w.Recurrence, weekday, w.Date, w.StartMinute, w.EndMinute,
	).Scan(&w.ID, &w.CreatedAt)
	if err != nil {
		return fmt.Errorf("create availability window failed: %w", err)
	}
	return nil
}

func scanWindow(row pgx.Row) (*Window, error) {
	var w Window
	var recurrence string
	var weekday *int16
	if err := row.Scan(
		&w.ID, &w.TenantID, &w.ResourceID, &recurrence, &weekday, &w.Date,
		&w.StartMinute, &w.EndMinute, &w.CreatedAt,
	); err != nil {
		return nil, err
	}
	w.Recurrence = schedule.Recurrence(recurrence)
	if weekday != nil {
		d := time.Weekday(*weekday)
		w.Weekday = &d
	}
	return &w, nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Window, error) {
	const query = `
		SELECT id, tenant_id, resource_id, recurrence, weekday, date, start_minute, end_minute, created_at
		FROM public.availability_windows
		WHERE id = $1
	`
	w, err := scanWindow(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get availability window failed: %w", err)
	}
	return w, nil
}

func (r *pgxRepository) ListForResource(ctx context.Context, tenantID, resourceID string) ([]*Window, error) {
	const query = `
		SELECT id, tenant_id, resource_id, recurrence, weekday, date, start_minute, end_minute, created_at
		FROM public.availability_windows
		WHERE tenant_id = $1 AND resource_id = $2
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query, tenantID, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list availability windows failed: %w", err)
	}
	defer rows.Close()

	var out []*Window
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan availability window failed: %w", err)
		}
		out = append(out, w)
	}
	return out, nil
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM public.availability_windows WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete availability window failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
