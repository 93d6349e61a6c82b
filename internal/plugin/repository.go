package plugin

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists registrations so hook wiring survives restarts.
// The in-memory Registry remains the source of truth at runtime; rows here
// are replayed into it on boot.
type Repository interface {
	Create(ctx context.Context, reg *Registration) error
	Delete(ctx context.Context, id string) error
	ListAll(ctx context.Context) ([]Registration, error)
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

func (r *pgxRepository) Create(ctx context.Context, reg *Registration) error {
	events := make([]string, len(reg.Events))
	for i, e := range reg.Events {
		events[i] = string(e)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.plugin_registrations").
		Columns("id", "tenant_id", "plugin_id", "capability", "events", "priority").
		Values(reg.ID, reg.TenantID, reg.PluginID, string(reg.Capability), events, reg.Priority).
		Suffix("RETURNING created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build create registration query failed: %w", err)
	}

	return r.pool.QueryRow(ctx, query, args...).Scan(&reg.CreatedAt)
}

func (r *pgxRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM public.plugin_registrations WHERE id = $1`
	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete registration failed: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotRegistered
	}
	return nil
}

func (r *pgxRepository) ListAll(ctx context.Context) ([]Registration, error) {
	const query = `
		SELECT id, tenant_id, plugin_id, capability, events, priority, created_at
		FROM public.plugin_registrations
		ORDER BY created_at
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list registrations failed: %w", err)
	}
	defer rows.Close()

	var out []Registration
	for rows.Next() {
		var reg Registration
		var capability string
		var events []string
		if err := rows.Scan(&reg.ID, &reg.TenantID, &reg.PluginID, &capability, &events, &reg.Priority, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan registration failed: %w", err)
		}
		reg.Capability = Capability(capability)
		reg.Events = make([]EventType, len(events))
		for i, e := range events {
			reg.Events[i] = EventType(e)
		}
		out = append(out, reg)
	}
	return out, nil
}
