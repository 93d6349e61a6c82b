package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendaplus/practice-backend/internal/plugin"
)

type pgxStore struct {
	pool *pgxpool.Pool
}

// NewPgxStore returns a Store persisting events in public.outbox_events,
// making delivery survive restarts.
func NewPgxStore(pool *pgxpool.Pool) Store {
	return &pgxStore{pool: pool}
}

func (s *pgxStore) Append(ctx context.Context, ev plugin.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal outbox event failed: %w", err)
	}

	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query, args, err := psql.Insert("public.outbox_events").
		Columns("id", "tenant_id", "appointment_id", "event_type", "payload").
		Values(ev.ID, ev.TenantID, ev.AppointmentID, string(ev.Type), payload).
		ToSql()
	if err != nil {
		return fmt.Errorf("build append outbox query failed: %w", err)
	}

	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("append outbox event failed: %w", err)
	}
	return nil
}

func (s *pgxStore) ListPending(ctx context.Context, limit int) ([]plugin.Event, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select("payload").
		From("public.outbox_events").
		Where(squirrel.Eq{"delivered_at": nil}).
		OrderBy("created_at")
	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list pending query failed: %w", err)
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("list pending outbox events failed: %w", err)
	}
	defer rows.Close()

	var out []plugin.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan outbox event failed: %w", err)
		}
		var ev plugin.Event
		if err := json.Unmarshal(payload, &ev); err != nil {
			return nil, fmt.Errorf("decode outbox event failed: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

func (s *pgxStore) MarkDelivered(ctx context.Context, eventID string) error {
	const query = `
		UPDATE public.outbox_events
		SET delivered_at = now()
		WHERE id = $1 AND delivered_at IS NULL
	`
	if _, err := s.pool.Exec(ctx, query, eventID); err != nil {
		return fmt.Errorf("mark outbox event delivered failed: %w", err)
	}
	return nil
}
