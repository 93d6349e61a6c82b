package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agendaplus/practice-backend/internal/schedule"
)

// Repository is the versioned appointment store. Writes are conditional on
// the version column; the service layer owns guard evaluation and retries.
type Repository interface {
	// Create inserts a Requested appointment unless a non-terminal booking
	// already occupies an overlapping slot on the resource, in which case it
	// returns ErrConflictDetected. Check and insert are one atomic statement.
	Create(ctx context.Context, a *Appointment) error

	GetByID(ctx context.Context, id string) (*Appointment, error)
	List(ctx context.Context, f Filter) ([]*Appointment, int, error)

	// ActiveIntervals returns the occupied slots (non-terminal statuses) for
	// a resource, the input to the pure conflict detector.
	ActiveIntervals(ctx context.Context, tenantID, resourceID string) ([]schedule.Interval, error)

	// UpdateStatus commits a transition conditional on a.Version, bumping
	// the version. Zero rows affected means a concurrent writer won and the
	// result is ErrStaleVersion. On success a is updated in place.
	UpdateStatus(ctx context.Context, a *Appointment, to Status, reason string) error

	// UpdateSlot atomically releases the old slot and claims [start, end)
	// for a reschedule, conditional on a.Version and on the new slot being
	// free. Returns ErrStaleVersion when the guarded update matched no row;
	// the caller re-reads to distinguish a version race from a slot conflict.
	UpdateSlot(ctx context.Context, a *Appointment, start, end time.Time) error

	// DueReminders lists confirmed appointments starting within lead that
	// have not been reminded yet, across all tenants.
	DueReminders(ctx context.Context, now time.Time, lead time.Duration, limit int) ([]*Appointment, error)
	MarkReminded(ctx context.Context, id string, at time.Time) error
}

type pgxRepository struct {
	pool *pgxpool.Pool
}

func NewPgxRepository(pool *pgxpool.Pool) Repository {
	return &pgxRepository{pool: pool}
}

const columns = `id, tenant_id, resource_id, client_id, start_time, end_time,
	status, version, cancel_reason, reminded_at, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.TenantID, &a.ResourceID, &a.ClientID, &a.StartTime, &a.EndTime,
		&a.Status, &a.Version, &a.CancelReason, &a.RemindedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// isOverlapViolation matches the EXCLUDE constraint on
// (resource_id, tstzrange(start_time, end_time)) guarding non-terminal rows.
// The in-statement NOT EXISTS check makes this rare; the constraint is the
// backstop that keeps the safety invariant even under concurrent inserts.
func isOverlapViolation(err error) bool {
	var e *pgconn.PgError
	return errors.As(err, &e) &&
		(e.Code == pgerrcode.ExclusionViolation || e.Code == pgerrcode.UniqueViolation)
}

func (r *pgxRepository) Create(ctx context.Context, a *Appointment) error {
	const query = `
		INSERT INTO public.appointments
			(id, tenant_id, resource_id, client_id, start_time, end_time, status, version)
		SELECT $1, $2, $3, $4, $5, $6, $7, 1
		WHERE NOT EXISTS (
			SELECT 1 FROM public.appointments
			WHERE tenant_id = $2
			  AND resource_id = $3
			  AND status NOT IN ('completed', 'cancelled', 'no_show')
			  AND start_time < $6
			  AND end_time > $5
		)
		RETURNING version, created_at, updated_at
	`
	err := r.pool.QueryRow(ctx, query,
		a.ID, a.TenantID, a.ResourceID, a.ClientID, a.StartTime, a.EndTime, a.Status,
	).Scan(&a.Version, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isOverlapViolation(err) {
			return ErrConflictDetected
		}
		return fmt.Errorf("create appointment failed: %w", err)
	}
	return nil
}

func (r *pgxRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM public.appointments WHERE id = $1`, columns)
	a, err := scanAppointment(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get appointment failed: %w", err)
	}
	return a, nil
}

func (r *pgxRepository) List(ctx context.Context, f Filter) ([]*Appointment, int, error) {
	psql := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
	query := psql.Select(columns, "count(*) OVER() AS total_count").
		From("public.appointments").
		Where(squirrel.Eq{"tenant_id": f.TenantID})

	if f.ResourceID != "" {
		query = query.Where(squirrel.Eq{"resource_id": f.ResourceID})
	}
	if f.ClientID != "" {
		query = query.Where(squirrel.Eq{"client_id": f.ClientID})
	}
	if f.Status != "" {
		query = query.Where(squirrel.Eq{"status": f.Status})
	}
	if f.From != nil {
		query = query.Where(squirrel.GtOrEq{"end_time": f.From})
	}
	if f.To != nil {
		query = query.Where(squirrel.LtOrEq{"start_time": f.To})
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = 20
	}
	query = query.OrderBy("start_time DESC").
		Limit(uint64(f.PageSize)).
		Offset(uint64((f.Page - 1) * f.PageSize))

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build list appointments query failed: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	var total int
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID, &a.TenantID, &a.ResourceID, &a.ClientID, &a.StartTime, &a.EndTime,
			&a.Status, &a.Version, &a.CancelReason, &a.RemindedAt, &a.CreatedAt, &a.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan appointment failed: %w", err)
		}
		out = append(out, &a)
	}
	return out, total, nil
}

func (r *pgxRepository) ActiveIntervals(ctx context.Context, tenantID, resourceID string) ([]schedule.Interval, error) {
	const query = `
		SELECT id, start_time, end_time
		FROM public.appointments
		WHERE tenant_id = $1
		  AND resource_id = $2
		  AND status NOT IN ('completed', 'cancelled', 'no_show')
		ORDER BY start_time
	`
	rows, err := r.pool.Query(ctx, query, tenantID, resourceID)
	if err != nil {
		return nil, fmt.Errorf("list active intervals failed: %w", err)
	}
	defer rows.Close()

	var out []schedule.Interval
	for rows.Next() {
		var iv schedule.Interval
		if err := rows.Scan(&iv.ID, &iv.Start, &iv.End); err != nil {
			return nil, fmt.Errorf("scan interval failed: %w", err)
		}
		out = append(out, iv)
	}
	return out, nil
}

func (r *pgxRepository) UpdateStatus(ctx context.Context, a *Appointment, to Status, reason string) error {
	const query = `
		UPDATE public.appointments
		SET status = $1, cancel_reason = $2, version = version + 1, updated_at = now()
		WHERE id = $3 AND version = $4
		RETURNING version, updated_at
	`
	err := r.pool.QueryRow(ctx, query, to, reason, a.ID, a.Version).
		Scan(&a.Version, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStaleVersion
		}
		return fmt.Errorf("update appointment status failed: %w", err)
	}
	a.Status = to
	a.CancelReason = reason
	return nil
}

func (r *pgxRepository) UpdateSlot(ctx context.Context, a *Appointment, start, end time.Time) error {
	const query = `
		UPDATE public.appointments
		SET start_time = $1, end_time = $2, status = 'requested',
		    version = version + 1, updated_at = now()
		WHERE id = $3 AND version = $4
		  AND NOT EXISTS (
			SELECT 1 FROM public.appointments
			WHERE tenant_id = $5
			  AND resource_id = $6
			  AND id <> $3
			  AND status NOT IN ('completed', 'cancelled', 'no_show')
			  AND start_time < $2
			  AND end_time > $1
		)
		RETURNING version, updated_at
	`
	err := r.pool.QueryRow(ctx, query, start, end, a.ID, a.Version, a.TenantID, a.ResourceID).
		Scan(&a.Version, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrStaleVersion
		}
		if isOverlapViolation(err) {
			return ErrConflictDetected
		}
		return fmt.Errorf("update appointment slot failed: %w", err)
	}
	a.StartTime = start
	a.EndTime = end
	a.Status = StatusRequested
	return nil
}

func (r *pgxRepository) DueReminders(ctx context.Context, now time.Time, lead time.Duration, limit int) ([]*Appointment, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM public.appointments
		WHERE status = 'confirmed'
		  AND reminded_at IS NULL
		  AND start_time > $1
		  AND start_time <= $2
		ORDER BY start_time
		LIMIT $3
	`, columns)

	rows, err := r.pool.Query(ctx, query, now, now.Add(lead), limit)
	if err != nil {
		return nil, fmt.Errorf("list due reminders failed: %w", err)
	}
	defer rows.Close()

	var out []*Appointment
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(
			&a.ID, &a.TenantID, &a.ResourceID, &a.ClientID, &a.StartTime, &a.EndTime,
			&a.Status, &a.Version, &a.CancelReason, &a.RemindedAt, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan reminder row failed: %w", err)
		}
		out = append(out, &a)
	}
	return out, nil
}

func (r *pgxRepository) MarkReminded(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE public.appointments SET reminded_at = $1 WHERE id = $2 AND reminded_at IS NULL`
	if _, err := r.pool.Exec(ctx, query, at, id); err != nil {
		return fmt.Errorf("mark reminded failed: %w", err)
	}
	return nil
}
