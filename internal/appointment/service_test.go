package appointment

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendaplus/practice-backend/internal/availability"
	"github.com/agendaplus/practice-backend/internal/outbox"
	"github.com/agendaplus/practice-backend/internal/plugin"
	"github.com/agendaplus/practice-backend/internal/resource"
	"github.com/agendaplus/practice-backend/internal/schedule"
	"github.com/agendaplus/practice-backend/internal/tenant"
)

// memRepo mirrors the conditional-write semantics of the SQL repository:
// atomic overlap-checked inserts and version-guarded updates.
type memRepo struct {
	mu   sync.Mutex
	rows map[string]*Appointment
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[string]*Appointment)}
}

func (r *memRepo) overlapsLocked(resourceID, excludeID string, start, end time.Time) bool {
	for _, row := range r.rows {
		if row.ResourceID != resourceID || row.ID == excludeID || row.Status.Terminal() {
			continue
		}
		if schedule.Overlaps(row.StartTime, row.EndTime, start, end) {
			return true
		}
	}
	return false
}

func (r *memRepo) Create(ctx context.Context, a *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.overlapsLocked(a.ResourceID, "", a.StartTime, a.EndTime) {
		return ErrConflictDetected
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Version = 1
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.rows[a.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memRepo) List(ctx context.Context, f Filter) ([]*Appointment, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Appointment
	for _, row := range r.rows {
		if row.TenantID != f.TenantID {
			continue
		}
		if f.ResourceID != "" && row.ResourceID != f.ResourceID {
			continue
		}
		if f.Status != "" && string(row.Status) != f.Status {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *memRepo) ActiveIntervals(ctx context.Context, tenantID, resourceID string) ([]schedule.Interval, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []schedule.Interval
	for _, row := range r.rows {
		if row.TenantID != tenantID || row.ResourceID != resourceID || row.Status.Terminal() {
			continue
		}
		out = append(out, schedule.Interval{ID: row.ID, Start: row.StartTime, End: row.EndTime})
	}
	return out, nil
}

func (r *memRepo) UpdateStatus(ctx context.Context, a *Appointment, to Status, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[a.ID]
	if !ok || row.Version != a.Version {
		return ErrStaleVersion
	}
	row.Status = to
	row.Version++
	row.UpdatedAt = time.Now().UTC()
	if reason != "" {
		row.CancelReason = reason
	}
	a.Status = to
	a.Version = row.Version
	a.CancelReason = row.CancelReason
	a.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *memRepo) UpdateSlot(ctx context.Context, a *Appointment, start, end time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	row, ok := r.rows[a.ID]
	if !ok || row.Version != a.Version || r.overlapsLocked(row.ResourceID, row.ID, start, end) {
		// Matches the SQL shape: a guarded update that touches no row is
		// reported as stale and the caller disambiguates by re-reading.
		return ErrStaleVersion
	}
	row.StartTime, row.EndTime = start, end
	row.Status = StatusRequested
	row.Version++
	row.UpdatedAt = time.Now().UTC()
	a.StartTime, a.EndTime = start, end
	a.Status = row.Status
	a.Version = row.Version
	a.UpdatedAt = row.UpdatedAt
	return nil
}

func (r *memRepo) DueReminders(ctx context.Context, now time.Time, lead time.Duration, limit int) ([]*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Appointment
	for _, row := range r.rows {
		if row.Status != StatusConfirmed || row.RemindedAt != nil {
			continue
		}
		if row.StartTime.After(now) && row.StartTime.Sub(now) <= lead {
			cp := *row
			out = append(out, &cp)
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (r *memRepo) MarkReminded(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.rows[id]; ok {
		row.RemindedAt = &at
	}
	return nil
}

type fakeResources struct {
	byID map[string]*resource.Resource
}

func (f *fakeResources) GetByID(ctx context.Context, tc tenant.Context, id string) (*resource.Resource, error) {
	res, ok := f.byID[id]
	if !ok {
		return nil, resource.ErrNotFound
	}
	if err := tc.Owns(res.TenantID); err != nil {
		return nil, err
	}
	cp := *res
	return &cp, nil
}

func (f *fakeResources) Create(context.Context, tenant.Context, resource.CreateRequest) (*resource.Resource, error) {
	panic("not used")
}
func (f *fakeResources) List(context.Context, tenant.Context, resource.Filter) ([]*resource.Resource, int, error) {
	panic("not used")
}
func (f *fakeResources) Update(context.Context, tenant.Context, string, resource.UpdateRequest) (*resource.Resource, error) {
	panic("not used")
}
func (f *fakeResources) Deactivate(context.Context, tenant.Context, string) (*resource.Resource, error) {
	panic("not used")
}
func (f *fakeResources) Activate(context.Context, tenant.Context, string) (*resource.Resource, error) {
	panic("not used")
}

type fakeAvailability struct {
	windows map[string][]schedule.Window
}

func (f *fakeAvailability) WindowsForResource(ctx context.Context, tc tenant.Context, resourceID string) ([]schedule.Window, error) {
	return f.windows[resourceID], nil
}

func (f *fakeAvailability) Create(context.Context, tenant.Context, availability.CreateRequest) (*availability.Window, error) {
	panic("not used")
}
func (f *fakeAvailability) ListForResource(context.Context, tenant.Context, string) ([]*availability.Window, error) {
	panic("not used")
}
func (f *fakeAvailability) Delete(context.Context, tenant.Context, string) error {
	panic("not used")
}

type engineFixture struct {
	svc      *service
	repo     *memRepo
	events   *outbox.MemoryStore
	registry *plugin.Registry
	tc       tenant.Context
}

// Tuesday, fully open for resource r1.
var (
	day      = time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	tuesday  = time.Tuesday
	openFull = schedule.Window{Recurrence: schedule.RecurrenceWeekly, Weekday: tuesday, StartMinute: 0, EndMinute: 24 * 60}
)

func at(hour, minute int) time.Time {
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	repo := newMemRepo()
	events := outbox.NewMemoryStore()
	registry := plugin.NewRegistry(time.Second, zerolog.Nop())

	resources := &fakeResources{byID: map[string]*resource.Resource{
		"r1": {ID: "r1", TenantID: "t1", Name: "Dr. Reyes", Kind: resource.KindProfessional, Active: true},
		"r2": {ID: "r2", TenantID: "t1", Name: "Room B", Kind: resource.KindRoom, Active: false},
	}}
	windows := &fakeAvailability{windows: map[string][]schedule.Window{
		"r1": {openFull},
	}}

	svc := NewService(repo, resources, windows, registry, events, Config{}, zerolog.Nop()).(*service)
	svc.now = func() time.Time { return at(9, 30) }

	return &engineFixture{
		svc:      svc,
		repo:     repo,
		events:   events,
		registry: registry,
		tc:       tenant.Context{TenantID: "t1", ActorID: "u1", Role: tenant.RoleProfessional},
	}
}

func (f *engineFixture) book(t *testing.T, startH, endH int) *Appointment {
	t.Helper()
	a, err := f.svc.Request(context.Background(), f.tc, RequestParams{
		ClientID:   "c1",
		ResourceID: "r1",
		StartTime:  at(startH, 0),
		EndTime:    at(endH, 0),
	})
	require.NoError(t, err)
	return a
}

func TestRequestConflictAndAdjacency(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	first := f.book(t, 9, 10)
	assert.Equal(t, StatusRequested, first.Status)
	assert.EqualValues(t, 1, first.Version)

	// Overlapping slot on the same resource is rejected.
	_, err := f.svc.Request(ctx, f.tc, RequestParams{
		ClientID: "c2", ResourceID: "r1", StartTime: at(9, 30), EndTime: at(10, 30),
	})
	assert.ErrorIs(t, err, ErrConflictDetected)

	// Back-to-back is fine: intervals are half-open.
	_, err = f.svc.Request(ctx, f.tc, RequestParams{
		ClientID: "c2", ResourceID: "r1", StartTime: at(10, 0), EndTime: at(11, 0),
	})
	assert.NoError(t, err)
}

func TestRequestOutsideAvailability(t *testing.T) {
	f := newEngineFixture(t)
	// Clamp r1 to business hours for this test.
	f.svc.avService.(*fakeAvailability).windows["r1"] = []schedule.Window{
		{Recurrence: schedule.RecurrenceWeekly, Weekday: tuesday, StartMinute: 9 * 60, EndMinute: 17 * 60},
	}

	_, err := f.svc.Request(context.Background(), f.tc, RequestParams{
		ClientID: "c1", ResourceID: "r1", StartTime: at(18, 0), EndTime: at(19, 0),
	})
	assert.ErrorIs(t, err, ErrOutsideAvailability)
}

func TestRequestInactiveResource(t *testing.T) {
	f := newEngineFixture(t)
	_, err := f.svc.Request(context.Background(), f.tc, RequestParams{
		ClientID: "c1", ResourceID: "r2", StartTime: at(9, 0), EndTime: at(10, 0),
	})
	assert.ErrorIs(t, err, ErrResourceInactive)
}

func TestLifecycleHappyPath(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	a := f.book(t, 9, 10)
	a, err := f.svc.Confirm(ctx, f.tc, a.ID, a.Version)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, a.Status)
	assert.EqualValues(t, 2, a.Version)

	a, err = f.svc.Start(ctx, f.tc, a.ID, a.Version)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, a.Status)

	a, err = f.svc.Complete(ctx, f.tc, a.ID, a.Version)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, a.Status)
	assert.EqualValues(t, 4, a.Version)

	// One event per committed transition, in commit order.
	pending, err := f.events.ListPending(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pending, 4)
	assert.Equal(t, plugin.EventRequested, pending[0].Type)
	assert.Equal(t, plugin.EventConfirmed, pending[1].Type)
	assert.Equal(t, plugin.EventStarted, pending[2].Type)
	assert.Equal(t, plugin.EventCompleted, pending[3].Type)
}

func TestCancelCompletedIsInvalid(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	a := f.book(t, 9, 10)
	a, err := f.svc.Confirm(ctx, f.tc, a.ID, 0)
	require.NoError(t, err)
	a, err = f.svc.Start(ctx, f.tc, a.ID, 0)
	require.NoError(t, err)
	a, err = f.svc.Complete(ctx, f.tc, a.ID, 0)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.tc, a.ID, 0, "changed my mind")
	assert.ErrorIs(t, err, ErrInvalidTransition)

	got, err := f.svc.GetByID(ctx, f.tc, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestCancelRequiresReason(t *testing.T) {
	f := newEngineFixture(t)
	a := f.book(t, 9, 10)
	_, err := f.svc.Cancel(context.Background(), f.tc, a.ID, a.Version, "")
	assert.ErrorIs(t, err, ErrReasonRequired)
}

func TestCrossTenantAccessDenied(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	a := f.book(t, 9, 10)

	intruder := tenant.Context{TenantID: "t2", ActorID: "u9", Role: tenant.RoleAdmin}
	_, err := f.svc.GetByID(ctx, intruder, a.ID)
	assert.ErrorIs(t, err, tenant.ErrIsolationViolation)

	_, err = f.svc.Cancel(ctx, intruder, a.ID, a.Version, "not yours")
	assert.ErrorIs(t, err, tenant.ErrIsolationViolation)
}

func TestClientCannotConfirm(t *testing.T) {
	f := newEngineFixture(t)
	a := f.book(t, 9, 10)

	client := tenant.Context{TenantID: "t1", ActorID: "c1", Role: tenant.RoleClient}
	_, err := f.svc.Confirm(context.Background(), client, a.ID, a.Version)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestConcurrentConfirmExactlyOneWins(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	a := f.book(t, 9, 10)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Confirm(ctx, f.tc, a.ID, a.Version)
		}(i)
	}
	wg.Wait()

	var ok, stale int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrStaleVersion):
			stale++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, stale)

	got, err := f.svc.GetByID(ctx, f.tc, a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, got.Status)
	assert.EqualValues(t, 2, got.Version)
}

func TestUnpinnedTransitionRetriesPastRace(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()
	a := f.book(t, 9, 10)

	// A racing writer bumps the version behind the caller's back.
	_, err := f.svc.Confirm(ctx, f.tc, a.ID, 0)
	require.NoError(t, err)

	// Version 0 means "current state": the cancel re-reads and lands on the
	// confirmed row instead of failing on the version it never saw.
	got, err := f.svc.Cancel(ctx, f.tc, a.ID, 0, "client called in sick")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, "client called in sick", got.CancelReason)
}

func TestGuardVetoLeavesNoTrace(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	_, err := f.registry.RegisterGuard(plugin.Registration{
		PluginID: "deny-all",
		Events:   plugin.AllEventTypes,
	}, vetoGuard{})
	require.NoError(t, err)

	_, err = f.svc.Request(ctx, f.tc, RequestParams{
		ClientID: "c1", ResourceID: "r1", StartTime: at(9, 0), EndTime: at(10, 0),
	})
	assert.ErrorIs(t, err, plugin.ErrVetoed)

	// Nothing persisted, nothing emitted.
	list, total, err := f.svc.List(ctx, f.tc, Filter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, list)
	assert.Zero(t, f.events.Pending())
}

type vetoGuard struct{}

func (vetoGuard) PluginID() string { return "deny-all" }
func (vetoGuard) Check(context.Context, plugin.Event) (string, error) {
	return "outside allowed policy", nil
}

func TestRescheduleMovesSlotAtomically(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	a := f.book(t, 9, 10)
	a, err := f.svc.Confirm(ctx, f.tc, a.ID, a.Version)
	require.NoError(t, err)

	got, err := f.svc.Reschedule(ctx, f.tc, a.ID, a.Version, at(14, 0), at(15, 0))
	require.NoError(t, err)
	assert.Equal(t, StatusRequested, got.Status, "reschedule drops back to requested")
	assert.Equal(t, at(14, 0), got.StartTime)
	assert.Equal(t, a.ID, got.ID, "identity survives the move")

	// The vacated slot is immediately bookable.
	_, err = f.svc.Request(ctx, f.tc, RequestParams{
		ClientID: "c2", ResourceID: "r1", StartTime: at(9, 0), EndTime: at(10, 0),
	})
	assert.NoError(t, err)
}

func TestRescheduleIntoOccupiedSlot(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	a := f.book(t, 9, 10)
	_, err := f.svc.Request(ctx, f.tc, RequestParams{
		ClientID: "c2", ResourceID: "r1", StartTime: at(11, 0), EndTime: at(12, 0),
	})
	require.NoError(t, err)

	_, err = f.svc.Reschedule(ctx, f.tc, a.ID, a.Version, at(11, 30), at(12, 30))
	assert.ErrorIs(t, err, ErrConflictDetected)

	got, err := f.svc.GetByID(ctx, f.tc, a.ID)
	require.NoError(t, err)
	assert.Equal(t, at(9, 0), got.StartTime, "failed reschedule leaves the slot untouched")
}

func TestStartGraceWindow(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	a := f.book(t, 14, 15)
	a, err := f.svc.Confirm(ctx, f.tc, a.ID, a.Version)
	require.NoError(t, err)

	// 9:30 is far more than the grace window before a 14:00 slot.
	_, err = f.svc.Start(ctx, f.tc, a.ID, a.Version)
	assert.ErrorIs(t, err, ErrTooEarlyToStart)

	// Inside the window it goes through.
	f.svc.now = func() time.Time { return at(13, 55) }
	got, err := f.svc.Start(ctx, f.tc, a.ID, a.Version)
	require.NoError(t, err)
	assert.Equal(t, StatusInProgress, got.Status)
}

func TestNoShowOnlyAfterStartElapsed(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	a := f.book(t, 14, 15)
	a, err := f.svc.Confirm(ctx, f.tc, a.ID, a.Version)
	require.NoError(t, err)

	_, err = f.svc.MarkNoShow(ctx, f.tc, a.ID, a.Version)
	assert.ErrorIs(t, err, ErrNotElapsed)

	f.svc.now = func() time.Time { return at(14, 10) }
	got, err := f.svc.MarkNoShow(ctx, f.tc, a.ID, a.Version)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, got.Status)
}

func TestConcurrentBookingsNeverOverlap(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	// Hammer one resource with random hour-long requests; whatever subset
	// commits, no two non-terminal slots may intersect.
	rng := rand.New(rand.NewSource(1))
	starts := make([]int, 40)
	for i := range starts {
		starts[i] = rng.Intn(12) // hours 0..11, each request one hour long
	}

	var wg sync.WaitGroup
	for i, h := range starts {
		wg.Add(1)
		go func(i, h int) {
			defer wg.Done()
			_, _ = f.svc.Request(ctx, f.tc, RequestParams{
				ClientID:   fmt.Sprintf("c%d", i),
				ResourceID: "r1",
				StartTime:  at(h, 0),
				EndTime:    at(h+1, 0),
			})
		}(i, h)
	}
	wg.Wait()

	booked, _, err := f.svc.List(ctx, f.tc, Filter{})
	require.NoError(t, err)
	require.NotEmpty(t, booked)
	for i := 0; i < len(booked); i++ {
		for j := i + 1; j < len(booked); j++ {
			a, b := booked[i], booked[j]
			if a.Status.Terminal() || b.Status.Terminal() {
				continue
			}
			assert.False(t, schedule.Overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime),
				"overlap between %s and %s", a.ID, b.ID)
		}
	}
}

func TestPinnedStaleVersionFailsFast(t *testing.T) {
	f := newEngineFixture(t)
	ctx := context.Background()

	a := f.book(t, 9, 10)
	_, err := f.svc.Confirm(ctx, f.tc, a.ID, 0)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.tc, a.ID, a.Version, "stale caller")
	assert.ErrorIs(t, err, ErrStaleVersion)
}
