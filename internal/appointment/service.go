package appointment

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agendaplus/practice-backend/internal/availability"
	"github.com/agendaplus/practice-backend/internal/metrics"
	"github.com/agendaplus/practice-backend/internal/outbox"
	"github.com/agendaplus/practice-backend/internal/plugin"
	"github.com/agendaplus/practice-backend/internal/resource"
	"github.com/agendaplus/practice-backend/internal/schedule"
	"github.com/agendaplus/practice-backend/internal/tenant"
)

type RequestParams struct {
	ClientID   string
	ResourceID string
	StartTime  time.Time
	EndTime    time.Time
}

// Service is the scheduling engine. Every transition runs read, guard,
// conditional write as one optimistic sequence; a caller may pin the version
// it read (fail fast on races) or pass 0 to transition from the current
// state with bounded internal retries.
type Service interface {
	Request(ctx context.Context, tc tenant.Context, p RequestParams) (*Appointment, error)
	Confirm(ctx context.Context, tc tenant.Context, id string, version int64) (*Appointment, error)
	Reschedule(ctx context.Context, tc tenant.Context, id string, version int64, start, end time.Time) (*Appointment, error)
	Start(ctx context.Context, tc tenant.Context, id string, version int64) (*Appointment, error)
	Complete(ctx context.Context, tc tenant.Context, id string, version int64) (*Appointment, error)
	Cancel(ctx context.Context, tc tenant.Context, id string, version int64, reason string) (*Appointment, error)
	MarkNoShow(ctx context.Context, tc tenant.Context, id string, version int64) (*Appointment, error)

	GetByID(ctx context.Context, tc tenant.Context, id string) (*Appointment, error)
	List(ctx context.Context, tc tenant.Context, f Filter) ([]*Appointment, int, error)
}

type Config struct {
	// StartGraceWindow is how early before its slot an appointment may be
	// started. Default 10m.
	StartGraceWindow time.Duration
	// StaleRetryMax bounds internal retries when an unpinned transition
	// loses a write race. Default 3.
	StaleRetryMax int
	// StaleRetryBase is the first retry sleep; it doubles per attempt.
	StaleRetryBase time.Duration
}

func (c *Config) defaults() {
	if c.StartGraceWindow <= 0 {
		c.StartGraceWindow = 10 * time.Minute
	}
	if c.StaleRetryMax <= 0 {
		c.StaleRetryMax = 3
	}
	if c.StaleRetryBase <= 0 {
		c.StaleRetryBase = 25 * time.Millisecond
	}
}

type service struct {
	repo       Repository
	resService resource.Service
	avService  availability.Service
	registry   *plugin.Registry
	events     outbox.Store
	cfg        Config
	log        zerolog.Logger
	now        func() time.Time
}

func NewService(
	repo Repository,
	resService resource.Service,
	avService availability.Service,
	registry *plugin.Registry,
	events outbox.Store,
	cfg Config,
	log zerolog.Logger,
) Service {
	cfg.defaults()
	return &service{
		repo:       repo,
		resService: resService,
		avService:  avService,
		registry:   registry,
		events:     events,
		cfg:        cfg,
		log:        log.With().Str("component", "scheduling_engine").Logger(),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *service) Request(ctx context.Context, tc tenant.Context, p RequestParams) (*Appointment, error) {
	res, err := s.resService.GetByID(ctx, tc, p.ResourceID)
	if err != nil {
		metrics.ObserveTransition("request", "error")
		return nil, err
	}
	if !res.Active {
		metrics.ObserveTransition("request", "rejected")
		return nil, ErrResourceInactive
	}

	windows, err := s.avService.WindowsForResource(ctx, tc, p.ResourceID)
	if err != nil {
		metrics.ObserveTransition("request", "error")
		return nil, err
	}
	occupied, err := s.repo.ActiveIntervals(ctx, tc.TenantID, p.ResourceID)
	if err != nil {
		metrics.ObserveTransition("request", "error")
		return nil, err
	}
	if err := schedule.CheckSlot(windows, occupied, p.StartTime, p.EndTime, ""); err != nil {
		metrics.ObserveTransition("request", "rejected")
		return nil, err
	}

	a := &Appointment{
		ID:         uuid.NewString(),
		TenantID:   tc.TenantID,
		ResourceID: p.ResourceID,
		ClientID:   p.ClientID,
		StartTime:  p.StartTime,
		EndTime:    p.EndTime,
		Status:     StatusRequested,
	}

	proposed := s.domainEvent(a, plugin.EventRequested, "", StatusRequested, "")
	if err := s.runGuards(ctx, proposed); err != nil {
		metrics.ObserveTransition("request", "vetoed")
		return nil, err
	}

	// The insert re-checks overlap atomically; a racing writer that slipped
	// between the pure check and here surfaces as ErrConflictDetected.
	if err := s.repo.Create(ctx, a); err != nil {
		if errors.Is(err, ErrConflictDetected) {
			metrics.ObserveTransition("request", "conflict")
		} else {
			metrics.ObserveTransition("request", "error")
		}
		return nil, err
	}

	s.emit(proposed)
	metrics.ObserveTransition("request", "committed")
	return a, nil
}

func (s *service) Confirm(ctx context.Context, tc tenant.Context, id string, version int64) (*Appointment, error) {
	return s.transition(ctx, tc, id, version, EventConfirm, "", func(a *Appointment) error {
		if !tc.CanSchedule() {
			return ErrPermissionDenied
		}
		return nil
	})
}

func (s *service) Start(ctx context.Context, tc tenant.Context, id string, version int64) (*Appointment, error) {
	return s.transition(ctx, tc, id, version, EventStart, "", func(a *Appointment) error {
		if s.now().Before(a.StartTime.Add(-s.cfg.StartGraceWindow)) {
			return ErrTooEarlyToStart
		}
		return nil
	})
}

func (s *service) Complete(ctx context.Context, tc tenant.Context, id string, version int64) (*Appointment, error) {
	return s.transition(ctx, tc, id, version, EventComplete, "", nil)
}

func (s *service) Cancel(ctx context.Context, tc tenant.Context, id string, version int64, reason string) (*Appointment, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}
	return s.transition(ctx, tc, id, version, EventCancel, reason, nil)
}

func (s *service) MarkNoShow(ctx context.Context, tc tenant.Context, id string, version int64) (*Appointment, error) {
	return s.transition(ctx, tc, id, version, EventNoShow, "", func(a *Appointment) error {
		if !s.now().After(a.StartTime) {
			return ErrNotElapsed
		}
		return nil
	})
}

// Reschedule moves the appointment to a new slot as one logical operation:
// the old slot's release and the new slot's claim are a single guarded
// update, so the appointment keeps its identity and no intermediate state is
// observable.
func (s *service) Reschedule(ctx context.Context, tc tenant.Context, id string, version int64, start, end time.Time) (*Appointment, error) {
	const event = EventReschedule

	for attempt := 0; ; attempt++ {
		a, err := s.load(ctx, tc, id)
		if err != nil {
			metrics.ObserveTransition(string(event), "error")
			return nil, err
		}
		if version != 0 && a.Version != version {
			metrics.ObserveTransition(string(event), "stale")
			return nil, ErrStaleVersion
		}
		from := a.Status
		if _, err := next(from, event); err != nil {
			metrics.ObserveTransition(string(event), "invalid")
			return nil, err
		}

		windows, err := s.avService.WindowsForResource(ctx, tc, a.ResourceID)
		if err != nil {
			metrics.ObserveTransition(string(event), "error")
			return nil, err
		}
		occupied, err := s.repo.ActiveIntervals(ctx, tc.TenantID, a.ResourceID)
		if err != nil {
			metrics.ObserveTransition(string(event), "error")
			return nil, err
		}
		if err := schedule.CheckSlot(windows, occupied, start, end, a.ID); err != nil {
			metrics.ObserveTransition(string(event), "rejected")
			return nil, err
		}

		proposed := s.domainEvent(a, plugin.EventRescheduled, from, StatusRequested, "")
		proposed.StartTime, proposed.EndTime = start, end
		if err := s.runGuards(ctx, proposed); err != nil {
			metrics.ObserveTransition(string(event), "vetoed")
			return nil, err
		}

		err = s.repo.UpdateSlot(ctx, a, start, end)
		if err == nil {
			s.emit(proposed)
			metrics.ObserveTransition(string(event), "committed")
			return a, nil
		}
		if errors.Is(err, ErrConflictDetected) {
			metrics.ObserveTransition(string(event), "conflict")
			return nil, err
		}
		if !errors.Is(err, ErrStaleVersion) {
			metrics.ObserveTransition(string(event), "error")
			return nil, err
		}

		// The guarded update matched no row: either the version moved or the
		// slot filled. Re-read to tell the two apart.
		fresh, readErr := s.load(ctx, tc, id)
		if readErr == nil && fresh.Version == a.Version {
			metrics.ObserveTransition(string(event), "conflict")
			return nil, ErrConflictDetected
		}
		if version != 0 || attempt >= s.cfg.StaleRetryMax {
			metrics.ObserveTransition(string(event), "stale")
			return nil, ErrStaleVersion
		}
		s.backoff(ctx, attempt)
	}
}

func (s *service) GetByID(ctx context.Context, tc tenant.Context, id string) (*Appointment, error) {
	return s.load(ctx, tc, id)
}

func (s *service) List(ctx context.Context, tc tenant.Context, f Filter) ([]*Appointment, int, error) {
	f.TenantID = tc.TenantID
	return s.repo.List(ctx, f)
}

// load fetches and enforces the isolation boundary.
func (s *service) load(ctx context.Context, tc tenant.Context, id string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(a.TenantID); err != nil {
		return nil, err
	}
	return a, nil
}

// transition is the shared read/guard/write sequence for status-only moves.
func (s *service) transition(
	ctx context.Context,
	tc tenant.Context,
	id string,
	version int64,
	event Event,
	reason string,
	domainGuard func(a *Appointment) error,
) (*Appointment, error) {
	for attempt := 0; ; attempt++ {
		a, err := s.load(ctx, tc, id)
		if err != nil {
			metrics.ObserveTransition(string(event), "error")
			return nil, err
		}
		if version != 0 && a.Version != version {
			metrics.ObserveTransition(string(event), "stale")
			return nil, ErrStaleVersion
		}

		from := a.Status
		to, err := next(from, event)
		if err != nil {
			metrics.ObserveTransition(string(event), "invalid")
			return nil, err
		}
		if domainGuard != nil {
			if err := domainGuard(a); err != nil {
				metrics.ObserveTransition(string(event), "rejected")
				return nil, err
			}
		}

		proposed := s.domainEvent(a, eventTypes[event], from, to, reason)
		if err := s.runGuards(ctx, proposed); err != nil {
			metrics.ObserveTransition(string(event), "vetoed")
			return nil, err
		}

		err = s.repo.UpdateStatus(ctx, a, to, reason)
		if err == nil {
			s.emit(proposed)
			metrics.ObserveTransition(string(event), "committed")
			return a, nil
		}
		if !errors.Is(err, ErrStaleVersion) {
			metrics.ObserveTransition(string(event), "error")
			return nil, err
		}
		if version != 0 || attempt >= s.cfg.StaleRetryMax {
			metrics.ObserveTransition(string(event), "stale")
			return nil, ErrStaleVersion
		}
		s.backoff(ctx, attempt)
	}
}

func (s *service) domainEvent(a *Appointment, typ plugin.EventType, from, to Status, reason string) plugin.Event {
	return plugin.Event{
		ID:            uuid.NewString(),
		Type:          typ,
		TenantID:      a.TenantID,
		AppointmentID: a.ID,
		ResourceID:    a.ResourceID,
		ClientID:      a.ClientID,
		FromStatus:    string(from),
		ToStatus:      string(to),
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Reason:        reason,
		OccurredAt:    s.now(),
	}
}

func (s *service) runGuards(ctx context.Context, proposed plugin.Event) error {
	started := time.Now()
	err := s.registry.RunGuards(ctx, proposed)
	metrics.ObserveGuardDuration(time.Since(started))
	return err
}

// emit appends the domain event to the outbox. The transition is already
// committed; a failing append is logged and never unwinds it.
func (s *service) emit(ev plugin.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.events.Append(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event", ev.ID).
			Str("appointment", ev.AppointmentID).
			Str("type", string(ev.Type)).
			Msg("append domain event failed; observers will miss this transition")
	}
}

func (s *service) backoff(ctx context.Context, attempt int) {
	d := s.cfg.StaleRetryBase << attempt
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
