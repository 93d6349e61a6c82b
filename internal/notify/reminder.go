package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/agendaplus/practice-backend/internal/appointment"
)

// Reminder sweeps confirmed appointments approaching their slot and sends a
// one-time reminder to each. MarkReminded keeps the sweep idempotent across
// runs and restarts.
type Reminder struct {
	repo     appointment.Repository
	provider Provider
	lead     time.Duration
	batch    int
	cron     *cron.Cron
	log      zerolog.Logger
}

type ReminderConfig struct {
	// Spec is a cron expression, e.g. "@every 5m".
	Spec string
	// Lead is how far ahead of the slot reminders go out. Default 24h.
	Lead time.Duration
	// Batch bounds one sweep. Default 100.
	Batch int
}

func NewReminder(repo appointment.Repository, provider Provider, cfg ReminderConfig, log zerolog.Logger) *Reminder {
	if cfg.Lead <= 0 {
		cfg.Lead = 24 * time.Hour
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 100
	}
	if cfg.Spec == "" {
		cfg.Spec = "@every 5m"
	}
	r := &Reminder{
		repo:     repo,
		provider: provider,
		lead:     cfg.Lead,
		batch:    cfg.Batch,
		cron:     cron.New(),
		log:      log.With().Str("component", "reminder").Logger(),
	}
	r.cron.Schedule(mustParse(cfg.Spec), cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := r.Sweep(ctx, time.Now().UTC()); err != nil {
			r.log.Error().Err(err).Msg("reminder sweep failed")
		}
	}))
	return r
}

func mustParse(spec string) cron.Schedule {
	s, err := cron.ParseStandard(spec)
	if err != nil {
		panic(fmt.Sprintf("invalid reminder cron spec %q: %s", spec, err))
	}
	return s
}

func (r *Reminder) Start() { r.cron.Start() }

func (r *Reminder) Stop() context.Context { return r.cron.Stop() }

// Sweep sends reminders for appointments starting within the lead window.
func (r *Reminder) Sweep(ctx context.Context, now time.Time) error {
	due, err := r.repo.DueReminders(ctx, now, r.lead, r.batch)
	if err != nil {
		return fmt.Errorf("list due reminders failed: %w", err)
	}

	for _, a := range due {
		msg := Message{
			TenantID:  a.TenantID,
			Recipient: a.ClientID,
			Subject:   "Upcoming appointment",
			Body: fmt.Sprintf("Reminder: your appointment starts at %s.",
				a.StartTime.Format("Mon, 02 Jan 2006 15:04")),
		}
		if err := r.provider.Send(ctx, msg); err != nil {
			// Leave the row unmarked; the next sweep retries it.
			r.log.Error().Err(err).Str("appointment", a.ID).Msg("reminder send failed")
			continue
		}
		if err := r.repo.MarkReminded(ctx, a.ID, now); err != nil {
			r.log.Error().Err(err).Str("appointment", a.ID).Msg("mark reminded failed")
		}
	}

	if len(due) > 0 {
		r.log.Info().Int("count", len(due)).Msg("reminders sent")
	}
	return nil
}
