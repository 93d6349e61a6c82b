package plugin

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agendaplus/practice-backend/internal/pkg/apperror"
)

// Registry owns plugin registrations and fans scheduling events out to the
// bound capabilities. Plugin code itself is not loaded here: callers hand in
// Guard/Observer values, typically resolved from the Catalog of built-ins.
type Registry struct {
	mu           sync.RWMutex
	guards       map[string]*guardEntry
	observers    map[string]*observerEntry
	guardTimeout time.Duration
	log          zerolog.Logger
}

type guardEntry struct {
	reg   Registration
	guard Guard
}

type observerEntry struct {
	reg      Registration
	observer Observer
}

func NewRegistry(guardTimeout time.Duration, log zerolog.Logger) *Registry {
	if guardTimeout <= 0 {
		guardTimeout = 2 * time.Second
	}
	return &Registry{
		guards:       make(map[string]*guardEntry),
		observers:    make(map[string]*observerEntry),
		guardTimeout: guardTimeout,
		log:          log.With().Str("component", "plugin_registry").Logger(),
	}
}

func validate(reg *Registration) error {
	if len(reg.Events) == 0 {
		return ErrNoEventTypes
	}
	for _, e := range reg.Events {
		if !ValidEventType(e) {
			return apperror.Wrap(ErrUnknownEvent, http.StatusBadRequest, fmt.Sprintf("unknown event type %q", e))
		}
	}
	if reg.ID == "" {
		reg.ID = uuid.NewString()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}
	return nil
}

// RegisterGuard binds a veto-capable plugin and returns the registration ID.
func (r *Registry) RegisterGuard(reg Registration, g Guard) (string, error) {
	reg.Capability = CapabilityGuard
	if err := validate(&reg); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.guards[reg.ID] = &guardEntry{reg: reg, guard: g}
	r.log.Info().Str("plugin", g.PluginID()).Str("registration", reg.ID).
		Str("tenant", reg.TenantID).Int("priority", reg.Priority).Msg("guard registered")
	return reg.ID, nil
}

// RegisterObserver binds a side-effecting plugin and returns the registration ID.
func (r *Registry) RegisterObserver(reg Registration, o Observer) (string, error) {
	reg.Capability = CapabilityObserver
	if err := validate(&reg); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers[reg.ID] = &observerEntry{reg: reg, observer: o}
	r.log.Info().Str("plugin", o.PluginID()).Str("registration", reg.ID).
		Str("tenant", reg.TenantID).Msg("observer registered")
	return reg.ID, nil
}

// Unregister removes a registration of either capability.
func (r *Registry) Unregister(registrationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.guards[registrationID]; ok {
		delete(r.guards, registrationID)
		return nil
	}
	if _, ok := r.observers[registrationID]; ok {
		delete(r.observers, registrationID)
		return nil
	}
	return ErrNotRegistered
}

// Registrations returns the registrations visible to a tenant (its own plus
// global ones), sorted by creation time.
func (r *Registry) Registrations(tenantID string) []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Registration
	for _, e := range r.guards {
		if e.reg.TenantID == "" || e.reg.TenantID == tenantID {
			out = append(out, e.reg)
		}
	}
	for _, e := range r.observers {
		if e.reg.TenantID == "" || e.reg.TenantID == tenantID {
			out = append(out, e.reg)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// RunGuards invokes every guard subscribed to the proposed transition in
// ascending priority order. The first veto short-circuits with ErrVetoed;
// a guard overrunning the timeout fails closed with ErrTimeout.
func (r *Registry) RunGuards(ctx context.Context, ev Event) error {
	r.mu.RLock()
	entries := make([]*guardEntry, 0, len(r.guards))
	for _, e := range r.guards {
		if e.reg.subscribed(ev.TenantID, ev.Type) {
			entries = append(entries, e)
		}
	}
	r.mu.RUnlock()

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].reg.Priority < entries[j].reg.Priority })

	for _, e := range entries {
		reason, err := r.runGuard(ctx, e.guard, ev)
		if err != nil {
			return err
		}
		if reason != "" {
			return apperror.Wrap(ErrVetoed, http.StatusUnprocessableEntity,
				fmt.Sprintf("vetoed by %s: %s", e.guard.PluginID(), reason))
		}
	}
	return nil
}

func (r *Registry) runGuard(ctx context.Context, g Guard, ev Event) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.guardTimeout)
	defer cancel()

	type verdict struct {
		reason string
		err    error
	}
	done := make(chan verdict, 1)
	go func() {
		reason, err := g.Check(ctx, ev)
		done <- verdict{reason, err}
	}()

	select {
	case v := <-done:
		if v.err != nil {
			// A failing guard cannot render a verdict; fail closed.
			return "", apperror.Wrap(ErrVetoed, http.StatusUnprocessableEntity,
				fmt.Sprintf("guard %s failed: %s", g.PluginID(), v.err))
		}
		return v.reason, nil
	case <-ctx.Done():
		r.log.Warn().Str("plugin", g.PluginID()).Dur("timeout", r.guardTimeout).Msg("guard timed out")
		return "", apperror.Wrap(ErrTimeout, http.StatusGatewayTimeout,
			fmt.Sprintf("guard %s timed out", g.PluginID()))
	}
}

// Observers returns the observers subscribed to an event, for post-commit
// fan-out by the dispatcher. Order across observers is unspecified.
func (r *Registry) Observers(tenantID string, t EventType) []Observer {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Observer
	for _, e := range r.observers {
		if e.reg.subscribed(tenantID, t) {
			out = append(out, e.observer)
		}
	}
	return out
}
