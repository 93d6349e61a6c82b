package plugin

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agendaplus/practice-backend/internal/tenant"
)

// Catalog maps plugin IDs to the in-process implementations that may be
// bound by registrations. Discovery of third-party plugin code is an
// external concern; the core only binds what it was handed at wiring time.
type Catalog map[string]any

type RegisterRequest struct {
	PluginID   string
	Capability Capability
	Events     []EventType
	Priority   int
}

type Service interface {
	Register(ctx context.Context, tc tenant.Context, req RegisterRequest) (*Registration, error)
	Unregister(ctx context.Context, tc tenant.Context, registrationID string) error
	List(ctx context.Context, tc tenant.Context) ([]Registration, error)

	// Restore replays persisted registrations into the runtime registry.
	// Rows referencing plugins missing from the catalog are skipped with a
	// warning so one removed plugin cannot block boot.
	Restore(ctx context.Context) error
}

type service struct {
	registry *Registry
	repo     Repository
	catalog  Catalog
	log      zerolog.Logger
}

func NewService(registry *Registry, repo Repository, catalog Catalog, log zerolog.Logger) Service {
	return &service{
		registry: registry,
		repo:     repo,
		catalog:  catalog,
		log:      log.With().Str("component", "plugin_service").Logger(),
	}
}

func (s *service) bind(reg Registration) (string, error) {
	impl, ok := s.catalog[reg.PluginID]
	if !ok {
		return "", ErrUnknownPlugin
	}
	switch reg.Capability {
	case CapabilityGuard:
		g, ok := impl.(Guard)
		if !ok {
			return "", ErrBadCapability
		}
		return s.registry.RegisterGuard(reg, g)
	case CapabilityObserver:
		o, ok := impl.(Observer)
		if !ok {
			return "", ErrBadCapability
		}
		return s.registry.RegisterObserver(reg, o)
	default:
		return "", ErrBadCapability
	}
}

func (s *service) Register(ctx context.Context, tc tenant.Context, req RegisterRequest) (*Registration, error) {
	reg := Registration{
		PluginID:   req.PluginID,
		TenantID:   tc.TenantID,
		Capability: req.Capability,
		Events:     req.Events,
		Priority:   req.Priority,
	}

	id, err := s.bind(reg)
	if err != nil {
		return nil, err
	}
	reg.ID = id

	if err := s.repo.Create(ctx, &reg); err != nil {
		// Keep runtime and storage consistent.
		_ = s.registry.Unregister(id)
		return nil, err
	}
	return &reg, nil
}

func (s *service) Unregister(ctx context.Context, tc tenant.Context, registrationID string) error {
	owned := false
	for _, reg := range s.registry.Registrations(tc.TenantID) {
		if reg.ID == registrationID && reg.TenantID == tc.TenantID {
			owned = true
			break
		}
	}
	if !owned {
		// Either unknown or scoped to another tenant; both look the same to
		// the caller so registration IDs cannot be probed across tenants.
		return ErrNotRegistered
	}

	if err := s.repo.Delete(ctx, registrationID); err != nil {
		return err
	}
	return s.registry.Unregister(registrationID)
}

func (s *service) List(ctx context.Context, tc tenant.Context) ([]Registration, error) {
	return s.registry.Registrations(tc.TenantID), nil
}

func (s *service) Restore(ctx context.Context) error {
	regs, err := s.repo.ListAll(ctx)
	if err != nil {
		return err
	}
	for _, reg := range regs {
		if _, err := s.bind(reg); err != nil {
			s.log.Warn().Str("registration", reg.ID).Str("plugin", reg.PluginID).
				Err(err).Msg("skipping persisted registration")
		}
	}
	return nil
}
