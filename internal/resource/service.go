package resource

import (
	"context"
	"strings"

	"github.com/agendaplus/practice-backend/internal/tenant"
)

type CreateRequest struct {
	Name string
	Kind Kind
}

type UpdateRequest struct {
	Name *string
}

type Service interface {
	Create(ctx context.Context, tc tenant.Context, req CreateRequest) (*Resource, error)
	GetByID(ctx context.Context, tc tenant.Context, id string) (*Resource, error)
	List(ctx context.Context, tc tenant.Context, f Filter) ([]*Resource, int, error)
	Update(ctx context.Context, tc tenant.Context, id string, req UpdateRequest) (*Resource, error)

	// Deactivate stops new bookings; existing appointments are untouched.
	Deactivate(ctx context.Context, tc tenant.Context, id string) (*Resource, error)
	Activate(ctx context.Context, tc tenant.Context, id string) (*Resource, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, tc tenant.Context, req CreateRequest) (*Resource, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrEmptyName
	}
	if !ValidKind(req.Kind) {
		return nil, ErrInvalidKind
	}

	res := &Resource{
		TenantID: tc.TenantID,
		Name:     req.Name,
		Kind:     req.Kind,
		Active:   true,
	}
	if err := s.repo.Create(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *service) GetByID(ctx context.Context, tc tenant.Context, id string) (*Resource, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := tc.Owns(res.TenantID); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *service) List(ctx context.Context, tc tenant.Context, f Filter) ([]*Resource, int, error) {
	f.TenantID = tc.TenantID
	return s.repo.List(ctx, f)
}

func (s *service) Update(ctx context.Context, tc tenant.Context, id string, req UpdateRequest) (*Resource, error) {
	res, err := s.GetByID(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, ErrEmptyName
		}
		res.Name = *req.Name
	}
	if err := s.repo.Update(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *service) Deactivate(ctx context.Context, tc tenant.Context, id string) (*Resource, error) {
	return s.setActive(ctx, tc, id, false)
}

func (s *service) Activate(ctx context.Context, tc tenant.Context, id string) (*Resource, error) {
	return s.setActive(ctx, tc, id, true)
}

func (s *service) setActive(ctx context.Context, tc tenant.Context, id string, active bool) (*Resource, error) {
	res, err := s.GetByID(ctx, tc, id)
	if err != nil {
		return nil, err
	}
	res.Active = active
	if err := s.repo.Update(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}
