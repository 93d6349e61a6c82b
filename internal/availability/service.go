package availability

import (
	"context"
	"time"

	"github.com/agendaplus/practice-backend/internal/resource"
	"github.com/agendaplus/practice-backend/internal/schedule"
	"github.com/agendaplus/practice-backend/internal/tenant"
)

type CreateRequest struct {
	ResourceID  string
	Recurrence  schedule.Recurrence
	Weekday     *time.Weekday
	Date        *time.Time
	StartMinute int
	EndMinute   int
}

type Service interface {
	Create(ctx context.Context, tc tenant.Context, req CreateRequest) (*Window, error)
	ListForResource(ctx context.Context, tc tenant.Context, resourceID string) ([]*Window, error)
	Delete(ctx context.Context, tc tenant.Context, id string) error

	// WindowsForResource returns the detector-shaped windows for slot checks.
	WindowsForResource(ctx context.Context, tc tenant.Context, resourceID string) ([]schedule.Window, error)
}

type service struct {
	repo       Repository
	resService resource.Service
}

func NewService(repo Repository, resService resource.Service) Service {
	return &service{repo: repo, resService: resService}
}

func (s *service) Create(ctx context.Context, tc tenant.Context, req CreateRequest) (*Window, error) {
	if req.StartMinute < 0 || req.EndMinute > 24*60 || req.StartMinute >= req.EndMinute {
		return nil, ErrInvalidMinutes
	}
	switch req.Recurrence {
	case schedule.RecurrenceWeekly:
		if req.Weekday == nil {
			return nil, ErrWeekdayRequired
		}
	case schedule.RecurrenceOneOff:
		if req.Date == nil {
			return nil, ErrDateRequired
		}
	default:
		return nil, ErrInvalidRecurrence
	}

	// Resource lookup doubles as the tenant ownership check.
	if _, err := s.resService.GetByID(ctx, tc, req.ResourceID); err != nil {
		return nil, err
	}

	w := &Window{
		TenantID:    tc.TenantID,
		ResourceID:  req.ResourceID,
		Recurrence:  req.Recurrence,
		Weekday:     req.Weekday,
		Date:        req.Date,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *service) ListForResource(ctx context.Context, tc tenant.Context, resourceID string) ([]*Window, error) {
	if _, err := s.resService.GetByID(ctx, tc, resourceID); err != nil {
		return nil, err
	}
	return s.repo.ListForResource(ctx, tc.TenantID, resourceID)
}

func (s *service) Delete(ctx context.Context, tc tenant.Context, id string) error {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := tc.Owns(w.TenantID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *service) WindowsForResource(ctx context.Context, tc tenant.Context, resourceID string) ([]schedule.Window, error) {
	windows, err := s.repo.ListForResource(ctx, tc.TenantID, resourceID)
	if err != nil {
		return nil, err
	}
	out := make([]schedule.Window, len(windows))
	for i, w := range windows {
		out[i] = w.AsSchedule()
	}
	return out, nil
}
