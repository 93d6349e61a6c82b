package resource

import (
	"net/http"
	"time"

	"github.com/agendaplus/practice-backend/internal/pkg/apperror"
)

var (
	ErrNotFound    = apperror.New(http.StatusNotFound, "resource not found")
	ErrEmptyName   = apperror.New(http.StatusBadRequest, "name cannot be empty")
	ErrInvalidKind = apperror.New(http.StatusBadRequest, "invalid resource kind")
)

type Kind string

const (
	KindProfessional Kind = "professional"
	KindRoom         Kind = "room"
	KindEquipment    Kind = "equipment"
)

func ValidKind(k Kind) bool {
	switch k {
	case KindProfessional, KindRoom, KindEquipment:
		return true
	}
	return false
}

// Resource is a bookable entity. Deactivated resources reject new bookings
// but keep their appointment history, so they are never deleted.
type Resource struct {
	ID        string
	TenantID  string
	Name      string
	Kind      Kind
	Active    bool
	CreatedAt time.Time
}

// Filter defines parameters for listing resources within a tenant.
type Filter struct {
	TenantID string
	Kind     string
	Active   *bool
	Page     int
	PageSize int
}
