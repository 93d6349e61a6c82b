package tenant

import (
	"net/http"

	"github.com/agendaplus/practice-backend/internal/pkg/apperror"
)

var (
	// ErrIsolationViolation is returned whenever a caller references an
	// entity belonging to another tenant. Fatal to the request, never retried.
	ErrIsolationViolation = apperror.New(http.StatusForbidden, "cross-tenant access denied")

	ErrMissingTenant = apperror.New(http.StatusUnauthorized, "tenant context not established")
)

type Role string

const (
	RoleClient       Role = "client"
	RoleProfessional Role = "professional"
	RoleAdmin        Role = "admin"
)

// Context is the isolation boundary carried by every operation. It is an
// immutable value produced at the authentication boundary; there is no
// ambient or global tenant state.
type Context struct {
	TenantID string
	ActorID  string
	Role     Role
}

// New builds a Context from already-validated claims.
func New(tenantID, actorID string, role Role) (Context, error) {
	if tenantID == "" {
		return Context{}, ErrMissingTenant
	}
	return Context{TenantID: tenantID, ActorID: actorID, Role: role}, nil
}

// CanSchedule reports whether the actor holds the scheduling role.
func (c Context) CanSchedule() bool {
	return c.Role == RoleProfessional || c.Role == RoleAdmin
}

// Owns verifies that the given row-level tenant ID matches the context.
func (c Context) Owns(tenantID string) error {
	if tenantID != c.TenantID {
		return ErrIsolationViolation
	}
	return nil
}
