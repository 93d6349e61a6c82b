package resource

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agendaplus/practice-backend/internal/tenant"
)

type memRepo struct {
	rows map[string]*Resource
}

func newMemRepo() *memRepo {
	return &memRepo{rows: make(map[string]*Resource)}
}

func (r *memRepo) Create(ctx context.Context, res *Resource) error {
	res.ID = uuid.NewString()
	cp := *res
	r.rows[res.ID] = &cp
	return nil
}

func (r *memRepo) GetByID(ctx context.Context, id string) (*Resource, error) {
	row, ok := r.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (r *memRepo) List(ctx context.Context, f Filter) ([]*Resource, int, error) {
	var out []*Resource
	for _, row := range r.rows {
		if row.TenantID != f.TenantID {
			continue
		}
		cp := *row
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (r *memRepo) Update(ctx context.Context, res *Resource) error {
	row, ok := r.rows[res.ID]
	if !ok || row.TenantID != res.TenantID {
		return ErrNotFound
	}
	cp := *res
	r.rows[res.ID] = &cp
	return nil
}

var tc = tenant.Context{TenantID: "t1", ActorID: "u1", Role: tenant.RoleAdmin}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, tc, CreateRequest{Name: "  ", Kind: KindRoom})
	assert.ErrorIs(t, err, ErrEmptyName)

	_, err = svc.Create(ctx, tc, CreateRequest{Name: "Laser", Kind: "spaceship"})
	assert.ErrorIs(t, err, ErrInvalidKind)

	res, err := svc.Create(ctx, tc, CreateRequest{Name: "Room A", Kind: KindRoom})
	require.NoError(t, err)
	assert.True(t, res.Active, "new resources start active")
	assert.Equal(t, "t1", res.TenantID)
}

func TestGetByIDEnforcesTenant(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	res, err := svc.Create(ctx, tc, CreateRequest{Name: "Dr. Okafor", Kind: KindProfessional})
	require.NoError(t, err)

	intruder := tenant.Context{TenantID: "t2", ActorID: "u9", Role: tenant.RoleAdmin}
	_, err = svc.GetByID(ctx, intruder, res.ID)
	assert.ErrorIs(t, err, tenant.ErrIsolationViolation)
}

func TestDeactivateAndActivate(t *testing.T) {
	svc := NewService(newMemRepo())
	ctx := context.Background()

	res, err := svc.Create(ctx, tc, CreateRequest{Name: "Ultrasound", Kind: KindEquipment})
	require.NoError(t, err)

	res, err = svc.Deactivate(ctx, tc, res.ID)
	require.NoError(t, err)
	assert.False(t, res.Active)

	res, err = svc.Activate(ctx, tc, res.ID)
	require.NoError(t, err)
	assert.True(t, res.Active)
}
