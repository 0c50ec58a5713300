package application

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/internal/infrastructure/cache"
	"github.com/oksasatya/school-rbac-api/internal/infrastructure/memory"
	"github.com/oksasatya/school-rbac-api/internal/infrastructure/metrics"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.RoleEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, ev entity.RoleEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Events() []entity.RoleEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entity.RoleEvent{}, p.events...)
}

type fixture struct {
	store  *memory.Store
	mr     *miniredis.Miniredis
	perms  *PermissionService
	roles  *RoleService
	events *recordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	m := metrics.New()

	store := memory.NewStore()
	perms := NewPermissionService(store.RolePermissions(), cache.NewPermissionCache(rdb, 300*time.Second, 200*time.Millisecond), logger, m)
	t.Cleanup(func() { _ = perms.Close() })
	events := &recordingPublisher{}
	roles := NewRoleService(store, store.Schools(), perms, events, logger, m)
	return &fixture{store: store, mr: mr, perms: perms, roles: roles, events: events}
}

// school creates a school with the given config and stores perms per role.
func (f *fixture) school(t *testing.T, rc entity.RoleConfig, perms map[entity.Role][]entity.Permission) string {
	t.Helper()
	ctx := context.Background()
	s := &entity.School{Name: "Test School", RoleConfig: rc}
	require.NoError(t, f.store.Schools().Create(ctx, s))
	for role, p := range perms {
		require.NoError(t, f.store.RolePermissions().Upsert(ctx, s.ID, role, p))
	}
	return s.ID
}

func (f *fixture) stored(t *testing.T, schoolID string, role entity.Role) []entity.Permission {
	t.Helper()
	p, ok := f.store.RolePermissions().Peek(schoolID, role)
	require.True(t, ok, "no record for %s", role)
	return p
}
