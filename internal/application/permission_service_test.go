package application

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/internal/domain/repository"
	"github.com/oksasatya/school-rbac-api/internal/infrastructure/cache"
)

// pausedRead holds the first FindWithRoleConfig after it has read the store,
// until release is closed.
type pausedRead struct {
	repository.RolePermissionRepository
	once    atomic.Bool
	read    chan struct{}
	release chan struct{}
}

func (p *pausedRead) FindWithRoleConfig(ctx context.Context, schoolID string, role entity.Role) (*entity.RolePermission, entity.RoleConfig, error) {
	rec, rc, err := p.RolePermissionRepository.FindWithRoleConfig(ctx, schoolID, role)
	if p.once.CompareAndSwap(false, true) {
		close(p.read)
		<-p.release
	}
	return rec, rc, err
}

func TestGetPermissionsFailsClosedWithoutRecord(t *testing.T) {
	f := newFixture(t)
	schoolID := f.school(t, entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleTeacher}}, nil)

	perms, err := f.perms.GetPermissions(context.Background(), schoolID, entity.RoleTeacher)
	require.NoError(t, err)
	assert.Empty(t, perms)
	assert.False(t, f.mr.Exists(cache.Key(schoolID, entity.RoleTeacher)), "empty fallback is not cached")

	perms, err = f.perms.GetPermissions(context.Background(), "no-such-school", entity.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, perms)
}

func TestGetPermissionsIgnoresRecordOfDisabledRole(t *testing.T) {
	f := newFixture(t)
	schoolID := f.school(t,
		entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleAdmin}},
		map[entity.Role][]entity.Permission{entity.RoleTeacher: {entity.PermMarkAttendance}},
	)

	ok, err := f.perms.HasPermission(context.Background(), schoolID, entity.RoleTeacher, entity.PermMarkAttendance)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetPermissionsPopulatesCache(t *testing.T) {
	f := newFixture(t)
	schoolID := f.school(t,
		entity.RoleConfig{CustomRoles: []entity.Role{"Coach"}},
		map[entity.Role][]entity.Permission{"Coach": {entity.PermViewStudents}},
	)
	ctx := context.Background()

	perms, err := f.perms.GetPermissions(ctx, schoolID, "Coach")
	require.NoError(t, err)
	assert.Equal(t, []entity.Permission{entity.PermViewStudents}, perms)

	raw, err := f.mr.Get(cache.Key(schoolID, "Coach"))
	require.NoError(t, err)
	assert.JSONEq(t, `["view_students"]`, raw)

	// served from cache while the store is down
	f.store.FailNext(assert.AnError)
	again, err := f.perms.GetPermissions(ctx, schoolID, "Coach")
	require.NoError(t, err)
	assert.Equal(t, perms, again)
}

func TestGetPermissionsReturnsStoreErrors(t *testing.T) {
	f := newFixture(t)
	schoolID := f.school(t, entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleAdmin}}, nil)
	f.store.FailNext(assert.AnError)

	_, err := f.perms.GetPermissions(context.Background(), schoolID, entity.RoleAdmin)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestUpdatePermissionsIsVisibleImmediately(t *testing.T) {
	f := newFixture(t)
	schoolID := f.school(t,
		entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleTeacher}},
		map[entity.Role][]entity.Permission{entity.RoleTeacher: {entity.PermViewExams}},
	)
	ctx := context.Background()

	_, err := f.perms.GetPermissions(ctx, schoolID, entity.RoleTeacher)
	require.NoError(t, err)
	require.True(t, f.mr.Exists(cache.Key(schoolID, entity.RoleTeacher)))

	want := []entity.Permission{entity.PermEnterMarks, entity.PermViewReports}
	require.NoError(t, f.perms.UpdatePermissions(ctx, schoolID, entity.RoleTeacher, want))
	assert.False(t, f.mr.Exists(cache.Key(schoolID, entity.RoleTeacher)))

	got, err := f.perms.GetPermissions(ctx, schoolID, entity.RoleTeacher)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, got)

	// idempotent
	require.NoError(t, f.perms.UpdatePermissions(ctx, schoolID, entity.RoleTeacher, want))
	got, err = f.perms.GetPermissions(ctx, schoolID, entity.RoleTeacher)
	require.NoError(t, err)
	assert.ElementsMatch(t, want, got)
}

func TestUpdatePermissionsInsideTxInvalidatesAfterCommit(t *testing.T) {
	f := newFixture(t)
	schoolID := f.school(t,
		entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleTeacher}},
		map[entity.Role][]entity.Permission{entity.RoleTeacher: {entity.PermViewExams}},
	)
	ctx := context.Background()
	_, err := f.perms.GetPermissions(ctx, schoolID, entity.RoleTeacher)
	require.NoError(t, err)

	err = f.store.WithinTx(ctx, func(ctx context.Context) error {
		require.NoError(t, f.perms.UpdatePermissions(ctx, schoolID, entity.RoleTeacher, nil))
		assert.True(t, f.mr.Exists(cache.Key(schoolID, entity.RoleTeacher)), "still cached before commit")
		return nil
	})
	require.NoError(t, err)
	assert.False(t, f.mr.Exists(cache.Key(schoolID, entity.RoleTeacher)))
}

func TestCacheOutageFallsBackToStore(t *testing.T) {
	f := newFixture(t)
	schoolID := f.school(t,
		entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleStudent}},
		map[entity.Role][]entity.Permission{entity.RoleStudent: {entity.PermViewFees}},
	)
	f.mr.Close()
	ctx := context.Background()

	ok, err := f.perms.HasPermission(ctx, schoolID, entity.RoleStudent, entity.PermViewFees)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.perms.UpdatePermissions(ctx, schoolID, entity.RoleStudent, nil))
	assert.Empty(t, f.stored(t, schoolID, entity.RoleStudent))
	f.perms.InvalidateSchoolCache(ctx, schoolID)
}

func TestInvalidateSchoolCacheIsScoped(t *testing.T) {
	f := newFixture(t)
	rc := entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleAdmin, entity.RoleTeacher}}
	perms := map[entity.Role][]entity.Permission{
		entity.RoleAdmin:   entity.AllPermissions(),
		entity.RoleTeacher: {entity.PermViewExams},
	}
	s1 := f.school(t, rc, perms)
	s2 := f.school(t, rc, perms)
	ctx := context.Background()
	for _, s := range []string{s1, s2} {
		for _, r := range rc.EnabledRoles {
			_, err := f.perms.GetPermissions(ctx, s, r)
			require.NoError(t, err)
		}
	}

	f.perms.InvalidateSchoolCache(ctx, s1)
	assert.False(t, f.mr.Exists(cache.Key(s1, entity.RoleAdmin)))
	assert.False(t, f.mr.Exists(cache.Key(s1, entity.RoleTeacher)))
	assert.True(t, f.mr.Exists(cache.Key(s2, entity.RoleAdmin)))
	assert.True(t, f.mr.Exists(cache.Key(s2, entity.RoleTeacher)))
}

func TestConcurrentUpdatesLeaveOneWinnerAndNoStaleCache(t *testing.T) {
	f := newFixture(t)
	schoolID := f.school(t, entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleTeacher}}, nil)
	ctx := context.Background()
	p1 := []entity.Permission{entity.PermViewExams}
	p2 := []entity.Permission{entity.PermEnterMarks, entity.PermViewReports}

	var wg sync.WaitGroup
	for _, p := range [][]entity.Permission{p1, p2} {
		wg.Add(1)
		go func(p []entity.Permission) {
			defer wg.Done()
			assert.NoError(t, f.perms.UpdatePermissions(ctx, schoolID, entity.RoleTeacher, p))
		}(p)
	}
	wg.Wait()

	assert.False(t, f.mr.Exists(cache.Key(schoolID, entity.RoleTeacher)))
	got := f.stored(t, schoolID, entity.RoleTeacher)
	if len(got) == 1 {
		assert.Equal(t, entity.NormalizePermissions(p1), got)
	} else {
		assert.Equal(t, entity.NormalizePermissions(p2), got)
	}
}

func TestReaderDoesNotRecacheSetReplacedDuringItsLoad(t *testing.T) {
	f := newFixture(t)
	schoolID := f.school(t,
		entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleTeacher}},
		map[entity.Role][]entity.Permission{entity.RoleTeacher: {entity.PermMarkAttendance}},
	)
	ctx := context.Background()
	paused := &pausedRead{
		RolePermissionRepository: f.store.RolePermissions(),
		read:                     make(chan struct{}),
		release:                  make(chan struct{}),
	}
	f.perms.Repo = paused

	done := make(chan []entity.Permission)
	go func() {
		perms, err := f.perms.GetPermissions(ctx, schoolID, entity.RoleTeacher)
		assert.NoError(t, err)
		done <- perms
	}()

	<-paused.read
	require.NoError(t, f.perms.UpdatePermissions(ctx, schoolID, entity.RoleTeacher, nil))
	close(paused.release)
	assert.Equal(t, []entity.Permission{entity.PermMarkAttendance}, <-done, "the reader saw the old set")

	assert.False(t, f.mr.Exists(cache.Key(schoolID, entity.RoleTeacher)), "old set must not be cached")
	perms, err := f.perms.GetPermissions(ctx, schoolID, entity.RoleTeacher)
	require.NoError(t, err)
	assert.Empty(t, perms)
	assert.True(t, f.mr.Exists(cache.Key(schoolID, entity.RoleTeacher)), "fresh reads fill again")
}

func TestSchoolInvalidationDiscardsInFlightFill(t *testing.T) {
	f := newFixture(t)
	schoolID := f.school(t,
		entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleAdmin}},
		map[entity.Role][]entity.Permission{entity.RoleAdmin: {entity.PermManageRoles}},
	)
	ctx := context.Background()
	paused := &pausedRead{
		RolePermissionRepository: f.store.RolePermissions(),
		read:                     make(chan struct{}),
		release:                  make(chan struct{}),
	}
	f.perms.Repo = paused

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := f.perms.GetPermissions(ctx, schoolID, entity.RoleAdmin)
		assert.NoError(t, err)
	}()

	<-paused.read
	f.perms.InvalidateSchoolCache(ctx, schoolID)
	close(paused.release)
	<-done
	assert.False(t, f.mr.Exists(cache.Key(schoolID, entity.RoleAdmin)))
}
