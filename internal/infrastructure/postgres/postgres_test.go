package postgres

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/internal/domain/repository"
)

// newTestPool connects to TEST_POSTGRES_URL and applies the migrations inside a throwaway schema.
func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	schema := "test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	admin, err := NewPool(ctx, PoolConfig{DSN: dsn, AppName: "school-rbac-tests"})
	require.NoError(t, err)
	_, err = admin.Exec(ctx, "CREATE SCHEMA "+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
		admin.Close()
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	files, err := filepath.Glob(filepath.Join("..", "..", "..", "db", "migrations", "*.up.sql"))
	require.NoError(t, err)
	sort.Strings(files)
	for _, f := range files {
		b, err := os.ReadFile(f)
		require.NoError(t, err)
		_, err = pool.Exec(ctx, string(b))
		require.NoError(t, err, f)
	}
	return pool
}

func createSchool(t *testing.T, pool *pgxpool.Pool, rc entity.RoleConfig) *entity.School {
	t.Helper()
	s := &entity.School{Name: "Springfield Elementary", RoleConfig: rc}
	require.NoError(t, NewSchoolRepository(pool).Create(context.Background(), s))
	return s
}

func TestRolePermissionRepositoryUpsertAndFind(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	repo := NewRolePermissionRepository(pool)
	school := createSchool(t, pool, entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleTeacher}})

	rec, rc, err := repo.FindWithRoleConfig(ctx, school.ID, entity.RoleTeacher)
	require.NoError(t, err)
	assert.Nil(t, rec)
	assert.Equal(t, []entity.Role{entity.RoleTeacher}, rc.EnabledRoles)

	require.NoError(t, repo.Upsert(ctx, school.ID, entity.RoleTeacher, []entity.Permission{entity.PermViewExams, entity.PermEnterMarks}))
	require.NoError(t, repo.Upsert(ctx, school.ID, entity.RoleTeacher, []entity.Permission{entity.PermViewExams}))

	rec, _, err = repo.FindWithRoleConfig(ctx, school.ID, entity.RoleTeacher)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []entity.Permission{entity.PermViewExams}, rec.Permissions, "upsert replaces")

	require.NoError(t, repo.Upsert(ctx, school.ID, entity.RoleTeacher, nil))
	rec, _, err = repo.FindWithRoleConfig(ctx, school.ID, entity.RoleTeacher)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Empty(t, rec.Permissions)

	_, _, err = repo.FindWithRoleConfig(ctx, uuid.NewString(), entity.RoleTeacher)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSchoolRepositoryRoleConfigRoundTrip(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	repo := NewSchoolRepository(pool)
	school := createSchool(t, pool, entity.RoleConfig{})

	got, err := repo.GetByID(ctx, school.ID)
	require.NoError(t, err)
	assert.Empty(t, got.RoleConfig.EnabledRoles)
	assert.NotNil(t, got.RoleConfig.CustomRoles)

	rc := entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleAdmin}, CustomRoles: []entity.Role{"Librarian"}}
	require.NoError(t, repo.UpdateRoleConfig(ctx, school.ID, rc))
	got, err = repo.GetByID(ctx, school.ID)
	require.NoError(t, err)
	assert.Equal(t, rc, got.RoleConfig)

	err = repo.UpdateRoleConfig(ctx, school.ID, entity.RoleConfig{CustomRoles: []entity.Role{entity.RoleAdmin}})
	assert.ErrorIs(t, err, entity.ErrInvalidRoleConfig)

	_, err = repo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestTransactorRollsBackAndDropsHooks(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	schools := NewSchoolRepository(pool)
	school := createSchool(t, pool, entity.RoleConfig{})
	tx := NewTransactor(pool)

	hookRan := false
	err := tx.WithinTx(ctx, func(ctx context.Context) error {
		_, err := schools.GetByIDForUpdate(ctx, school.ID)
		require.NoError(t, err)
		require.NoError(t, schools.UpdateRoleConfig(ctx, school.ID, entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleAdmin}}))
		repository.AfterCommit(ctx, func(context.Context) { hookRan = true })
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)
	assert.False(t, hookRan)

	got, err := schools.GetByID(ctx, school.ID)
	require.NoError(t, err)
	assert.Empty(t, got.RoleConfig.EnabledRoles)

	err = tx.WithinTx(ctx, func(ctx context.Context) error {
		repository.AfterCommit(ctx, func(context.Context) { hookRan = true })
		return schools.UpdateRoleConfig(ctx, school.ID, entity.RoleConfig{EnabledRoles: []entity.Role{entity.RoleAdmin}})
	})
	require.NoError(t, err)
	assert.True(t, hookRan)
}

func TestConcurrentRoleConfigWritesSerialize(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	schools := NewSchoolRepository(pool)
	school := createSchool(t, pool, entity.RoleConfig{})
	tx := NewTransactor(pool)

	addCustom := func(role entity.Role, locked chan<- struct{}, hold time.Duration) error {
		return tx.WithinTx(ctx, func(ctx context.Context) error {
			s, err := schools.GetByIDForUpdate(ctx, school.ID)
			if locked != nil {
				close(locked)
			}
			if err != nil {
				return err
			}
			time.Sleep(hold)
			return schools.UpdateRoleConfig(ctx, school.ID, s.RoleConfig.WithCustomRole(role))
		})
	}

	locked := make(chan struct{})
	errs := make(chan error, 2)
	go func() { errs <- addCustom("Librarian", locked, 200*time.Millisecond) }()
	<-locked
	go func() { errs <- addCustom("Nurse", nil, 0) }()
	require.NoError(t, <-errs)
	require.NoError(t, <-errs)

	got, err := schools.GetByID(ctx, school.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []entity.Role{"Librarian", "Nurse"}, got.RoleConfig.CustomRoles, "no lost update")
}

func TestStaffRepositoryFind(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	school := createSchool(t, pool, entity.RoleConfig{})

	u := &entity.User{Email: "ada@example.com", Password: "x", Name: "Ada"}
	require.NoError(t, NewUserRepository(pool).Create(ctx, u))

	staff := NewStaffRepository(pool)
	require.NoError(t, staff.Create(ctx, &entity.Staff{UserID: u.ID, SchoolID: school.ID, Role: entity.RoleTeacher}))

	got, err := staff.FindByUserAndSchool(ctx, u.ID, school.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.RoleTeacher, got.Role)
	assert.Equal(t, entity.StaffActive, got.Status)

	_, err = staff.FindByUserAndSchool(ctx, u.ID, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// ids that are not uuids match nothing
	_, err = staff.FindByUserAndSchool(ctx, "admin-1", school.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = NewSchoolRepository(pool).GetByID(ctx, "school-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, _, err = NewRolePermissionRepository(pool).FindWithRoleConfig(ctx, "school-1", entity.RoleAdmin)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAuditRepositorySaveIsIdempotent(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()
	repo := NewAuditRepository(pool)
	ev := entity.RoleEvent{
		ID:          uuid.NewString(),
		Type:        entity.RoleEventCustomCreated,
		SchoolID:    uuid.NewString(),
		Role:        "Librarian",
		Permissions: []entity.Permission{entity.PermViewStudents},
		OccurredAt:  time.Now().UTC(),
	}
	require.NoError(t, repo.Save(ctx, ev))
	require.NoError(t, repo.Save(ctx, ev))

	var n int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM role_audit_logs WHERE id = $1", ev.ID).Scan(&n))
	assert.Equal(t, 1, n)
}
