// Package memory holds in-process repository implementations used by tests and local tooling.
// A single Store backs every repository so transactions can snapshot and restore all of it.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/internal/domain/repository"
)

type rpKey struct {
	schoolID string
	role     entity.Role
}

type state struct {
	schools     map[string]entity.School
	staff       map[string]entity.Staff // key: userID/schoolID
	users       map[string]entity.User  // key: email
	permissions map[rpKey]entity.RolePermission
	audit       map[string]entity.RoleEvent
}

func (s state) clone() state {
	out := state{
		schools:     make(map[string]entity.School, len(s.schools)),
		staff:       make(map[string]entity.Staff, len(s.staff)),
		users:       make(map[string]entity.User, len(s.users)),
		permissions: make(map[rpKey]entity.RolePermission, len(s.permissions)),
		audit:       make(map[string]entity.RoleEvent, len(s.audit)),
	}
	for k, v := range s.schools {
		v.RoleConfig = copyConfig(v.RoleConfig)
		out.schools[k] = v
	}
	for k, v := range s.staff {
		out.staff[k] = v
	}
	for k, v := range s.users {
		out.users[k] = v
	}
	for k, v := range s.permissions {
		v.Permissions = append([]entity.Permission{}, v.Permissions...)
		out.permissions[k] = v
	}
	for k, v := range s.audit {
		out.audit[k] = v
	}
	return out
}

// Store is a process-local database. The zero value is not usable; call NewStore.
type Store struct {
	mu sync.RWMutex
	st state

	// txMu serializes transactions, standing in for row locks.
	txMu sync.Mutex

	// FailNext makes the next repository call return this error. Tests use it to simulate store outages.
	failMu   sync.Mutex
	failNext error
}

func NewStore() *Store {
	return &Store{st: state{
		schools:     map[string]entity.School{},
		staff:       map[string]entity.Staff{},
		users:       map[string]entity.User{},
		permissions: map[rpKey]entity.RolePermission{},
		audit:       map[string]entity.RoleEvent{},
	}}
}

// FailNext arranges for the next repository call to fail with err.
func (s *Store) FailNext(err error) {
	s.failMu.Lock()
	s.failNext = err
	s.failMu.Unlock()
}

func (s *Store) takeFailure() error {
	s.failMu.Lock()
	defer s.failMu.Unlock()
	err := s.failNext
	s.failNext = nil
	return err
}

type txKey struct{}

// WithinTx serializes fn against other transactions and restores the previous state when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(bool); ok {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	txCtx, hooks := repository.WithTxHooks(context.WithValue(ctx, txKey{}, true))
	if err := fn(txCtx); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	hooks.Run(ctx)
	return nil
}

// Schools returns the school repository view of the store.
func (s *Store) Schools() *SchoolRepository { return &SchoolRepository{s} }

func (s *Store) Staff() *StaffRepository { return &StaffRepository{s} }

func (s *Store) Users() *UserRepository { return &UserRepository{s} }

func (s *Store) RolePermissions() *RolePermissionRepository { return &RolePermissionRepository{s} }

func (s *Store) Audit() *AuditRepository { return &AuditRepository{s} }

// AuditEvents returns stored role events ordered by occurrence.
func (s *Store) AuditEvents() []entity.RoleEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entity.RoleEvent, 0, len(s.st.audit))
	for _, ev := range s.st.audit {
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out
}

type SchoolRepository struct{ s *Store }

func (r *SchoolRepository) Create(_ context.Context, sc *entity.School) error {
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if err := sc.RoleConfig.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if sc.ID == "" {
		sc.ID = uuid.NewString()
	}
	sc.RoleConfig = copyConfig(sc.RoleConfig)
	sc.CreatedAt, sc.UpdatedAt = now, now
	r.s.mu.Lock()
	r.s.st.schools[sc.ID] = *sc
	r.s.mu.Unlock()
	return nil
}

func (r *SchoolRepository) GetByID(_ context.Context, id string) (*entity.School, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sc, ok := r.s.st.schools[id]
	if !ok {
		return nil, fmt.Errorf("school %s: %w", id, repository.ErrNotFound)
	}
	sc.RoleConfig = copyConfig(sc.RoleConfig)
	return &sc, nil
}

// GetByIDForUpdate needs no lock of its own: transactions are already serialized.
func (r *SchoolRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.School, error) {
	return r.GetByID(ctx, id)
}

func (r *SchoolRepository) UpdateRoleConfig(_ context.Context, id string, rc entity.RoleConfig) error {
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if err := rc.Validate(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	sc, ok := r.s.st.schools[id]
	if !ok {
		return fmt.Errorf("school %s: %w", id, repository.ErrNotFound)
	}
	sc.RoleConfig = copyConfig(rc)
	sc.UpdatedAt = time.Now().UTC()
	r.s.st.schools[id] = sc
	return nil
}

type StaffRepository struct{ s *Store }

func (r *StaffRepository) Create(_ context.Context, st *entity.Staff) error {
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if st.ID == "" {
		st.ID = uuid.NewString()
	}
	if st.Status == "" {
		st.Status = entity.StaffActive
	}
	now := time.Now().UTC()
	st.CreatedAt, st.UpdatedAt = now, now
	r.s.mu.Lock()
	r.s.st.staff[st.UserID+"/"+st.SchoolID] = *st
	r.s.mu.Unlock()
	return nil
}

func (r *StaffRepository) FindByUserAndSchool(_ context.Context, userID, schoolID string) (*entity.Staff, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	st, ok := r.s.st.staff[userID+"/"+schoolID]
	if !ok {
		return nil, fmt.Errorf("staff %s/%s: %w", schoolID, userID, repository.ErrNotFound)
	}
	return &st, nil
}

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	r.s.mu.Lock()
	r.s.st.users[u.Email] = *u
	r.s.mu.Unlock()
	return nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.st.users[email]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", email, repository.ErrNotFound)
	}
	return &u, nil
}

type RolePermissionRepository struct{ s *Store }

func (r *RolePermissionRepository) Upsert(_ context.Context, schoolID string, role entity.Role, perms []entity.Permission) error {
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	now := time.Now().UTC()
	k := rpKey{schoolID, role}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rec, ok := r.s.st.permissions[k]
	if !ok {
		rec = entity.RolePermission{ID: uuid.NewString(), SchoolID: schoolID, Role: role, CreatedAt: now}
	}
	rec.Permissions = entity.NormalizePermissions(perms)
	rec.UpdatedAt = now
	r.s.st.permissions[k] = rec
	return nil
}

func (r *RolePermissionRepository) FindWithRoleConfig(_ context.Context, schoolID string, role entity.Role) (*entity.RolePermission, entity.RoleConfig, error) {
	if err := r.s.takeFailure(); err != nil {
		return nil, entity.RoleConfig{}, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	sc, ok := r.s.st.schools[schoolID]
	if !ok {
		return nil, entity.RoleConfig{}, fmt.Errorf("school %s: %w", schoolID, repository.ErrNotFound)
	}
	rc := copyConfig(sc.RoleConfig)
	rec, ok := r.s.st.permissions[rpKey{schoolID, role}]
	if !ok {
		return nil, rc, nil
	}
	rec.Permissions = append([]entity.Permission{}, rec.Permissions...)
	return &rec, rc, nil
}

// Peek returns the stored set of (schoolID, role) without going through the failure hook.
func (r *RolePermissionRepository) Peek(schoolID string, role entity.Role) ([]entity.Permission, bool) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.st.permissions[rpKey{schoolID, role}]
	if !ok {
		return nil, false
	}
	return append([]entity.Permission{}, rec.Permissions...), true
}

type AuditRepository struct{ s *Store }

func (r *AuditRepository) Save(_ context.Context, ev entity.RoleEvent) error {
	if err := r.s.takeFailure(); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.st.audit[ev.ID]; !ok {
		r.s.st.audit[ev.ID] = ev
	}
	return nil
}

func copyConfig(rc entity.RoleConfig) entity.RoleConfig {
	return entity.RoleConfig{
		EnabledRoles: append([]entity.Role{}, rc.EnabledRoles...),
		CustomRoles:  append([]entity.Role{}, rc.CustomRoles...),
	}
}

var (
	_ repository.Transactor               = (*Store)(nil)
	_ repository.SchoolRepository         = (*SchoolRepository)(nil)
	_ repository.StaffRepository          = (*StaffRepository)(nil)
	_ repository.UserRepository           = (*UserRepository)(nil)
	_ repository.RolePermissionRepository = (*RolePermissionRepository)(nil)
	_ repository.AuditRepository          = (*AuditRepository)(nil)
)
