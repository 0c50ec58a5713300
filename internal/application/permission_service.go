package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	repo "github.com/oksasatya/school-rbac-api/internal/domain/repository"
	"github.com/oksasatya/school-rbac-api/internal/infrastructure/metrics"
	"github.com/oksasatya/school-rbac-api/pkg/helpers"
)

// PermissionCache is the cache in front of the role permission store.
type PermissionCache interface {
	Get(ctx context.Context, schoolID string, role entity.Role) ([]entity.Permission, bool, error)
	Generation(ctx context.Context, schoolID string) (int64, error)
	Fill(ctx context.Context, schoolID string, role entity.Role, perms []entity.Permission, gen int64) (bool, error)
	Delete(ctx context.Context, schoolID string, role entity.Role) error
	DeleteSchool(ctx context.Context, schoolID string) (int64, error)
	Close() error
}

// PermissionService answers "which permissions does this role hold in this school".
// The store is authoritative. Cache failures are logged and never surface to callers.
type PermissionService struct {
	Repo    repo.RolePermissionRepository
	Cache   PermissionCache
	Logger  *logrus.Logger
	Metrics *metrics.Metrics
}

func NewPermissionService(r repo.RolePermissionRepository, cache PermissionCache, logger *logrus.Logger, m *metrics.Metrics) *PermissionService {
	return &PermissionService{Repo: r, Cache: cache, Logger: logger, Metrics: m}
}

// GetPermissions returns the effective permission set of role in schoolID.
// A missing school, a missing record or a role the school has not enabled yields an empty set.
func (s *PermissionService) GetPermissions(ctx context.Context, schoolID string, role entity.Role) ([]entity.Permission, error) {
	perms, ok, err := s.Cache.Get(ctx, schoolID, role)
	switch {
	case err != nil:
		s.Metrics.CacheResult("error")
		s.Metrics.CacheError("get")
		helpers.LogWarn(s.Logger, "permission cache read failed, using store", err, logrus.Fields{"school_id": schoolID, "role": role})
	case ok:
		s.Metrics.CacheResult("hit")
		return perms, nil
	default:
		s.Metrics.CacheResult("miss")
	}

	// Captured before the store read: an invalidation in between makes the fill a no-op.
	gen, genErr := s.Cache.Generation(ctx, schoolID)
	if genErr != nil {
		s.Metrics.CacheError("generation")
	}

	rec, rc, err := s.Repo.FindWithRoleConfig(ctx, schoolID, role)
	if errors.Is(err, repo.ErrNotFound) {
		return []entity.Permission{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load permissions %s/%s: %w", schoolID, role, err)
	}
	if rec == nil || !rc.HasRole(role) {
		return []entity.Permission{}, nil
	}

	if genErr != nil {
		return rec.Permissions, nil
	}
	if _, err := s.Cache.Fill(ctx, schoolID, role, rec.Permissions, gen); err != nil {
		s.Metrics.CacheError("set")
		helpers.LogWarn(s.Logger, "permission cache write failed", err, logrus.Fields{"school_id": schoolID, "role": role})
	}
	return rec.Permissions, nil
}

func (s *PermissionService) HasPermission(ctx context.Context, schoolID string, role entity.Role, perm entity.Permission) (bool, error) {
	perms, err := s.GetPermissions(ctx, schoolID, role)
	if err != nil {
		return false, err
	}
	return entity.ContainsPermission(perms, perm), nil
}

// UpdatePermissions replaces the stored set and drops the cached copy. Inside a
// transaction the cache delete waits for the commit.
func (s *PermissionService) UpdatePermissions(ctx context.Context, schoolID string, role entity.Role, perms []entity.Permission) error {
	if err := s.Repo.Upsert(ctx, schoolID, role, perms); err != nil {
		return err
	}
	repo.AfterCommit(ctx, func(ctx context.Context) {
		if err := s.Cache.Delete(ctx, schoolID, role); err != nil {
			s.Metrics.CacheError("delete")
			helpers.LogWarn(s.Logger, "permission cache invalidation failed", err, logrus.Fields{"school_id": schoolID, "role": role})
		}
	})
	return nil
}

// InvalidateSchoolCache drops every cached role of the school, after commit when in a transaction.
func (s *PermissionService) InvalidateSchoolCache(ctx context.Context, schoolID string) {
	repo.AfterCommit(ctx, func(ctx context.Context) {
		n, err := s.Cache.DeleteSchool(ctx, schoolID)
		if err != nil {
			s.Metrics.CacheError("delete_school")
			helpers.LogWarn(s.Logger, "school permission cache invalidation failed", err, logrus.Fields{"school_id": schoolID})
			return
		}
		if s.Logger != nil {
			s.Logger.WithFields(logrus.Fields{"school_id": schoolID, "keys": n}).Debug("school permission cache invalidated")
		}
	})
}

// Close releases the cache connection.
func (s *PermissionService) Close() error {
	return s.Cache.Close()
}
