package repository

import (
	"context"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
)

type RolePermissionRepository interface {
	// Upsert replaces the permission set of (schoolID, role), creating the record when absent.
	Upsert(ctx context.Context, schoolID string, role entity.Role, perms []entity.Permission) error
	// FindWithRoleConfig returns the record (nil when absent) and the school's role config.
	// ErrNotFound is returned when the school does not exist.
	FindWithRoleConfig(ctx context.Context, schoolID string, role entity.Role) (*entity.RolePermission, entity.RoleConfig, error)
}
