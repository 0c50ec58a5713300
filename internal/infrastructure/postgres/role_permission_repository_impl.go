package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/internal/domain/repository"
)

type RolePermissionRepository struct {
	pool *pgxpool.Pool
}

func NewRolePermissionRepository(pool *pgxpool.Pool) *RolePermissionRepository {
	return &RolePermissionRepository{pool: pool}
}

// Upsert relies on the unique (school_id, role) index so concurrent writers resolve to last-write-wins.
func (r *RolePermissionRepository) Upsert(ctx context.Context, schoolID string, role entity.Role, perms []entity.Permission) error {
	stored := entity.PermissionStrings(entity.NormalizePermissions(perms))
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO role_permissions (school_id, role, permissions)
		VALUES ($1, $2, $3)
		ON CONFLICT (school_id, role)
		DO UPDATE SET permissions = EXCLUDED.permissions, updated_at = now()
	`, schoolID, role, stored)
	if err != nil {
		return fmt.Errorf("upsert role permissions %s/%s: %w", schoolID, role, err)
	}
	return nil
}

func (r *RolePermissionRepository) FindWithRoleConfig(ctx context.Context, schoolID string, role entity.Role) (*entity.RolePermission, entity.RoleConfig, error) {
	var (
		rawConfig []byte
		id        *string
		perms     []string
		createdAt *time.Time
		updatedAt *time.Time
	)
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT s.role_config, rp.id, rp.permissions, rp.created_at, rp.updated_at
		FROM schools s
		LEFT JOIN role_permissions rp ON rp.school_id = s.id AND rp.role = $2
		WHERE s.id = $1
	`, schoolID, role)
	if err := row.Scan(&rawConfig, &id, &perms, &createdAt, &updatedAt); err != nil {
		if notFound(err) {
			return nil, entity.RoleConfig{}, fmt.Errorf("school %s: %w", schoolID, repository.ErrNotFound)
		}
		return nil, entity.RoleConfig{}, err
	}
	rc, err := decodeRoleConfig(rawConfig)
	if err != nil {
		return nil, entity.RoleConfig{}, fmt.Errorf("school %s: %w", schoolID, err)
	}
	if id == nil {
		return nil, rc, nil
	}

	rec := &entity.RolePermission{
		ID:          *id,
		SchoolID:    schoolID,
		Role:        role,
		Permissions: make([]entity.Permission, 0, len(perms)),
	}
	for _, p := range perms {
		rec.Permissions = append(rec.Permissions, entity.Permission(p))
	}
	if createdAt != nil {
		rec.CreatedAt = *createdAt
	}
	if updatedAt != nil {
		rec.UpdatedAt = *updatedAt
	}
	return rec, rc, nil
}

var _ repository.RolePermissionRepository = (*RolePermissionRepository)(nil)
