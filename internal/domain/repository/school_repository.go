package repository

import (
	"context"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
)

type SchoolRepository interface {
	Create(ctx context.Context, s *entity.School) error
	GetByID(ctx context.Context, id string) (*entity.School, error)
	// GetByIDForUpdate locks the school row until the surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*entity.School, error)
	UpdateRoleConfig(ctx context.Context, id string, rc entity.RoleConfig) error
}
