package repository

import (
	"context"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
)

type StaffRepository interface {
	Create(ctx context.Context, s *entity.Staff) error
	FindByUserAndSchool(ctx context.Context, userID, schoolID string) (*entity.Staff, error)
}
