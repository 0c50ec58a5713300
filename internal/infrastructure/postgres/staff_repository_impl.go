package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/internal/domain/repository"
)

type StaffRepository struct {
	pool *pgxpool.Pool
}

func NewStaffRepository(pool *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

func (r *StaffRepository) Create(ctx context.Context, s *entity.Staff) error {
	if s.Status == "" {
		s.Status = entity.StaffActive
	}
	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO staff (user_id, school_id, role, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, s.UserID, s.SchoolID, s.Role, s.Status)
	return row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *StaffRepository) FindByUserAndSchool(ctx context.Context, userID, schoolID string) (*entity.Staff, error) {
	s := &entity.Staff{}
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, user_id, school_id, role, status, created_at, updated_at
		FROM staff
		WHERE user_id = $1 AND school_id = $2
	`, userID, schoolID)
	if err := row.Scan(&s.ID, &s.UserID, &s.SchoolID, &s.Role, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("staff %s/%s: %w", schoolID, userID, repository.ErrNotFound)
		}
		return nil, err
	}
	return s, nil
}

var _ repository.StaffRepository = (*StaffRepository)(nil)
