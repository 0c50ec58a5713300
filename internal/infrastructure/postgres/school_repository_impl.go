package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/internal/domain/repository"
)

type SchoolRepository struct {
	pool *pgxpool.Pool
}

func NewSchoolRepository(pool *pgxpool.Pool) *SchoolRepository {
	return &SchoolRepository{pool: pool}
}

func (r *SchoolRepository) Create(ctx context.Context, s *entity.School) error {
	rc, err := encodeRoleConfig(s.RoleConfig)
	if err != nil {
		return err
	}
	row := conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO schools (name, role_config)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`, s.Name, rc)
	return row.Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *SchoolRepository) GetByID(ctx context.Context, id string) (*entity.School, error) {
	return r.get(ctx, id, "")
}

func (r *SchoolRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.School, error) {
	return r.get(ctx, id, "FOR UPDATE")
}

func (r *SchoolRepository) get(ctx context.Context, id, lock string) (*entity.School, error) {
	s := &entity.School{}
	var raw []byte
	row := conn(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, role_config, created_at, updated_at
		FROM schools
		WHERE id = $1
	`+lock, id)
	if err := row.Scan(&s.ID, &s.Name, &raw, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("school %s: %w", id, repository.ErrNotFound)
		}
		return nil, err
	}
	rc, err := decodeRoleConfig(raw)
	if err != nil {
		return nil, fmt.Errorf("school %s: %w", id, err)
	}
	s.RoleConfig = rc
	return s, nil
}

func (r *SchoolRepository) UpdateRoleConfig(ctx context.Context, id string, rc entity.RoleConfig) error {
	b, err := encodeRoleConfig(rc)
	if err != nil {
		return err
	}
	res, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE schools SET role_config = $1, updated_at = now()
		WHERE id = $2
	`, b, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return fmt.Errorf("school %s: %w", id, repository.ErrNotFound)
	}
	return nil
}

// encodeRoleConfig validates rc and returns its JSONB form.
func encodeRoleConfig(rc entity.RoleConfig) ([]byte, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(rc.Normalize())
}

// decodeRoleConfig reads a role_config column. NULL and {} read as an empty config.
func decodeRoleConfig(raw []byte) (entity.RoleConfig, error) {
	var rc entity.RoleConfig
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rc); err != nil {
			return entity.RoleConfig{}, fmt.Errorf("decode role_config: %w", err)
		}
	}
	rc = rc.Normalize()
	if err := rc.Validate(); err != nil {
		return entity.RoleConfig{}, err
	}
	return rc, nil
}

var _ repository.SchoolRepository = (*SchoolRepository)(nil)
