package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/internal/domain/repository"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

func (r *AuditRepository) Save(ctx context.Context, ev entity.RoleEvent) error {
	var actor *string
	if ev.ActorUserID != "" {
		actor = &ev.ActorUserID
	}
	roles := ev.Roles
	if roles == nil {
		roles = []entity.Role{}
	}
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO role_audit_logs (id, event_type, school_id, role, roles, permissions, actor_user_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO NOTHING
	`, ev.ID, string(ev.Type), ev.SchoolID, ev.Role, roles, entity.PermissionStrings(ev.Permissions), actor, ev.OccurredAt)
	if err != nil {
		return fmt.Errorf("save role event %s: %w", ev.ID, err)
	}
	return nil
}

var _ repository.AuditRepository = (*AuditRepository)(nil)
