package repository

import (
	"context"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
)

// AuditRepository stores role events consumed from the message queue.
type AuditRepository interface {
	// Save is idempotent on event ID so redelivered messages are harmless.
	Save(ctx context.Context, ev entity.RoleEvent) error
}
