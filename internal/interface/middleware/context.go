package middleware

import (
	"context"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
)

// Identity is the authenticated caller as resolved from the access token.
type Identity struct {
	UserID   string
	SchoolID string
}

type identityKey struct{}

type staffKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok && id.UserID != "" && id.SchoolID != ""
}

// WithStaff attaches the staff record loaded by the authorization gate.
func WithStaff(ctx context.Context, s *entity.Staff) context.Context {
	return context.WithValue(ctx, staffKey{}, s)
}

func StaffFrom(ctx context.Context) (*entity.Staff, bool) {
	s, ok := ctx.Value(staffKey{}).(*entity.Staff)
	return s, ok && s != nil
}
