package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/internal/domain/repository"
	"github.com/oksasatya/school-rbac-api/internal/infrastructure/metrics"
	"github.com/oksasatya/school-rbac-api/pkg/apperror"
	"github.com/oksasatya/school-rbac-api/pkg/helpers"
)

type StaffFinder interface {
	FindByUserAndSchool(ctx context.Context, userID, schoolID string) (*entity.Staff, error)
}

type PermissionChecker interface {
	GetPermissions(ctx context.Context, schoolID string, role entity.Role) ([]entity.Permission, error)
	HasPermission(ctx context.Context, schoolID string, role entity.Role, perm entity.Permission) (bool, error)
}

// Authorizer gates routes on the caller's role permissions within their school.
type Authorizer struct {
	Staff       StaffFinder
	Permissions PermissionChecker
	Logger      *logrus.Logger
	Metrics     *metrics.Metrics
}

func NewAuthorizer(staff StaffFinder, perms PermissionChecker, logger *logrus.Logger, m *metrics.Metrics) *Authorizer {
	return &Authorizer{Staff: staff, Permissions: perms, Logger: logger, Metrics: m}
}

var errForbidden = apperror.Forbidden("Insufficient permissions")

// RequirePermission allows the request when the caller's role holds p.
func (a *Authorizer) RequirePermission(p entity.Permission) gin.HandlerFunc {
	return a.gate("single", func(ctx context.Context, staff *entity.Staff) (bool, error) {
		return a.Permissions.HasPermission(ctx, staff.SchoolID, staff.Role, p)
	})
}

// RequireAnyPermission allows the request when the caller holds at least one of ps.
func (a *Authorizer) RequireAnyPermission(ps ...entity.Permission) gin.HandlerFunc {
	return a.gate("any", func(ctx context.Context, staff *entity.Staff) (bool, error) {
		held, err := a.Permissions.GetPermissions(ctx, staff.SchoolID, staff.Role)
		if err != nil {
			return false, err
		}
		for _, p := range ps {
			if entity.ContainsPermission(held, p) {
				return true, nil
			}
		}
		return false, nil
	})
}

// RequireAllPermissions allows the request when the caller holds every one of ps.
func (a *Authorizer) RequireAllPermissions(ps ...entity.Permission) gin.HandlerFunc {
	return a.gate("all", func(ctx context.Context, staff *entity.Staff) (bool, error) {
		held, err := a.Permissions.GetPermissions(ctx, staff.SchoolID, staff.Role)
		if err != nil {
			return false, err
		}
		for _, p := range ps {
			if !entity.ContainsPermission(held, p) {
				return false, nil
			}
		}
		return true, nil
	})
}

// RequireStaff only resolves the caller's staff record.
func (a *Authorizer) RequireStaff() gin.HandlerFunc {
	return a.gate("staff", func(context.Context, *entity.Staff) (bool, error) { return true, nil })
}

func (a *Authorizer) gate(mode string, decide func(ctx context.Context, staff *entity.Staff) (bool, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, ok := IdentityFrom(ctx)
		if !ok {
			_ = c.Error(apperror.Unauthorized("User not authenticated"))
			c.Abort()
			return
		}

		staff, err := a.Staff.FindByUserAndSchool(ctx, id.UserID, id.SchoolID)
		if errors.Is(err, repository.ErrNotFound) {
			_ = c.Error(apperror.Unauthorized("Staff record not found"))
			c.Abort()
			return
		}
		if err != nil {
			helpers.LogError(a.Logger, "staff lookup failed", err, logrus.Fields{"user_id": id.UserID, "school_id": id.SchoolID})
			_ = c.Error(apperror.Internal("internal server error", err))
			c.Abort()
			return
		}

		allowed, err := decide(ctx, staff)
		if err != nil {
			helpers.LogError(a.Logger, "permission check failed", err, logrus.Fields{"school_id": staff.SchoolID, "role": staff.Role})
			_ = c.Error(apperror.Internal("internal server error", err))
			c.Abort()
			return
		}
		a.Metrics.AuthorizationDecision(mode, allowed)
		if !allowed {
			_ = c.Error(errForbidden)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithStaff(ctx, staff))
		c.Next()
	}
}
