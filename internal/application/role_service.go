package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	repo "github.com/oksasatya/school-rbac-api/internal/domain/repository"
	"github.com/oksasatya/school-rbac-api/internal/infrastructure/metrics"
	"github.com/oksasatya/school-rbac-api/pkg/apperror"
	"github.com/oksasatya/school-rbac-api/pkg/helpers"
	"github.com/oksasatya/school-rbac-api/pkg/validation"
)

// RoleEventPublisher hands committed role changes to the audit pipeline.
type RoleEventPublisher interface {
	Publish(ctx context.Context, ev entity.RoleEvent) error
}

// Actor identifies who performs a role administration call and in which school.
type Actor struct {
	UserID   string
	SchoolID string
}

// RolePermissions is one row of a school's role table.
type RolePermissions struct {
	Role        entity.Role         `json:"role"`
	Permissions []entity.Permission `json:"permissions"`
}

// RoleService administers a school's roles. Each write runs in one transaction that
// locks the school row. Cache invalidation and event publishing follow the commit.
type RoleService struct {
	Tx          repo.Transactor
	Schools     repo.SchoolRepository
	Permissions *PermissionService
	Events      RoleEventPublisher // nil disables events
	Logger      *logrus.Logger
	Metrics     *metrics.Metrics
	// ReadConcurrency bounds parallel per-role lookups in GetRolePermissions.
	ReadConcurrency int
}

func NewRoleService(tx repo.Transactor, schools repo.SchoolRepository, perms *PermissionService, events RoleEventPublisher, logger *logrus.Logger, m *metrics.Metrics) *RoleService {
	return &RoleService{
		Tx:              tx,
		Schools:         schools,
		Permissions:     perms,
		Events:          events,
		Logger:          logger,
		Metrics:         m,
		ReadConcurrency: 4,
	}
}

var errSchoolNotFound = apperror.NotFound("School not found")

// GetRolePermissions lists enabled roles then custom roles, each with its effective permissions.
func (s *RoleService) GetRolePermissions(ctx context.Context, schoolID string) ([]RolePermissions, error) {
	school, err := s.Schools.GetByID(ctx, schoolID)
	if err != nil {
		return nil, s.schoolErr(err, schoolID, "load school")
	}

	roles := school.RoleConfig.AllRoles()
	out := make([]RolePermissions, len(roles))
	g, gctx := errgroup.WithContext(ctx)
	if s.ReadConcurrency > 0 {
		g.SetLimit(s.ReadConcurrency)
	}
	for i, role := range roles {
		g.Go(func() error {
			perms, err := s.Permissions.GetPermissions(gctx, schoolID, role)
			if err != nil {
				return err
			}
			out[i] = RolePermissions{Role: role, Permissions: perms}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		helpers.LogError(s.Logger, "failed to load role permissions", err, logrus.Fields{"school_id": schoolID})
		return nil, apperror.Internal("failed to load role permissions", err)
	}
	return out, nil
}

// UpdateRolePermissions replaces the permission set of an enabled or custom role.
func (s *RoleService) UpdateRolePermissions(ctx context.Context, actor Actor, role entity.Role, raw []string) (err error) {
	defer func() { s.Metrics.RoleMutation("update_permissions", err) }()

	perms, err := parsePermissions(raw)
	if err != nil {
		return err
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		school, err := s.Schools.GetByIDForUpdate(ctx, actor.SchoolID)
		if err != nil {
			return s.schoolErr(err, actor.SchoolID, "lock school")
		}
		if !school.RoleConfig.HasRole(role) {
			return apperror.BadRequest("Invalid role for this school")
		}
		if err := s.Permissions.UpdatePermissions(ctx, actor.SchoolID, role, perms); err != nil {
			return s.writeErr(err, actor.SchoolID, role, "permission set write failed")
		}
		s.publishAfterCommit(ctx, actor, entity.RoleEvent{
			Type:        entity.RoleEventPermissionsUpdated,
			Role:        role,
			Permissions: perms,
		})
		return nil
	})
	return s.txErr(err, actor.SchoolID, "update role permissions")
}

// CreateCustomRole adds a school-defined role and seeds its permission set.
func (s *RoleService) CreateCustomRole(ctx context.Context, actor Actor, name string, raw []string) (err error) {
	defer func() { s.Metrics.RoleMutation("create_custom_role", err) }()

	role := strings.TrimSpace(name)
	if !validation.ValidRoleName(role) {
		return apperror.BadRequest("Invalid role name")
	}
	perms, err := parsePermissions(raw)
	if err != nil {
		return err
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		school, err := s.Schools.GetByIDForUpdate(ctx, actor.SchoolID)
		if err != nil {
			return s.schoolErr(err, actor.SchoolID, "lock school")
		}
		upper := strings.ToUpper(role)
		if school.RoleConfig.HasRole(role) || school.RoleConfig.IsEnabled(upper) {
			return apperror.BadRequest("Role already exists")
		}
		// standard names stay reserved even while the school has them disabled
		if entity.IsStandardRole(upper) {
			return apperror.BadRequest("Role name is reserved")
		}
		if err := s.Schools.UpdateRoleConfig(ctx, actor.SchoolID, school.RoleConfig.WithCustomRole(role)); err != nil {
			return s.writeErr(err, actor.SchoolID, role, "role config write failed while adding custom role")
		}
		if err := s.Permissions.UpdatePermissions(ctx, actor.SchoolID, role, perms); err != nil {
			return s.writeErr(err, actor.SchoolID, role, "seeding custom role permissions failed")
		}
		s.publishAfterCommit(ctx, actor, entity.RoleEvent{
			Type:        entity.RoleEventCustomCreated,
			Role:        role,
			Permissions: perms,
		})
		return nil
	})
	return s.txErr(err, actor.SchoolID, "create custom role")
}

// UpdateEnabledRoles replaces the enabled standard roles. Roles that were not enabled
// before are seeded with their default permissions; already enabled roles keep theirs.
func (s *RoleService) UpdateEnabledRoles(ctx context.Context, actor Actor, raw []string) (err error) {
	defer func() { s.Metrics.RoleMutation("update_enabled_roles", err) }()

	roles, invalid := parseStandardRoles(raw)
	if len(invalid) > 0 {
		return apperror.BadRequest("Invalid standard roles: " + strings.Join(invalid, ", ")).
			WithDetails(map[string][]string{"invalid": invalid})
	}

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		school, err := s.Schools.GetByIDForUpdate(ctx, actor.SchoolID)
		if err != nil {
			return s.schoolErr(err, actor.SchoolID, "lock school")
		}
		prev := school.RoleConfig
		next := entity.RoleConfig{EnabledRoles: roles, CustomRoles: prev.CustomRoles}
		if err := s.Schools.UpdateRoleConfig(ctx, actor.SchoolID, next); err != nil {
			return s.writeErr(err, actor.SchoolID, "", "role config write failed while updating enabled roles")
		}
		for _, role := range roles {
			if prev.IsEnabled(role) {
				continue
			}
			if err := s.Permissions.UpdatePermissions(ctx, actor.SchoolID, role, entity.DefaultPermissionsFor(role)); err != nil {
				return s.writeErr(err, actor.SchoolID, role, "seeding default permissions failed")
			}
		}
		s.Permissions.InvalidateSchoolCache(ctx, actor.SchoolID)
		s.publishAfterCommit(ctx, actor, entity.RoleEvent{
			Type:  entity.RoleEventEnabledUpdated,
			Roles: roles,
		})
		return nil
	})
	return s.txErr(err, actor.SchoolID, "update enabled roles")
}

// DeleteCustomRole removes a custom role and clears its permission set.
func (s *RoleService) DeleteCustomRole(ctx context.Context, actor Actor, role entity.Role) (err error) {
	defer func() { s.Metrics.RoleMutation("delete_custom_role", err) }()

	err = s.Tx.WithinTx(ctx, func(ctx context.Context) error {
		school, err := s.Schools.GetByIDForUpdate(ctx, actor.SchoolID)
		if err != nil {
			return s.schoolErr(err, actor.SchoolID, "lock school")
		}
		if !school.RoleConfig.IsCustom(role) {
			return apperror.BadRequest("Custom role not found")
		}
		if err := s.Schools.UpdateRoleConfig(ctx, actor.SchoolID, school.RoleConfig.WithoutCustomRole(role)); err != nil {
			return s.writeErr(err, actor.SchoolID, role, "role config write failed while removing custom role")
		}
		if err := s.Permissions.UpdatePermissions(ctx, actor.SchoolID, role, nil); err != nil {
			return s.writeErr(err, actor.SchoolID, role, "clearing custom role permissions failed")
		}
		s.Permissions.InvalidateSchoolCache(ctx, actor.SchoolID)
		s.publishAfterCommit(ctx, actor, entity.RoleEvent{
			Type: entity.RoleEventCustomDeleted,
			Role: role,
		})
		return nil
	})
	return s.txErr(err, actor.SchoolID, "delete custom role")
}

func parsePermissions(raw []string) ([]entity.Permission, error) {
	perms, invalid := entity.ParsePermissions(raw)
	if len(invalid) > 0 {
		return nil, apperror.BadRequest("Invalid permissions: " + strings.Join(invalid, ", ")).
			WithDetails(map[string][]string{"invalid": invalid})
	}
	return perms, nil
}

// parseStandardRoles trims, upper-cases and dedupes raw, keeping first-seen order.
func parseStandardRoles(raw []string) (roles []entity.Role, invalid []string) {
	roles = make([]entity.Role, 0, len(raw))
	seen := make(map[entity.Role]struct{}, len(raw))
	for _, r := range raw {
		role := strings.ToUpper(strings.TrimSpace(r))
		if !entity.IsStandardRole(role) {
			invalid = append(invalid, r)
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	return roles, invalid
}

func (s *RoleService) publishAfterCommit(ctx context.Context, actor Actor, ev entity.RoleEvent) {
	if s.Events == nil {
		return
	}
	ev.ID = uuid.NewString()
	ev.SchoolID = actor.SchoolID
	ev.ActorUserID = actor.UserID
	ev.OccurredAt = time.Now().UTC()
	repo.AfterCommit(ctx, func(ctx context.Context) {
		err := s.Events.Publish(ctx, ev)
		s.Metrics.RoleEventPublished(err)
		if err != nil {
			helpers.LogWarn(s.Logger, "role event publish failed", err, logrus.Fields{
				"school_id": ev.SchoolID,
				"event":     ev.Type,
				"event_id":  ev.ID,
			})
		}
	})
}

func (s *RoleService) schoolErr(err error, schoolID, step string) error {
	if errors.Is(err, repo.ErrNotFound) {
		return errSchoolNotFound
	}
	helpers.LogError(s.Logger, step+" failed", err, logrus.Fields{"school_id": schoolID})
	return apperror.Internal("failed to load school", err)
}

func (s *RoleService) writeErr(err error, schoolID string, role entity.Role, msg string) error {
	fields := logrus.Fields{"school_id": schoolID}
	if role != "" {
		fields["role"] = role
	}
	helpers.LogError(s.Logger, msg, err, fields)
	return apperror.Internal("failed to update roles", err)
}

// txErr passes typed errors through and reports begin/commit failures.
func (s *RoleService) txErr(err error, schoolID, op string) error {
	if err == nil {
		return nil
	}
	var ae *apperror.Error
	if errors.As(err, &ae) {
		return ae
	}
	helpers.LogError(s.Logger, op+": transaction failed, no changes applied", err, logrus.Fields{"school_id": schoolID})
	return apperror.Internal("failed to update roles", err)
}
