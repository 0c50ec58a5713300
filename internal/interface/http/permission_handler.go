package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	"github.com/oksasatya/school-rbac-api/internal/interface/middleware"
	"github.com/oksasatya/school-rbac-api/pkg/apperror"
	"github.com/oksasatya/school-rbac-api/pkg/response"
)

type PermissionLookup interface {
	GetPermissions(ctx context.Context, schoolID string, role entity.Role) ([]entity.Permission, error)
}

// PermissionHandler exposes the permission catalogue and the caller's own permissions.
type PermissionHandler struct {
	Permissions PermissionLookup
}

func NewPermissionHandler(perms PermissionLookup) *PermissionHandler {
	return &PermissionHandler{Permissions: perms}
}

type catalogue struct {
	Permissions   []entity.Permission                 `json:"permissions"`
	StandardRoles []entity.Role                       `json:"standardRoles"`
	RoleDefaults  map[entity.Role][]entity.Permission `json:"roleDefaults"`
}

type myPermissions struct {
	Role        entity.Role         `json:"role"`
	Permissions []entity.Permission `json:"permissions"`
}

func (h *PermissionHandler) Catalogue(c *gin.Context) {
	defaults := make(map[entity.Role][]entity.Permission, len(entity.DefaultRolePermissions))
	for _, r := range entity.StandardRoles() {
		defaults[r] = entity.DefaultPermissionsFor(r)
	}
	response.OK(c, http.StatusOK, catalogue{
		Permissions:   entity.AllPermissions(),
		StandardRoles: entity.StandardRoles(),
		RoleDefaults:  defaults,
	}, "permission catalogue")
}

// Mine needs the staff record attached by the authorization gate.
func (h *PermissionHandler) Mine(c *gin.Context) {
	staff, ok := middleware.StaffFrom(c.Request.Context())
	if !ok {
		_ = c.Error(apperror.Unauthorized("Staff record not found"))
		return
	}
	perms, err := h.Permissions.GetPermissions(c.Request.Context(), staff.SchoolID, staff.Role)
	if err != nil {
		_ = c.Error(apperror.Internal("failed to load permissions", err))
		return
	}
	response.OK(c, http.StatusOK, myPermissions{Role: staff.Role, Permissions: perms}, "my permissions")
}
