package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/school-rbac-api/internal/application"
	"github.com/oksasatya/school-rbac-api/internal/interface/middleware"
	"github.com/oksasatya/school-rbac-api/pkg/apperror"
	"github.com/oksasatya/school-rbac-api/pkg/response"
	"github.com/oksasatya/school-rbac-api/pkg/validation"
)

// RolePermissionHandler serves the role administration API. Routes sit behind
// the manage_roles gate, so an Identity is always present.
type RolePermissionHandler struct {
	Svc    *application.RoleService
	Logger *logrus.Logger
}

func NewRolePermissionHandler(svc *application.RoleService, logger *logrus.Logger) *RolePermissionHandler {
	return &RolePermissionHandler{Svc: svc, Logger: logger}
}

type updateRolePermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required,max=64"`
}

type createCustomRoleRequest struct {
	Role        string   `json:"role" binding:"required,rolename"`
	Permissions []string `json:"permissions" binding:"required,max=64"`
}

type updateEnabledRolesRequest struct {
	EnabledRoles []string `json:"enabledRoles" binding:"required,max=16"`
}

func (h *RolePermissionHandler) GetRolePermissions(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	roles, err := h.Svc.GetRolePermissions(c.Request.Context(), actor.SchoolID)
	if err != nil {
		_ = c.Error(err)
		return
	}
	response.OK(c, http.StatusOK, roles, "role permissions")
}

func (h *RolePermissionHandler) UpdateRolePermissions(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req updateRolePermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.BadRequest("Permissions must be an array").WithDetails(validation.ToDetails(err)))
		return
	}
	if err := h.Svc.UpdateRolePermissions(c.Request.Context(), actor, c.Param("role"), req.Permissions); err != nil {
		_ = c.Error(err)
		return
	}
	response.Message(c, "Role permissions updated successfully")
}

func (h *RolePermissionHandler) CreateCustomRole(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req createCustomRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		msg := "Permissions must be an array"
		if validation.HasFieldError(err, "role") {
			msg = "Invalid role name"
		}
		_ = c.Error(apperror.BadRequest(msg).WithDetails(validation.ToDetails(err)))
		return
	}
	if err := h.Svc.CreateCustomRole(c.Request.Context(), actor, req.Role, req.Permissions); err != nil {
		_ = c.Error(err)
		return
	}
	response.Message(c, "Custom role created successfully")
}

func (h *RolePermissionHandler) UpdateEnabledRoles(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req updateEnabledRolesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperror.BadRequest("enabledRoles must be an array").WithDetails(validation.ToDetails(err)))
		return
	}
	if err := h.Svc.UpdateEnabledRoles(c.Request.Context(), actor, req.EnabledRoles); err != nil {
		_ = c.Error(err)
		return
	}
	response.Message(c, "Enabled roles updated successfully")
}

func (h *RolePermissionHandler) DeleteCustomRole(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.Svc.DeleteCustomRole(c.Request.Context(), actor, c.Param("role")); err != nil {
		_ = c.Error(err)
		return
	}
	response.Message(c, "Custom role deleted successfully")
}

// actorFrom reads the caller identity, recording a 401 when it is absent.
func actorFrom(c *gin.Context) (application.Actor, bool) {
	id, ok := middleware.IdentityFrom(c.Request.Context())
	if !ok {
		_ = c.Error(apperror.Unauthorized("User not authenticated"))
		c.Abort()
		return application.Actor{}, false
	}
	return application.Actor{UserID: id.UserID, SchoolID: id.SchoolID}, true
}
