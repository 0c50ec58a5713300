package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/oksasatya/school-rbac-api/internal/domain/entity"
	handlers "github.com/oksasatya/school-rbac-api/internal/interface/http"
	"github.com/oksasatya/school-rbac-api/internal/interface/middleware"
)

// RolePermissionModule wires the role administration API.
// All routes need a valid token and the manage_roles permission:
//
//	GET    /api/role-permissions
//	PUT    /api/role-permissions/:role/permissions
//	POST   /api/role-permissions/custom
//	PUT    /api/role-permissions/enabled
//	DELETE /api/role-permissions/custom/:role
type RolePermissionModule struct {
	Handler *handlers.RolePermissionHandler
	Authz   *middleware.Authorizer
	// Guard runs before authorization: token verification and rate limits.
	Guard []gin.HandlerFunc
}

func NewRolePermissionModule(h *handlers.RolePermissionHandler, authz *middleware.Authorizer, guard ...gin.HandlerFunc) *RolePermissionModule {
	return &RolePermissionModule{Handler: h, Authz: authz, Guard: guard}
}

func (m *RolePermissionModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("/role-permissions")
	g.Use(m.Guard...)
	g.Use(m.Authz.RequirePermission(entity.PermManageRoles))
	{
		g.GET("", m.Handler.GetRolePermissions)
		g.PUT("/:role/permissions", m.Handler.UpdateRolePermissions)
		g.POST("/custom", m.Handler.CreateCustomRole)
		g.PUT("/enabled", m.Handler.UpdateEnabledRoles)
		g.DELETE("/custom/:role", m.Handler.DeleteCustomRole)
	}
}
