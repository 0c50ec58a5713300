package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/school-rbac-api/internal/interface/http"
	"github.com/oksasatya/school-rbac-api/internal/interface/middleware"
)

// PermissionModule serves GET /api/permissions and GET /api/me/permissions to any staff member.
type PermissionModule struct {
	Handler *handlers.PermissionHandler
	Authz   *middleware.Authorizer
	Guard   []gin.HandlerFunc
}

func NewPermissionModule(h *handlers.PermissionHandler, authz *middleware.Authorizer, guard ...gin.HandlerFunc) *PermissionModule {
	return &PermissionModule{Handler: h, Authz: authz, Guard: guard}
}

func (m *PermissionModule) Register(rg *gin.RouterGroup) {
	g := rg.Group("")
	g.Use(m.Guard...)
	g.Use(m.Authz.RequireStaff())
	g.GET("/permissions", m.Handler.Catalogue)
	g.GET("/me/permissions", m.Handler.Mine)
}
