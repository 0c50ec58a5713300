package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/school-rbac-api/internal/application"
	"github.com/oksasatya/school-rbac-api/internal/container"
	"github.com/oksasatya/school-rbac-api/internal/infrastructure/cache"
	pginfra "github.com/oksasatya/school-rbac-api/internal/infrastructure/postgres"
	handlers "github.com/oksasatya/school-rbac-api/internal/interface/http"
	"github.com/oksasatya/school-rbac-api/internal/interface/middleware"
	"github.com/oksasatya/school-rbac-api/internal/router/modules"
)

type RoleModuleDeps struct {
	Permissions *application.PermissionService
	Roles       *application.RoleService
	Authz       *middleware.Authorizer
	RoleHandler *handlers.RolePermissionHandler
	PermHandler *handlers.PermissionHandler
	Cache       *cache.PermissionCache
}

func buildRoleDeps() RoleModuleDeps {
	cfg := container.GetConfig()
	pool := container.GetPGPool()
	logger := container.GetLogger()
	m := container.GetMetrics()

	permCache := cache.NewPermissionCache(container.GetRedis(), cfg.PermissionCacheTTL, cfg.CacheTimeout)
	perms := application.NewPermissionService(pginfra.NewRolePermissionRepository(pool), permCache, logger, m)

	var events application.RoleEventPublisher
	if p := container.GetRoleEvents(); p != nil {
		events = p
	}
	roles := application.NewRoleService(pginfra.NewTransactor(pool), pginfra.NewSchoolRepository(pool), perms, events, logger, m)
	authz := middleware.NewAuthorizer(pginfra.NewStaffRepository(pool), perms, logger, m)

	return RoleModuleDeps{
		Permissions: perms,
		Roles:       roles,
		Authz:       authz,
		RoleHandler: handlers.NewRolePermissionHandler(roles, logger),
		PermHandler: handlers.NewPermissionHandler(perms),
		Cache:       permCache,
	}
}

// InitModules initializes all application modules and registers them with the router registry.
// It returns the permission service so the caller can close it on shutdown.
func InitModules(r *Registry) *application.PermissionService {
	cfg := container.GetConfig()
	rdb := container.GetRedis()
	deps := buildRoleDeps()

	guard := []gin.HandlerFunc{
		middleware.Auth(container.GetJWT()),
		middleware.RateLimit(rdb, cfg.RateLimitPerMinute, time.Minute, middleware.KeyByUserID(), nil),
	}

	r.Add(modules.NewHealthModule(handlers.NewHealthHandler(map[string]handlers.Pinger{
		"postgres": container.GetPGPool(),
		"redis":    deps.Cache,
	})))
	r.Add(modules.NewPermissionModule(deps.PermHandler, deps.Authz, guard...))
	r.Add(modules.NewRolePermissionModule(deps.RoleHandler, deps.Authz, guard...))

	if cfg.MetricsEnabled {
		// Public, rate-limited per IP; private-range scrapers bypass the limit
		limiter := middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
		var mh http.Handler
		if m := container.GetMetrics(); m != nil {
			mh = m.Handler()
		}
		r.Add(modules.NewDebugModule(r.Engine, mh, limiter))
	}
	return deps.Permissions
}
