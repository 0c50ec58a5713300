package router

import "github.com/gin-gonic/gin"

// Registry collects modules and the middleware shared by every /api route.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	middlewares []gin.HandlerFunc
	modules     []Module
	registered  bool
}

func NewRegistry(engine *gin.Engine) *Registry {
	return &Registry{Engine: engine, API: engine.Group("/api")}
}

// Use adds middleware to the /api group. Calls after RegisterAll panic,
// since gin would silently skip routes that were already mounted.
func (r *Registry) Use(mw ...gin.HandlerFunc) {
	if r.registered {
		panic("router: Use called after RegisterAll")
	}
	r.middlewares = append(r.middlewares, mw...)
}

func (r *Registry) Add(mods ...Module) {
	r.modules = append(r.modules, mods...)
}

// RegisterAll mounts every module once.
func (r *Registry) RegisterAll() {
	if r.registered {
		return
	}
	r.registered = true
	r.API.Use(r.middlewares...)
	for _, m := range r.modules {
		m.Register(r.API)
	}
}
