package modules

import (
	"expvar"
	"net/http"

	"github.com/gin-gonic/gin"
)

// DebugModule exposes expvar under /api/debug/vars and, when Metrics is set,
// the Prometheus handler at /metrics on the engine root.
type DebugModule struct {
	Engine  *gin.Engine
	Metrics http.Handler
	Limiter gin.HandlerFunc
}

func NewDebugModule(engine *gin.Engine, metrics http.Handler, limiter gin.HandlerFunc) *DebugModule {
	return &DebugModule{Engine: engine, Metrics: metrics, Limiter: limiter}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	handlers := []gin.HandlerFunc{}
	if m.Limiter != nil {
		handlers = append(handlers, m.Limiter)
	}
	rg.GET("/debug/vars", append(handlers, gin.WrapH(expvar.Handler()))...)
	if m.Metrics != nil && m.Engine != nil {
		m.Engine.GET("/metrics", append(handlers, gin.WrapH(m.Metrics))...)
	}
}
