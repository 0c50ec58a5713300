package router

import "github.com/gin-gonic/gin"

// Module is a feature that mounts its routes under the /api group.
// Modules apply their own guards; the registry only adds shared middleware.
type Module interface {
	Register(rg *gin.RouterGroup)
}
