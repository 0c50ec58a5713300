package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/school-rbac-api/pkg/apperror"
	"github.com/oksasatya/school-rbac-api/pkg/response"
)

// ErrorHandler renders the last error attached with c.Error as the JSON envelope.
// Internal causes are logged and never sent to the client.
func ErrorHandler(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		ae := apperror.As(c.Errors.Last().Err)
		status := ae.Status()
		if status >= http.StatusInternalServerError && logger != nil {
			entry := logger.WithFields(logrus.Fields{
				"request_id": c.GetString("request_id"),
				"method":     c.Request.Method,
				"path":       c.FullPath(),
			})
			if ae.Err != nil {
				entry = entry.WithError(ae.Err)
			}
			entry.Error(ae.Message)
		}
		response.Abort(c, status, ae.Message, ae.Details)
	}
}
