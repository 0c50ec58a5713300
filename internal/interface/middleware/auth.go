package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/school-rbac-api/pkg/apperror"
	"github.com/oksasatya/school-rbac-api/pkg/helpers"
)

// Auth validates the access token and stores the caller's Identity in the request context.
// The token is read from the Authorization bearer header, then from the access_token cookie.
func Auth(jwt *helpers.JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			token, _ = c.Cookie("access_token")
		}
		if token == "" {
			_ = c.Error(apperror.Unauthorized("missing access token"))
			c.Abort()
			return
		}
		claims, err := jwt.ParseAccessToken(token)
		if err != nil {
			_ = c.Error(&apperror.Error{Kind: apperror.KindUnauthorized, Message: "invalid access token", Err: err})
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), Identity{
			UserID:   claims.UserID,
			SchoolID: claims.SchoolID,
		}))
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}
