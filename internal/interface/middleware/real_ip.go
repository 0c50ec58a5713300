package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const realIPKey = "real_ip"

// RealIP stores the caller address used for per-IP rate limits.
// Proxy headers (CF-Connecting-IP, then the left-most X-Forwarded-For entry)
// are honoured only when trustProxyHeaders is set; otherwise gin's ClientIP is used.
func RealIP(trustProxyHeaders bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ""
		if trustProxyHeaders {
			ip = parseIP(c.GetHeader("CF-Connecting-IP"))
			if ip == "" {
				first, _, _ := strings.Cut(c.GetHeader("X-Forwarded-For"), ",")
				ip = parseIP(first)
			}
		}
		if ip == "" {
			ip = c.ClientIP()
		}
		c.Set(realIPKey, ip)
		c.Next()
	}
}

func parseIP(s string) string {
	if ip := net.ParseIP(strings.TrimSpace(s)); ip != nil {
		return ip.String()
	}
	return ""
}
