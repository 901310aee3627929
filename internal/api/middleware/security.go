package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders hardening headers for the SPA. Its only network peers are
// the API and the /api/ws socket on the same host, plus any extra origins the
// board is served from. HSTS is sent only when cookies are Secure.
func SecurityHeaders(secure bool, extraOrigins []string) gin.HandlerFunc {
	connect := []string{"'self'"}
	for _, o := range extraOrigins {
		o = strings.TrimRight(o, "/")
		connect = append(connect, o)
		switch {
		case strings.HasPrefix(o, "https://"):
			connect = append(connect, "wss://"+strings.TrimPrefix(o, "https://"))
		case strings.HasPrefix(o, "http://"):
			connect = append(connect, "ws://"+strings.TrimPrefix(o, "http://"))
		}
	}
	if secure {
		connect = append(connect, "wss:")
	} else {
		connect = append(connect, "ws:")
	}

	csp := strings.Join([]string{
		"default-src 'self'",
		"connect-src " + strings.Join(connect, " "),
		"img-src 'self' data:",
		"style-src 'self' 'unsafe-inline'",
		"font-src 'self' data:",
		"form-action 'self'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
	}, "; ")

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Content-Security-Policy", csp)
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "same-origin")
		h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
		if secure {
			h.Set("Strict-Transport-Security", "max-age=31536000")
		}
		c.Next()
	}
}
