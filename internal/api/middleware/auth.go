package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/api/handler"
	"github.com/jhenkens/bear-valley-run-checks/internal/service"
	"github.com/jhenkens/bear-valley-run-checks/pkg/response"
)

// SessionAuth authenticates the session cookie and injects the user.
// Admin status includes configured superusers.
func SessionAuth(authSvc service.AuthService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(cfg.Auth.Cookie.Name)
		if err != nil || token == "" {
			response.Unauthorized(c, 10002, "Authentication required")
			c.Abort()
			return
		}

		user, claims, err := authSvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, service.ErrUserNotFound) {
				response.Unauthorized(c, 10002, "User not found")
			} else {
				response.Unauthorized(c, 10002, "Authentication required")
			}
			c.Abort()
			return
		}

		c.Set(handler.CtxUser, user)
		c.Set(handler.CtxClaims, claims)
		c.Set(handler.CtxIsAdmin, user.IsAdmin || cfg.IsSuperuser(user.Email))

		c.Next()
	}
}

// RequireAdmin must run after SessionAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(handler.CtxIsAdmin) {
			response.Forbidden(c, 10003, "Admin access required")
			c.Abort()
			return
		}
		c.Next()
	}
}
