package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/jhenkens/bear-valley-run-checks/internal/model"
	"github.com/jhenkens/bear-valley-run-checks/pkg/jwt"
	"github.com/jhenkens/bear-valley-run-checks/pkg/response"
)

// Context keys set by the session middleware.
const (
	CtxUser    = "user"
	CtxClaims  = "claims"
	CtxIsAdmin = "is_admin"
)

// MustGetUser returns the signed-in user or writes 401.
// Callers return immediately when ok is false.
func MustGetUser(c *gin.Context) (*model.User, bool) {
	v, exists := c.Get(CtxUser)
	if !exists {
		response.Unauthorized(c, 10002, "Authentication required")
		return nil, false
	}
	u, ok := v.(*model.User)
	if !ok || u == nil {
		response.Unauthorized(c, 10002, "Authentication required")
		return nil, false
	}
	return u, true
}

// GetClaims returns the session claims, or nil on public routes.
func GetClaims(c *gin.Context) *jwt.Claims {
	v, exists := c.Get(CtxClaims)
	if !exists {
		return nil
	}
	claims, _ := v.(*jwt.Claims)
	return claims
}
