package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/service"
	"github.com/jhenkens/bear-valley-run-checks/pkg/response"
)

// Handler aggregates every handler.
type Handler struct {
	Auth     *AuthHandler
	User     *UserHandler
	RunCheck *RunCheckHandler
	Google   *GoogleHandler
	Health   *HealthHandler
}

// NewHandler builds the Handler aggregate.
func NewHandler(cfg *config.Config, svc *service.Service, provider string, logger *zap.Logger) *Handler {
	return &Handler{
		Auth:     NewAuthHandler(svc.Auth, svc.User, &cfg.Auth),
		User:     NewUserHandler(svc.User, svc.Patroller),
		RunCheck: NewRunCheckHandler(svc.RunCheck, svc.Export),
		Google:   NewGoogleHandler(svc.Google, cfg.Auth.Cookie.Secure, logger),
		Health:   &HealthHandler{provider: provider},
	}
}

// HealthHandler liveness probe.
type HealthHandler struct {
	provider string
}

// Health GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok", "provider": h.provider})
}
