package router

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/api/handler"
	"github.com/jhenkens/bear-valley-run-checks/internal/api/middleware"
	"github.com/jhenkens/bear-valley-run-checks/internal/realtime"
	"github.com/jhenkens/bear-valley-run-checks/internal/service"
	"github.com/jhenkens/bear-valley-run-checks/pkg/metrics"
	"github.com/jhenkens/bear-valley-run-checks/pkg/redis"
	"github.com/jhenkens/bear-valley-run-checks/pkg/response"
)

const maxBodyBytes = 1 << 20

// Deps what Setup wires into the engine. Redis and Metrics may be nil.
type Deps struct {
	Config  *config.Config
	Handler *handler.Handler
	Auth    service.AuthService
	Hub     *realtime.Hub
	Redis   *redis.Client
	Metrics *metrics.Metrics
	Logger  *zap.Logger
}

// Setup builds the Gin engine.
func Setup(d Deps) *gin.Engine {
	if d.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	cfg := d.Config
	h := d.Handler

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger, d.Metrics))
	r.Use(middleware.SecurityHeaders(cfg.Auth.Cookie.Secure, cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	r.GET("/health", h.Health.Health)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	sessionAuth := middleware.SessionAuth(d.Auth, cfg)
	adminOnly := middleware.RequireAdmin()

	// ── auth ──
	auth := r.Group("/auth")
	{
		auth.POST("/login", middleware.RateLimit(d.Redis, cfg.Auth.LoginRateLimit, cfg.Auth.LoginRateWindow), h.Auth.Login)
		auth.GET("/verify", h.Auth.Verify)
		auth.POST("/dev-login", h.Auth.DevLogin)
		auth.GET("/logout", h.Auth.Logout)
		auth.GET("/me", sessionAuth, h.Auth.Me)
	}

	api := r.Group("/api")
	{
		api.GET("/ws", gin.WrapF(d.Hub.ServeWS))

		authorized := api.Group("")
		authorized.Use(sessionAuth)
		{
			authorized.GET("/runs", h.RunCheck.ListRuns)
			authorized.GET("/runchecks/today", h.RunCheck.ListToday)
			authorized.POST("/runchecks", h.RunCheck.Submit)
			authorized.GET("/runchecks/export", h.RunCheck.Export)
			authorized.GET("/run_status", h.RunCheck.Status)
			authorized.GET("/run_status/board", h.RunCheck.Board)
			authorized.GET("/patrollers", h.User.ListPatrollers)

			// the consent redirect lands here without going through the admin check
			authorized.GET("/google/oauth/callback", h.Google.Callback)
		}

		admin := api.Group("")
		admin.Use(sessionAuth, adminOnly)
		{
			users := admin.Group("/users")
			{
				users.GET("", h.User.ListUsers)
				users.POST("", h.User.CreateUser)
				users.PATCH("/:id/admin", h.User.UpdateAdmin)
				users.DELETE("/:id", h.User.DeleteUser)
			}

			oauth := admin.Group("/google/oauth")
			{
				oauth.GET("/authorize", h.Google.Authorize)
				oauth.POST("/folder", h.Google.UpdateFolder)
				oauth.POST("/refresh", h.Google.Refresh)
				oauth.GET("/status", h.Google.Status)
				oauth.DELETE("/disconnect", h.Google.Disconnect)
				oauth.POST("/test-mark-inactive", h.Google.MarkInactive)
			}

			admin.POST("/google/admin/refresh-runs", h.RunCheck.RefreshRuns)
		}
	}

	if cfg.Server.StaticDir != "" {
		serveSPA(r, cfg.Server.StaticDir)
	}

	return r
}

// serveSPA serves built frontend assets and falls back to index.html for
// client-side routes. Unknown /api and /auth paths stay JSON 404s.
func serveSPA(r *gin.Engine, dir string) {
	index := filepath.Join(dir, "index.html")
	r.NoRoute(func(c *gin.Context) {
		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/") || strings.HasPrefix(path, "/auth/") {
			response.NotFound(c, 10006, "Not found")
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			response.NotFound(c, 10006, "Not found")
			return
		}

		file := filepath.Join(dir, filepath.Clean("/"+path))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(index)
	})
}
