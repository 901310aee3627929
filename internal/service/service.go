package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/catalog"
	"github.com/jhenkens/bear-valley-run-checks/internal/model"
	"github.com/jhenkens/bear-valley-run-checks/internal/repository"
	"github.com/jhenkens/bear-valley-run-checks/pkg/jwt"
	"github.com/jhenkens/bear-valley-run-checks/pkg/mail"
)

// SessionStore revokes sessions. A nil store means logout only clears the cookie.
type SessionStore interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
	IsBlacklisted(ctx context.Context, jti string) (bool, error)
}

// CheckCache is the in-memory list of today's checks.
type CheckCache interface {
	GetChecks() []model.RunCheck
	AddChecks(ctx context.Context, inputs []model.RunCheckInput) ([]model.RunCheck, bool)
	HasStore() bool
}

// Broadcaster pushes events to connected clients.
type Broadcaster interface {
	Broadcast(event string, payload interface{}) error
}

// Service aggregates every service.
type Service struct {
	Auth      AuthService
	User      UserService
	Superuser SuperuserService
	Patroller PatrollerService
	RunCheck  RunCheckService
	Google    GoogleService
	Export    ExportService
}

// Deps are the components the services are built from.
// Sessions and Broadcaster may be nil.
type Deps struct {
	Config      *config.Config
	Repo        *repository.Repository
	JWT         *jwt.Manager
	Sessions    SessionStore
	Mailer      mail.Sender
	Google      GoogleService
	Cache       CheckCache
	Catalog     catalog.Provider
	Broadcaster Broadcaster
	Logger      *zap.Logger
}

// NewService builds the Service aggregate. The Google service is built first
// by the caller because the external store depends on it.
func NewService(d Deps) *Service {
	auth := NewAuthService(d.Config, d.Repo, d.JWT, d.Sessions, d.Mailer, d.Logger)
	patroller := NewPatrollerService(d.Config, d.Repo, d.Logger)
	return &Service{
		Auth:      auth,
		User:      NewUserService(d.Config, d.Repo, auth, d.Mailer, d.Logger),
		Superuser: NewSuperuserService(d.Config, d.Repo, d.Logger),
		Patroller: patroller,
		RunCheck: NewRunCheckService(RunCheckDeps{
			Config:      d.Config,
			Cache:       d.Cache,
			Catalog:     d.Catalog,
			Patrollers:  patroller,
			Google:      d.Google,
			Broadcaster: d.Broadcaster,
			Logger:      d.Logger,
		}),
		Google: d.Google,
		Export: NewExportService(d.Config, d.Cache, d.Logger),
	}
}
