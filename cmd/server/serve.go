package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jhenkens/bear-valley-run-checks/config"
	"github.com/jhenkens/bear-valley-run-checks/internal/api/handler"
	"github.com/jhenkens/bear-valley-run-checks/internal/api/router"
	"github.com/jhenkens/bear-valley-run-checks/internal/catalog"
	"github.com/jhenkens/bear-valley-run-checks/internal/checkcache"
	"github.com/jhenkens/bear-valley-run-checks/internal/realtime"
	"github.com/jhenkens/bear-valley-run-checks/internal/repository"
	"github.com/jhenkens/bear-valley-run-checks/internal/service"
	"github.com/jhenkens/bear-valley-run-checks/internal/sheets"
	"github.com/jhenkens/bear-valley-run-checks/pkg/database"
	"github.com/jhenkens/bear-valley-run-checks/pkg/jwt"
	applogger "github.com/jhenkens/bear-valley-run-checks/pkg/logger"
	"github.com/jhenkens/bear-valley-run-checks/pkg/mail"
	"github.com/jhenkens/bear-valley-run-checks/pkg/metrics"
	"github.com/jhenkens/bear-valley-run-checks/pkg/redis"
)

const linkPurgeInterval = time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. config
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. logger
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	logger.Info("starting run checks server",
		zap.String("environment", cfg.Environment),
		zap.String("run_provider", cfg.RunProvider),
		zap.String("timezone", cfg.Timezone),
		zap.Int("port", cfg.Server.Port),
	)

	// 3. database + migrations
	db, err := database.NewDB(&cfg.Database, !cfg.IsProduction() && cfg.Log.Level == "debug", logger)
	if err != nil {
		logger.Fatal("connect database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("get sql.DB", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("run migrations", zap.Error(err))
	}

	// 4. redis is optional
	var sessions service.SessionStore
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("redis unavailable, session revocation and login rate limiting disabled", zap.Error(err))
		rdb = nil
	} else {
		sessions = rdb
		defer rdb.Close()
	}

	// 5. components: repository → google → store/catalog/cache → services → handlers
	m := metrics.New()
	repo := repository.NewRepository(db)
	loc := cfg.Location()

	google := service.NewGoogleService(cfg, repo, m, logger)

	var store checkcache.Store
	if google.Enabled() {
		store = sheets.NewDailyStore(google, loc, logger)
	} else {
		logger.Info("google drive not configured, run checks are kept in memory only")
	}

	var source catalog.RowSource
	if cfg.RunProvider == config.RunProviderSheets {
		source = sheets.NewRunNamesSource(google)
	}
	provider, err := catalog.New(cfg, source, logger)
	if err != nil {
		logger.Fatal("build run catalog", zap.Error(err))
	}

	cache := checkcache.New(store, loc, logger, checkcache.WithMetrics(m))
	defer cache.Close()

	hub := realtime.NewHub(cfg.Server.CORS.AllowOrigins, logger, m)

	svc := service.NewService(service.Deps{
		Config:      cfg,
		Repo:        repo,
		JWT:         jwt.NewManager(&cfg.Auth),
		Sessions:    sessions,
		Mailer:      mail.NewSender(&cfg.Mail, logger),
		Google:      google,
		Cache:       cache,
		Catalog:     provider,
		Broadcaster: hub,
		Logger:      logger,
	})

	// 6. boot sequence
	if err := svc.Superuser.Sync(ctx); err != nil {
		logger.Fatal("sync superusers", zap.Error(err))
	}
	if err := provider.Initialize(ctx); err != nil {
		logger.Fatal("initialize run catalog", zap.String("provider", provider.Name()), zap.Error(err))
	}
	if err := cache.Initialize(ctx); err != nil {
		logger.Warn("load today's checks from store", zap.Error(err))
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	google.StartRefreshScheduler()
	defer google.Stop()

	go purgeExpiredLinks(hubCtx, svc.Auth, logger)

	// 7. http server
	engine := router.Setup(router.Deps{
		Config:  cfg,
		Handler: handler.NewHandler(cfg, svc, provider.Name(), logger),
		Auth:    svc.Auth,
		Hub:     hub,
		Redis:   rdb,
		Metrics: m,
		Logger:  logger,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
	return nil
}

// purgeExpiredLinks deletes used and expired magic links hourly.
func purgeExpiredLinks(ctx context.Context, auth service.AuthService, logger *zap.Logger) {
	ticker := time.NewTicker(linkPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := auth.PurgeExpiredLinks(ctx)
			if err != nil {
				logger.Warn("purge magic links", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged magic links", zap.Int64("count", n))
			}
		}
	}
}
