package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/workstream/access-management/internal"
	"github.com/workstream/access-management/internal/access"
	accesspg "github.com/workstream/access-management/internal/access/postgres"
	"github.com/workstream/access-management/internal/audit"
	auditpg "github.com/workstream/access-management/internal/audit/postgres"
	"github.com/workstream/access-management/internal/core/events"
	"github.com/workstream/access-management/internal/permission"
	permissionpg "github.com/workstream/access-management/internal/permission/postgres"
	"github.com/workstream/access-management/internal/role"
	rolepg "github.com/workstream/access-management/internal/role/postgres"
	"github.com/workstream/access-management/internal/scoperule"
	scoperulepg "github.com/workstream/access-management/internal/scoperule/postgres"
	"github.com/workstream/access-management/internal/template"
	templatepg "github.com/workstream/access-management/internal/template/postgres"
	"github.com/workstream/access-management/internal/transport/middleware"
	"github.com/workstream/access-management/internal/transport/rest"
	"github.com/workstream/access-management/internal/user"
	userpg "github.com/workstream/access-management/internal/user/postgres"
	"github.com/workstream/access-management/pkg/cache"
	"github.com/workstream/access-management/pkg/logger"

	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle permission resolution and admin requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type dependencies struct {
	config *internal.Config
	db     *gorm.DB
	cache  cache.Cache
	router http.Handler
	logger *slog.Logger
}

func startHTTPServer() {
	deps, err := initializeDependencies()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.config.Server.Port)
	deps.logger.Info("starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      deps.router,
		ReadTimeout:  deps.config.Server.ReadTimeout,
		WriteTimeout: deps.config.Server.WriteTimeout,
		IdleTimeout:  deps.config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.logger.Info("received signal, shutting down", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			deps.logger.Error("server shutdown error", "error", err)
		}
		if err := deps.cache.Close(); err != nil {
			deps.logger.Error("cache close error", "error", err)
		}
		if sqlDB, err := deps.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				deps.logger.Error("database close error", "error", err)
			}
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}

	deps.logger.Info("server stopped")
}

func initializeDependencies() (*dependencies, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(config.Environment)
	lg := logger.L()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	c := initCache(config.Redis, lg)
	bus := events.NewEventBus(lg)
	bus.Subscribe(events.EventTypeAuditWriteFailed, func(ctx context.Context, event events.Event) error {
		lg.Error("audit write failed", "payload", event.Payload)
		return nil
	})

	// repositories
	grantRepo := accesspg.NewGrantRepository(db)
	ruleRepo := scoperulepg.NewScopeRuleRepository(db)
	permissionRepo := permissionpg.NewPermissionRepository(db)
	roleRepo := rolepg.NewRoleRepository(db)
	templateRepo := templatepg.NewTemplateRepository(db)
	userRepo := userpg.NewUserRepository(db)
	auditRepo := auditpg.NewAuditRepository(db)

	// services
	resolver := access.NewService(grantRepo, ruleRepo, c, config.Authz.CacheTTL, lg)
	auditService := audit.NewService(auditRepo, bus, lg)
	permissionService := permission.NewService(permissionRepo, resolver, lg)
	userService := user.NewService(userRepo)
	roleService := role.NewService(roleRepo, userService, permissionService, auditService, resolver, lg)
	templateService := template.NewService(templateRepo, permissionService, roleService, auditService, lg)
	scopeRuleService := scoperule.NewService(ruleRepo, permissionService, userService, auditService, resolver, lg)

	handlers := rest.Handlers{
		Access:     access.NewHandler(resolver),
		Permission: permission.NewHandler(permissionService),
		Role:       role.NewHandler(roleService),
		Template:   template.NewHandler(templateService),
		ScopeRule:  scoperule.NewHandler(scopeRuleService),
		Audit:      audit.NewHandler(auditService),
	}

	auth := middleware.NewAuthenticator(config.Security.JWTSecret)
	router := rest.NewRouter(handlers, auth, resolver, lg)

	return &dependencies{
		config: config,
		db:     db,
		cache:  c,
		router: router,
		logger: lg,
	}, nil
}

func initDB(cfg internal.DatabaseConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.Source), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// initCache prefers Redis and falls back to the in-process cache so a cache
// outage never blocks startup.
func initCache(cfg internal.RedisConfig, lg *slog.Logger) cache.Cache {
	if !cfg.Enabled {
		lg.Info("redis disabled, using in-process cache")
		return cache.NewMemoryCache()
	}

	c, err := cache.NewRedisCache(cache.RedisConfig{
		URL:        cfg.URL,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: cfg.MaxRetries,
		PoolSize:   cfg.PoolSize,
	})
	if err != nil {
		lg.Error("redis unavailable, falling back to in-process cache", "error", err)
		return cache.NewMemoryCache()
	}
	return c
}
