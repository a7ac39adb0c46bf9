// Package app wires the service together: config, logger, storage, the
// tenant registry and the payment module, plus the HTTP router.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/starspay/server/internal/module/credit"
	"github.com/starspay/server/internal/module/notify"
	"github.com/starspay/server/internal/module/payment"
	"github.com/starspay/server/internal/module/payment/telegram"
	"github.com/starspay/server/internal/module/tenant"
	sharedcache "github.com/starspay/server/internal/shared/cache"
	"github.com/starspay/server/internal/shared/config"
	"github.com/starspay/server/internal/shared/database"
	"github.com/starspay/server/internal/shared/logger"
	"github.com/starspay/server/internal/shared/metrics"
	"github.com/starspay/server/internal/shared/middleware"
)

// App represents the application.
type App struct {
	config *config.Config
	db     *gorm.DB
	redis  redis.UniversalClient
	router *gin.Engine
	logger *zap.Logger

	metrics  *metrics.Metrics
	tenants  *tenant.Registry
	bots     telegram.Factory
	payments *payment.Service
	webhooks *payment.WebhookManager
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	app := &App{
		config:  cfg,
		logger:  log,
		metrics: metrics.New(""),
	}

	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	app.db = db

	// Redis is optional; without it the tenant registry reads the store
	// directly on every lookup.
	if cfg.Redis.Address != "" {
		redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			log.Warn("redis connection failed, running without tenant cache", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}

	app.initModules()
	app.router = app.setupRouter()
	return app, nil
}

// initModules builds the module graph. Everything is constructed here and
// injected explicitly; there are no package-level singletons.
func (a *App) initModules() {
	cfg := a.config

	tenantRepo := tenant.NewRepository(a.db)
	a.tenants = tenant.NewRegistry(tenantRepo, a.redis, cfg.Tenant.CacheTTL, a.logger)

	creditRepo := credit.NewRepository(a.db)
	credits := credit.NewService(creditRepo, a.logger)

	a.bots = telegram.NewFactory(cfg.Telegram.APIEndpoint, cfg.Telegram.RequestTimeout)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify.MainAppURL != "" {
		notifier = notify.NewHTTPNotifier(cfg.Notify.MainAppURL, cfg.Notify.Timeout, a.logger)
	}

	paymentRepo := payment.NewRepository(a.db)
	a.payments = payment.NewService(
		paymentRepo,
		a.tenants,
		credits,
		a.bots,
		notifier,
		a.metrics,
		cfg.Telegram.MaxInvoiceCredits,
		a.logger,
	)
	a.webhooks = payment.NewWebhookManager(a.tenants, a.bots, cfg.Telegram.WebhookBaseURL, a.logger)
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(middleware.Recovery(a.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))

	r.GET("/", a.health)
	r.GET("/health", a.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router := payment.NewRouter(a.payments, a.tenants, a.bots, a.metrics, a.logger)
	handler := payment.NewHandler(a.payments, router, a.webhooks, a.config.Admin.Token, a.logger)
	handler.RegisterRoutes(&r.RouterGroup)

	return r
}

// health reports the liveness of the service and its dependencies.
func (a *App) health(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	checks := gin.H{"database": "ok"}

	if err := database.Ping(ctx, a.db); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if a.redis != nil {
		checks["redis"] = "ok"
		if err := a.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	if active, err := a.tenants.ListActive(ctx); err == nil {
		checks["active_bots"] = len(active)
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// SetupWebhooks runs a webhook registration pass for all active tenants.
// Called once at startup when a public base URL is configured.
func (a *App) SetupWebhooks(ctx context.Context) {
	if a.config.Telegram.WebhookBaseURL == "" {
		a.logger.Info("no webhook base url configured, skipping webhook setup")
		return
	}
	result, err := a.webhooks.SetupAll(ctx)
	if err != nil {
		a.logger.Error("startup webhook setup failed", zap.Error(err))
		return
	}
	a.logger.Info("startup webhook setup finished",
		zap.Int("total", result.Total),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", result.Failed),
	)
}

// Stop releases application resources.
func (a *App) Stop() {
	if a.redis != nil {
		if err := sharedcache.Close(a.redis); err != nil {
			a.logger.Warn("redis close failed", zap.Error(err))
		}
	}
	if err := database.Close(a.db); err != nil {
		a.logger.Warn("database close failed", zap.Error(err))
	}
	_ = a.logger.Sync()
}
