package main

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/ZanzyTHEbar/brightshare/docs"
	"github.com/ZanzyTHEbar/brightshare/internal/adapters"
	"github.com/ZanzyTHEbar/brightshare/internal/config"
	"github.com/ZanzyTHEbar/brightshare/internal/controller"
	"github.com/ZanzyTHEbar/brightshare/internal/errors"
	"github.com/ZanzyTHEbar/brightshare/internal/frontend"
	"github.com/ZanzyTHEbar/brightshare/internal/middleware"
	"github.com/ZanzyTHEbar/brightshare/internal/monitoring"
	"github.com/ZanzyTHEbar/brightshare/internal/ratelimit"
	"github.com/ZanzyTHEbar/brightshare/internal/resilience"
	"github.com/ZanzyTHEbar/brightshare/internal/security"
	"github.com/ZanzyTHEbar/brightshare/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// app holds every long-lived component the router is built from
type app struct {
	cfg config.Config

	metrics     *monitoring.Metrics
	logger      *monitoring.Logger
	scorer      *adapters.ScoringAdapter
	redis       *ratelimit.RedisClient
	limiter     *ratelimit.RateLimiter
	sessions    *session.Store
	security    *security.SecurityMiddleware
	compression *middleware.CompressionMiddleware
	dashboard   *frontend.DashboardHandler
	staticFS    fs.FS

	router *gin.Engine
}

// submissionObserver feeds one session's submissions to metrics and the log
type submissionObserver struct {
	sessionID string
	metrics   *monitoring.Metrics
	logger    *monitoring.Logger
}

func (o submissionObserver) ObserveSubmission(outcome string, duration time.Duration) {
	o.metrics.ObserveSubmission(outcome, duration)
	o.logger.SubmissionLogger(o.sessionID, outcome, duration)
}

func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		metrics: monitoring.NewMetrics(),
		logger:  monitoring.NewLogger(),
	}

	a.scorer = adapters.NewScoringAdapter(adapters.ScoringConfig{
		Endpoint:         cfg.Scoring.Endpoint,
		Timeout:          cfg.Scoring.Timeout,
		MaxIdleConns:     cfg.Scoring.MaxIdleConns,
		MaxActiveConns:   cfg.Scoring.MaxActiveConns,
		FailureThreshold: cfg.Scoring.FailureThreshold,
		RecoveryTimeout:  cfg.Scoring.RecoveryTimeout,
		OnBreakerChange: func(name string, from, to resilience.CircuitBreakerState) {
			a.metrics.RecordBreakerTransition(name, from, to)
			a.logger.SystemLogger("circuit_breaker_"+to.String(), fmt.Sprintf("%s: %s -> %s", name, from, to))
		},
	})

	redisClient, err := ratelimit.NewRedisClient(ctx, ratelimit.RedisConfig{
		Addr:     cfg.RateLimit.RedisAddr,
		Password: cfg.RateLimit.RedisPassword,
		DB:       cfg.RateLimit.RedisDB,
	})
	if err != nil {
		// the limiter degrades to local buckets
		slog.Warn("Redis unavailable, continuing without it", "error", err)
	}
	a.redis = redisClient
	a.limiter = ratelimit.NewRateLimiter(redisClient, ratelimit.Config{
		PerMinute:       cfg.RateLimit.PerMinute,
		BurstMultiplier: cfg.RateLimit.BurstMultiplier,
	}, a.metrics)

	secCfg := security.DefaultSecurityConfig()
	secCfg.MaxInputLength = cfg.Server.MaxInputLength
	secCfg.EnableHSTS = cfg.Server.SecureCookies
	if cfg.Scoring.Timeout > 0 {
		// let the scoring deadline fire before the request deadline
		secCfg.RequestTimeout = cfg.Scoring.Timeout + 15*time.Second
	}
	a.security = security.NewSecurityMiddleware(secCfg)

	a.sessions = session.NewStore(cfg.Server.SessionTTL, func(sessionID string, notifier controller.Notifier) *controller.Controller {
		return controller.New(a.scorer, controller.Options{
			Notifier:       notifier,
			Observer:       submissionObserver{sessionID: sessionID, metrics: a.metrics, logger: a.logger},
			MaxInputLength: cfg.Server.MaxInputLength,
		})
	})

	tmpl, staticFS, err := loadAssets()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.staticFS = staticFS
	a.dashboard = frontend.NewDashboardHandler(tmpl, a.security, cfg.Server.DefaultLocale)
	a.compression = middleware.NewCompressionMiddleware(middleware.DefaultCompressionConfig())

	a.router = a.setupRouter()
	return a, nil
}

func loadAssets() (*template.Template, fs.FS, error) {
	templateFS, err := frontend.GetTemplateFS()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open templates: %w", err)
	}
	tmpl, err := frontend.LoadDashboardTemplate(templateFS)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load dashboard template: %w", err)
	}
	staticFS, err := frontend.GetStaticFS()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open static assets: %w", err)
	}
	return tmpl, staticFS, nil
}

// setupRouter wires middleware and routes. The dashboard and the JSON API share
// the session cookie, so both act on the same dashboard instance.
func (a *app) setupRouter() *gin.Engine {
	r := gin.New()

	r.Use(monitoring.MonitoringMiddleware(a.metrics, a.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(a.logger, a.security.Config().MaxBodyBytes))
	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())
	r.Use(a.compression.Handler())

	r.Use(security.SecurityHeadersMiddleware(a.cfg.Server.SecureCookies))
	r.Use(a.security.RequestTimeout)
	r.Use(a.security.LimitBody)
	r.Use(a.security.ValidateContentType)

	sessions := a.sessions.Middleware(a.cfg.Server.SecureCookies)

	page := r.Group("/")
	page.Use(security.CSPMiddleware(""), sessions)
	{
		page.GET("/", a.dashboard.Index)
		page.POST("/submit", a.limiter.SubmitRateLimitMiddleware(a.dashboard.RateLimited), a.dashboard.Submit)
		page.POST("/disclosure/:node", a.dashboard.ToggleDisclosure)
	}
	r.GET("/static/*filepath", frontend.NewStaticHandler(a.staticFS))

	api := r.Group("/api")
	if len(a.cfg.Server.AllowedOrigins) > 0 {
		api.Use(cors.New(cors.Config{
			AllowOrigins:     a.cfg.Server.AllowedOrigins,
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
			ExposeHeaders:    []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	api.Use(sessions)
	{
		api.POST("/analyze", a.limiter.SubmitRateLimitMiddleware(nil), a.handleAnalyze)
		api.GET("/state", a.handleState)
		api.POST("/disclosure/:node", a.handleToggleDisclosure)
		api.GET("/view", a.handleView)
	}

	r.GET("/health", a.handleHealth)
	r.GET("/health/services", a.handleServiceHealth)
	r.GET("/metrics", func(c *gin.Context) {
		c.JSON(http.StatusOK, a.metrics.GetStats())
	})
	r.GET("/metrics/prometheus", gin.WrapH(a.metrics.PrometheusHandler()))

	if a.cfg.Server.EnableSwagger {
		docs.SwaggerInfo.BasePath = "/"
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

// Close releases background goroutines and pooled connections
func (a *app) Close() {
	if a.sessions != nil {
		a.sessions.Close()
	}
	if a.limiter != nil {
		a.limiter.Close()
	}
	errors.SafeClose(a.scorer, "scoring adapter")
	if a.redis != nil {
		errors.SafeClose(a.redis, "redis client")
	}
}
