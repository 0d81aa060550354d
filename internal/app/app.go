// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/hotboat/whatsapp-bot/internal/alert"
	"github.com/hotboat/whatsapp-bot/internal/availability"
	"github.com/hotboat/whatsapp-bot/internal/bot"
	"github.com/hotboat/whatsapp-bot/internal/buildinfo"
	"github.com/hotboat/whatsapp-bot/internal/cart"
	"github.com/hotboat/whatsapp-bot/internal/config"
	"github.com/hotboat/whatsapp-bot/internal/ctxutil"
	"github.com/hotboat/whatsapp-bot/internal/genai"
	"github.com/hotboat/whatsapp-bot/internal/logger"
	"github.com/hotboat/whatsapp-bot/internal/metrics"
	"github.com/hotboat/whatsapp-bot/internal/ratelimit"
	"github.com/hotboat/whatsapp-bot/internal/sentry"
	"github.com/hotboat/whatsapp-bot/internal/session"
	"github.com/hotboat/whatsapp-bot/internal/storage"
	"github.com/hotboat/whatsapp-bot/internal/webhook"
	"github.com/hotboat/whatsapp-bot/internal/whatsapp"
)

const (
	defaultConversationHours = 24
	maxConversationHours     = 24 * 30
	conversationListLimit    = 200
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	db             *storage.DB
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	redis          *redis.Client // nil when REDIS_URL is unset or unreachable
	sessions       *session.Store
	alerts         *alert.Notifier
	responder      *genai.FallbackResponder // nil when no LLM provider is configured
	userLimiter    *ratelimit.KeyedLimiter
	webhookHandler *webhook.Handler
	server         *http.Server
	wg             sync.WaitGroup // Track background goroutines for graceful shutdown
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(logger.Options{
		Level:            cfg.LogLevel,
		Writer:           os.Stdout,
		BetterStackToken: cfg.BetterStackToken,
	})

	log = log.WithField("service", "hotboat-whatsapp-bot")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog calls (storage, genai) go through the same handler chain.
	slog.SetDefault(log.Logger)

	log.WithField("version", buildinfo.String()).Info("Initializing application...")
	if cfg.BetterStackToken != "" {
		log.Info("Better Stack logging enabled")
	}

	release := cfg.SentryRelease
	if release == "" {
		release = buildinfo.Version
	}
	if err := sentry.Initialize(sentry.Config{
		DSN:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		Release:          release,
		SampleRate:       cfg.SentrySampleRate,
		TracesSampleRate: cfg.SentryTracesSampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed, error reporting disabled")
	} else if sentry.IsEnabled() {
		log.WithField("environment", cfg.SentryEnvironment).Info("Sentry error reporting enabled")
	}

	db, err := storage.Open(ctx, storage.Options{
		Driver: cfg.DatabaseDriver,
		Path:   cfg.SQLitePath(),
		URL:    cfg.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("driver", db.Driver()).Info("Database connected")

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	rdb := connectRedis(ctx, cfg.RedisURL, log)

	waClient := whatsapp.NewClient(whatsapp.Config{
		Token:         cfg.WhatsAppToken,
		PhoneNumberID: cfg.WhatsAppPhoneNumberID,
		APIVersion:    cfg.WhatsAppAPIVersion,
		BaseURL:       cfg.WhatsAppBaseURL,
		MaxRetries:    2,
	}, log, m)

	var dedup alert.Deduper
	if rdb != nil {
		dedup = alert.NewRedisDeduper(rdb)
	}
	alerts := alert.NewNotifier(alert.Config{OperatorPhones: cfg.OperatorPhones}, waClient, dedup, log, m)
	if len(cfg.OperatorPhones) == 0 {
		log.Warn("OPERATOR_PHONES not set, captain hand-offs will only be logged")
	}

	sessionCfg := session.DefaultConfig()
	sessionCfg.TTL = cfg.Bot.SessionTTL
	sessionCfg.MaxContacts = cfg.Bot.SessionMaxContacts
	var sessionOpts []session.Option
	if rdb != nil {
		sessionOpts = append(sessionOpts, session.WithMirror(session.NewRedisMirror(rdb)))
	}
	sessions := session.NewStore(sessionCfg, db, log, m, sessionOpts...)

	slots := availability.NewResolver(availability.FromBot(cfg.Bot), db, db, alerts, log, m)
	carts := cart.NewStore(db, log, m)

	var (
		responder *genai.FallbackResponder
		ai        genai.Responder
	)
	if cfg.HasLLMProvider() {
		if responder, err = genai.NewResponder(ctx, genai.FromConfig(cfg), m); err != nil {
			log.WithError(err).Warn("AI responder initialization failed, falling back to the menu")
		}
		if responder != nil {
			ai = responder
		}
	} else {
		log.Info("No LLM provider configured, unmatched messages get the main menu")
	}

	userLimiter := ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
		Name:          "user",
		Burst:         cfg.Bot.UserRateLimitBurst,
		RefillRate:    cfg.Bot.UserRateLimitRefillPerSec,
		CleanupPeriod: config.RateLimiterCleanupInterval,
		Metrics:       m,
	})

	dialogue := bot.NewDialogue(bot.DialogueConfig{
		Carts:   carts,
		Slots:   slots,
		Captain: alerts,
		Leads:   db,
		AI:      ai,
		Logger:  log,
		Metrics: m,
	})
	processor := bot.NewProcessor(bot.ProcessorConfig{
		Dialogue:    dialogue,
		Sessions:    sessions,
		History:     db,
		Leads:       db,
		UserLimiter: userLimiter,
		Logger:      log,
		BotConfig:   &cfg.Bot,
	})

	var hookOpts []webhook.HandlerOption
	if cfg.WhatsAppAppSecret != "" {
		hookOpts = append(hookOpts, webhook.WithAppSecret(cfg.WhatsAppAppSecret))
	} else {
		log.Warn("WHATSAPP_APP_SECRET not set, webhook signatures are not verified")
	}
	webhookHandler := webhook.NewHandler(webhook.HandlerConfig{
		VerifyToken: cfg.WhatsAppVerifyToken,
		Processor:   processor,
		Sender:      waClient,
		Metrics:     m,
		Logger:      log,
	}, hookOpts...)

	app := &Application{
		cfg:            cfg,
		logger:         log,
		db:             db,
		metrics:        m,
		registry:       registry,
		redis:          rdb,
		sessions:       sessions,
		alerts:         alerts,
		responder:      responder,
		userLimiter:    userLimiter,
		webhookHandler: webhookHandler,
	}

	gin.SetMode(gin.ReleaseMode)
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router(),
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.WithField("rules", dialogue.RuleNames()).Info("Initialization complete")
	return app, nil
}

// connectRedis returns a client when url is set and the server answers a
// ping; otherwise the optional features run process-local.
func connectRedis(ctx context.Context, url string, log *logger.Logger) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.WithError(err).Warn("Invalid REDIS_URL, session mirroring and shared alert dedup disabled")
		return nil
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, config.RedisConnect)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.WithError(err).Warn("Redis unreachable, session mirroring and shared alert dedup disabled")
		_ = rdb.Close()
		return nil
	}
	log.WithField("addr", opts.Addr).Info("Redis connected")
	return rdb
}

// router builds the gin engine with every route.
func (a *Application) router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if sentry.IsEnabled() {
		router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/healthz", a.livenessCheck)
	router.HEAD("/healthz", a.livenessCheck)
	router.GET("/ready", a.readinessCheck)
	router.HEAD("/ready", a.readinessCheck)

	router.GET("/webhook", a.webhookHandler.Verify)
	router.POST("/webhook", a.webhookHandler.Handle)

	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	api := router.Group("/api")
	api.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet},
		AllowHeaders:    []string{"Origin", "Content-Type"},
		MaxAge:          12 * time.Hour,
	}))
	api.GET("/conversations", a.listConversations)

	return router
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheck)
	defer cancel()

	if err := a.db.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "database unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": "connected",
		"version":  buildinfo.String(),
		"features": a.getFeatures(),
	})
}

func (a *Application) getFeatures() map[string]bool {
	return map[string]bool{
		"ai_replies":     a.responder != nil,
		"redis":          a.redis != nil,
		"sentry":         sentry.IsEnabled(),
		"operator_alert": a.cfg != nil && len(a.cfg.OperatorPhones) > 0,
	}
}

// listConversations returns contacts active in the last ?hours= hours.
func (a *Application) listConversations(c *gin.Context) {
	hours := defaultConversationHours
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > maxConversationHours {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("hours must be an integer between 1 and %d", maxConversationHours),
			})
			return
		}
		hours = n
	}

	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	convs, err := a.db.RecentConversations(c.Request.Context(), since, conversationListLimit)
	if err != nil {
		a.logger.WithError(err).Error("Failed to list conversations")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
		return
	}
	if convs == nil {
		convs = []storage.ConversationSummary{}
	}

	c.JSON(http.StatusOK, gin.H{
		"hours":         hours,
		"count":         len(convs),
		"conversations": convs,
	})
}

// Run starts the HTTP server and background jobs.
//
// Shutdown order: stop background jobs, stop accepting HTTP requests, wait
// for in-flight webhook events, then close the collaborators they use.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	cancel()

	a.logger.Info("Waiting for background jobs to finish...")
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).
		Info("All background jobs completed")

	return a.shutdown()
}

// startBackgroundJobs starts all background goroutines tracked by WaitGroup.
func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.sweepSessions(ctx)
	})
	a.wg.Go(func() {
		a.updateGaugeMetrics(ctx)
	})
}

// startHTTPServer starts the HTTP server in a goroutine.
func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

// waitForShutdownSignal blocks until SIGINT/SIGTERM is received.
func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

// shutdown performs graceful shutdown of HTTP server and resources.
// It must run after the background jobs have stopped.
func (a *Application) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Waiting for webhook events to complete...")
	if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
	}

	a.logger.Info("Closing resources...")

	a.alerts.Stop()

	if a.responder != nil {
		if err := a.responder.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "ai_responder").Error("Component close error")
		}
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "redis").Error("Component close error")
		}
	}

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}

	if a.userLimiter != nil {
		a.userLimiter.Stop()
	}

	sentry.Flush(2 * time.Second)

	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}

	a.logger.Info("Shutdown complete")
	return nil
}

// sweepSessions drops idle conversations until ctx is done.
func (a *Application) sweepSessions(ctx context.Context) {
	a.logger.Debug("Session sweep job started")
	defer a.logger.Debug("Session sweep job stopped")

	a.sessions.Run(ctx)
}

// updateGaugeMetrics periodically records the session cache size.
func (a *Application) updateGaugeMetrics(ctx context.Context) {
	a.logger.Debug("Gauge metrics job started")
	defer a.logger.Debug("Gauge metrics job stopped")

	ticker := time.NewTicker(config.MetricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Debug("Gauge metrics received shutdown signal")
			return
		case <-ticker.C:
			a.recordGaugeMetrics()
		}
	}
}

func (a *Application) recordGaugeMetrics() {
	if a.metrics == nil {
		return
	}
	a.metrics.SetActiveSessions(a.sessions.Len())
}

// securityHeadersMiddleware adds security headers to responses.
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")
		c.Header("X-Permitted-Cross-Domain-Policies", "none")
		c.Next()
	}
}

// loggingMiddleware logs HTTP requests with status-based log levels:
// 5xx=Error, 4xx=Warn, 404=Debug, 3xx/2xx=Debug.
func loggingMiddleware(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		requestID := c.GetHeader("X-Request-Id")
		if requestID == "" {
			requestID = c.GetHeader("X-Correlation-Id")
		}
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-Id", requestID)
		c.Request = c.Request.WithContext(ctxutil.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()

		entry := log.WithField("http_method", method).
			WithField("http_path", path).
			WithField("http_status", status).
			WithField("duration_ms", duration.Milliseconds()).
			WithField("client_ip", c.ClientIP()).
			WithField("request_id", requestID)

		switch {
		case status >= 500:
			entry.Error("HTTP request failed")
		case status >= 400 && status != 404:
			entry.Warn("HTTP request rejected")
		case status == 404:
			entry.Debug("HTTP request not found")
		default:
			entry.Debug("HTTP request completed")
		}
	}
}
