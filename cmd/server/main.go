package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appintegration "github.com/crmbridge/gateway/internal/application/integration"
	"github.com/crmbridge/gateway/internal/domain/integration"
	"github.com/crmbridge/gateway/internal/infrastructure/cache"
	"github.com/crmbridge/gateway/internal/infrastructure/config"
	"github.com/crmbridge/gateway/internal/infrastructure/logger"
	"github.com/crmbridge/gateway/internal/infrastructure/remote"
	"github.com/crmbridge/gateway/internal/infrastructure/telemetry"
	"github.com/crmbridge/gateway/internal/interfaces/http/handler"
	"github.com/crmbridge/gateway/internal/interfaces/http/middleware"
	"github.com/crmbridge/gateway/internal/interfaces/http/router"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting CRM gateway",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.Bool("dry_run", cfg.Remote.DryRun),
		zap.Bool("webhook_execute", cfg.Webhook.Execute),
	)

	// Tracing
	tp, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    handler.Version,
		Environment:       cfg.App.Env,
		DryRun:            cfg.Remote.DryRun,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	var metrics *telemetry.Metrics
	if cfg.Metrics.Enabled {
		metrics = telemetry.NewMetrics(telemetry.MetricsConfig{Enabled: true, Path: cfg.Metrics.Path})
	}

	// Remote client
	reonic := remote.ReonicConfig{
		APIBase:              cfg.Reonic.APIBase,
		APIKey:               cfg.Reonic.APIKey,
		AuthHeader:           cfg.Reonic.AuthHeader,
		ClientID:             cfg.Reonic.ClientID,
		RequestCreatePath:    cfg.Reonic.RequestCreatePath,
		WebhookSubscribePath: cfg.Reonic.WebhookSubscribePath,
	}
	var callRecorder remote.CallRecorder
	var actionRecorder appintegration.ActionRecorder
	if metrics != nil {
		callRecorder = metrics
		actionRecorder = metrics
	}
	client := remote.NewClient(remote.Config{
		Pipedrive: remote.PipedriveConfig{
			APIToken:       cfg.Pipedrive.APIToken,
			CompanyDomain:  cfg.Pipedrive.CompanyDomain,
			BaseURL:        cfg.Pipedrive.BaseURL,
			RequestIDField: cfg.Pipedrive.RequestIDField,
		},
		Reonic:           reonic,
		Timeout:          cfg.Remote.Timeout,
		DryRun:           cfg.Remote.DryRun,
		MaxResponseBytes: cfg.Remote.MaxResponseBytes,
	}, log, callRecorder)

	for _, system := range []integration.System{integration.SystemPipedrive, integration.SystemReonic} {
		if err := client.CheckCredentials(system); err != nil {
			log.Warn("Remote system not configured; its operations will be rejected",
				zap.String("system", system.String()),
				zap.Error(err),
			)
		}
	}

	// Application services
	mappings := cache.NewInMemoryIdentityStore(integration.DemoMappings())
	syncService := appintegration.NewService(client, mappings, appintegration.ServiceConfig{
		Endpoints:       reonic.Endpoints(integration.DefaultEndpoints()),
		RequestIDField:  cfg.Pipedrive.RequestIDField,
		ExecuteWebhooks: cfg.Webhook.Execute,
	}, log, actionRecorder)

	oauthService := appintegration.NewOAuthService(appintegration.OAuthSettings{
		ClientID:     cfg.OAuth.ClientID,
		ClientSecret: cfg.OAuth.ClientSecret,
		RedirectURL:  cfg.OAuth.RedirectURL,
		AuthURL:      cfg.OAuth.AuthURL,
		TokenURL:     cfg.OAuth.TokenURL,
		Scopes:       cfg.OAuth.Scopes,
	}, cache.NewInMemoryTokenStore(), log)

	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	security := middleware.DefaultSecurityConfig()
	security.HSTSEnabled = cfg.IsProduction()

	engine := router.NewEngine(router.EngineConfig{
		Logger:         log,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORS:           cors,
		Security:       security,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     tp.IsEnabled(),
		},
		Metrics:     metrics,
		MetricsPath: cfg.Metrics.Path,
	}, router.NewHandlers(cfg.App.Name, syncService, oauthService))

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := tp.Shutdown(flushCtx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
