package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appintegration "github.com/crmbridge/gateway/internal/application/integration"
	"github.com/crmbridge/gateway/internal/domain/shared"
	"github.com/crmbridge/gateway/internal/infrastructure/logger"
	"github.com/crmbridge/gateway/internal/infrastructure/telemetry"
	"github.com/crmbridge/gateway/internal/interfaces/http/handler"
	"github.com/crmbridge/gateway/internal/interfaces/http/middleware"
)

// Handlers bundles every HTTP handler of the gateway
type Handlers struct {
	Leads    *handler.LeadHandler
	Sync     *handler.SyncHandler
	Webhooks *handler.WebhookHandler
	OAuth    *handler.OAuthHandler
	System   *handler.SystemHandler
}

// NewHandlers builds the handlers over the application services
func NewHandlers(name string, syncService *appintegration.Service, oauthService *appintegration.OAuthService) Handlers {
	return Handlers{
		Leads:    handler.NewLeadHandler(syncService),
		Sync:     handler.NewSyncHandler(syncService),
		Webhooks: handler.NewWebhookHandler(syncService),
		OAuth:    handler.NewOAuthHandler(oauthService),
		System:   handler.NewSystemHandler(name, syncService),
	}
}

// Groups returns the gateway's route groups. Paths are kept as existing
// callers use them, so most groups mount at the root.
func (h Handlers) Groups() []*DomainGroup {
	leads := NewDomainGroup("leads", "/leads")
	leads.GET("", h.Leads.List)
	leads.POST("", h.Leads.Create)
	leads.GET("/:lead_id", h.Leads.Get)
	leads.PATCH("/:lead_id", h.Leads.Update)
	leads.DELETE("/:lead_id", h.Leads.Delete)

	crm := NewDomainGroup("crm", "")
	crm.POST("/organization", h.Leads.CreateOrganization)
	crm.POST("/products", h.Leads.CreateProduct)
	crm.POST("/products/sync_reonic_products", h.Leads.SyncProducts)

	sync := NewDomainGroup("sync", "")
	sync.POST("/reonic_push_status_to_pipedrive", h.Sync.PushDealStatus)
	sync.POST("/reonic_push_activity_to_pipedrive", h.Sync.PushActivity)
	sync.POST("/reonic_push_project_update", h.Sync.PushProjectUpdate)
	sync.POST("/pipedrive_push_leads_to_reonic", h.Sync.ImportLeads)
	sync.POST("/pipedrive_push_leads_to_reonic_requests", h.Sync.PushLeadsAsRequests)
	sync.POST("/sync/reonic-to-pipedrive/projects", h.Sync.SyncProjects)
	sync.GET("/lookup_deal_id_by_reonic_project/:project_id", h.Sync.Lookup)
	sync.POST("/upsert_deal_by_reonic_project_id", h.Sync.UpsertDeal)

	webhooks := NewDomainGroup("webhooks", "")
	webhooks.POST("/reonic_webhook_project_event", h.Webhooks.ProjectEvent)
	webhooks.POST("/reonic_webhooks/:event/subscribe", h.Webhooks.Subscribe)

	oauth := NewDomainGroup("oauth", "")
	oauth.GET("/oauth/authorize", h.OAuth.Authorize)
	oauth.GET("/callback", h.OAuth.Callback)
	oauth.GET("/tokens", h.OAuth.Tokens)

	system := NewDomainGroup("system", "")
	system.GET("/health", h.System.Health)
	system.GET("/system/info", h.System.GetSystemInfo)

	return []*DomainGroup{leads, crm, sync, webhooks, oauth, system}
}

// EngineConfig holds what the engine's middleware stack needs
type EngineConfig struct {
	Logger         *zap.Logger
	TrustedProxies []string
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	MaxBodySize    int64
	Tracing        middleware.TracingConfig
	// Metrics is optional; without it no metrics route is served
	Metrics     *telemetry.Metrics
	MetricsPath string
}

// NewEngine builds the gin engine with the full middleware stack and every
// gateway route registered
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	middleware.SetupValidator()

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	if len(cfg.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	var recorder middleware.HTTPRecorder
	var skip []string
	if cfg.Metrics != nil {
		recorder = cfg.Metrics
		skip = []string{cfg.MetricsPath}
	}

	// Middleware stack in order:
	// 1. RequestID
	// 2. Logger, then Recovery so panics are logged as 500s
	// 3. Tracing (span per route, request id attribute, error status)
	// 4. HTTP metrics
	// 5. CORS and security headers
	// 6. BodyLimit, on gateway routes only
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(cfg.Tracing))
	if cfg.Tracing.Enabled {
		engine.Use(middleware.TracingAttributeInjector())
		engine.Use(middleware.SpanErrorMarker())
	}
	engine.Use(middleware.HTTPMetricsWithConfig(middleware.HTTPMetricsConfig{Recorder: recorder, SkipPaths: skip}))
	engine.Use(middleware.CORSWithConfig(cfg.CORS))
	engine.Use(middleware.SecureWithConfig(cfg.Security))

	var base handler.BaseHandler
	engine.NoRoute(func(c *gin.Context) {
		base.HandleError(c, shared.ErrNotFound.WithMessage("No route for %s %s", c.Request.Method, c.Request.URL.Path))
	})
	engine.NoMethod(func(c *gin.Context) {
		base.HandleError(c, shared.ErrMethodNotAllowed.WithMessage("Method %s is not allowed on %s", c.Request.Method, c.Request.URL.Path))
	})

	if cfg.Metrics != nil {
		engine.GET(cfg.MetricsPath, gin.WrapH(cfg.Metrics.Handler()))
	}

	r := NewRouter(engine)
	if cfg.MaxBodySize > 0 {
		r.Use(middleware.BodyLimit(cfg.MaxBodySize))
	}
	for _, group := range h.Groups() {
		r.Register(group)
	}
	r.Setup()

	for _, route := range r.Routes() {
		log.Debug("Route registered",
			zap.String("group", route.Group),
			zap.String("method", route.Method),
			zap.String("path", route.Path),
		)
	}

	return engine
}
