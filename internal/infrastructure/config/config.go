package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Log       LogConfig
	HTTP      HTTPConfig
	Pipedrive PipedriveConfig
	Reonic    ReonicConfig
	Remote    RemoteConfig
	OAuth     OAuthConfig
	Webhook   WebhookConfig
	Telemetry TelemetryConfig
	Metrics   MetricsConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	ShutdownTimeout  time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// PipedriveConfig holds CRM connection settings
type PipedriveConfig struct {
	APIToken       string
	CompanyDomain  string
	BaseURL        string // derived from CompanyDomain when empty
	RequestIDField string // lead custom field that receives the FieldOps request id
}

// ReonicConfig holds FieldOps connection settings
type ReonicConfig struct {
	APIBase              string
	APIKey               string
	AuthHeader           string // full X-Authorization value, wins over APIKey
	ClientID             string
	RequestCreatePath    string
	WebhookSubscribePath string // {event} placeholder
}

// RemoteConfig holds outbound call settings
type RemoteConfig struct {
	Timeout          time.Duration
	DryRun           bool
	MaxResponseBytes int64
}

// OAuthConfig holds the CRM OAuth app credentials
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	Scopes       []string
}

// Configured reports whether the code exchange can be performed
func (o OAuthConfig) Configured() bool {
	return o.ClientID != "" && o.ClientSecret != ""
}

// WebhookConfig controls the FieldOps webhook dispatcher
type WebhookConfig struct {
	Execute bool // run planned actions instead of only returning them
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
}

// MetricsConfig holds Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// legacyEnv maps config keys to the unprefixed variable names used by
// existing deployments. GATEWAY_-prefixed names still win.
var legacyEnv = map[string]string{
	"pipedrive.api_token":           "PIPEDRIVE_API_TOKEN",
	"pipedrive.company_domain":      "PIPEDRIVE_COMPANY_DOMAIN",
	"pipedrive.base_url":            "PIPEDRIVE_BASE_URL",
	"pipedrive.request_id_field":    "CF_REONIC_REQUEST_ID_KEY",
	"reonic.api_base":               "REONIC_API_BASE",
	"reonic.api_key":                "REONIC_API_KEY",
	"reonic.auth_header":            "REONIC_AUTH_HEADER",
	"reonic.client_id":              "REONIC_CLIENT_ID",
	"reonic.request_create_path":    "REONIC_REQUEST_CREATE_PATH",
	"reonic.webhook_subscribe_path": "REONIC_WEBHOOK_SUBSCRIBE_PATH_TMPL",
	"oauth.client_id":               "PIPEDRIVE_CLIENT_ID",
	"oauth.client_secret":           "PIPEDRIVE_CLIENT_SECRET",
	"oauth.redirect_url":            "PIPEDRIVE_REDIRECT_URL",
}

// EnvPrefix prefixes every environment override
const EnvPrefix = "GATEWAY"

// Load loads configuration from .env, config.toml and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with GATEWAY_ prefix (e.g., GATEWAY_REMOTE_DRY_RUN)
// 2. Unprefixed legacy variables (e.g., PIPEDRIVE_API_TOKEN)
// 3. config.toml
// 4. Built-in defaults
//
// Variables from .env never override variables already set in the process.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./gateway")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", key, err)
		}
	}

	// booleans whose default is true cannot be told apart from "unset" later
	v.SetDefault("remote.dry_run", true)
	v.SetDefault("metrics.enabled", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Pipedrive: PipedriveConfig{
			APIToken:       v.GetString("pipedrive.api_token"),
			CompanyDomain:  v.GetString("pipedrive.company_domain"),
			BaseURL:        v.GetString("pipedrive.base_url"),
			RequestIDField: v.GetString("pipedrive.request_id_field"),
		},
		Reonic: ReonicConfig{
			APIBase:              v.GetString("reonic.api_base"),
			APIKey:               v.GetString("reonic.api_key"),
			AuthHeader:           v.GetString("reonic.auth_header"),
			ClientID:             v.GetString("reonic.client_id"),
			RequestCreatePath:    v.GetString("reonic.request_create_path"),
			WebhookSubscribePath: v.GetString("reonic.webhook_subscribe_path"),
		},
		Remote: RemoteConfig{
			Timeout:          v.GetDuration("remote.timeout"),
			DryRun:           v.GetBool("remote.dry_run"),
			MaxResponseBytes: v.GetInt64("remote.max_response_bytes"),
		},
		OAuth: OAuthConfig{
			ClientID:     v.GetString("oauth.client_id"),
			ClientSecret: v.GetString("oauth.client_secret"),
			RedirectURL:  v.GetString("oauth.redirect_url"),
			AuthURL:      v.GetString("oauth.auth_url"),
			TokenURL:     v.GetString("oauth.token_url"),
			Scopes:       v.GetStringSlice("oauth.scopes"),
		},
		Webhook: WebhookConfig{
			Execute: v.GetBool("webhook.execute"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("metrics.enabled"),
			Path:    v.GetString("metrics.path"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "crm-gateway"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8000"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	// must outlast the remote timeout plus a second remote call on fan-outs
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 60 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 30 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 2 << 20 // 2MB
	}
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "X-Request-ID"}
	}
	if cfg.Pipedrive.CompanyDomain == "" {
		cfg.Pipedrive.CompanyDomain = "yourcompany"
	}
	if cfg.Pipedrive.BaseURL == "" {
		cfg.Pipedrive.BaseURL = fmt.Sprintf("https://%s.pipedrive.com", cfg.Pipedrive.CompanyDomain)
	}
	if cfg.Pipedrive.RequestIDField == "" {
		cfg.Pipedrive.RequestIDField = "cf_reonic_request_id"
	}
	if cfg.Reonic.APIBase == "" {
		cfg.Reonic.APIBase = "http://localhost:8000"
	}
	if cfg.Remote.Timeout == 0 {
		cfg.Remote.Timeout = 20 * time.Second
	}
	if cfg.Remote.MaxResponseBytes == 0 {
		cfg.Remote.MaxResponseBytes = 10 << 20 // 10MB
	}
	if cfg.OAuth.AuthURL == "" {
		cfg.OAuth.AuthURL = "https://oauth.pipedrive.com/oauth/authorize"
	}
	if cfg.OAuth.TokenURL == "" {
		cfg.OAuth.TokenURL = "https://oauth.pipedrive.com/oauth/token"
	}
	if cfg.OAuth.RedirectURL == "" {
		cfg.OAuth.RedirectURL = "http://localhost:" + cfg.App.Port + "/callback"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Remote.Timeout < 0 {
		return fmt.Errorf("remote.timeout cannot be negative")
	}
	if c.Remote.MaxResponseBytes < 0 {
		return fmt.Errorf("remote.max_response_bytes cannot be negative")
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", c.Metrics.Path)
	}

	if c.App.Env == "production" {
		if !c.Remote.DryRun && c.Pipedrive.APIToken == "" {
			return fmt.Errorf("pipedrive.api_token is required in production when remote.dry_run is false")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// IsProduction reports whether the app runs in production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
