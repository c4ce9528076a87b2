package remote

import (
	"errors"
	"strings"

	"github.com/crmbridge/gateway/internal/domain/integration"
)

// ReonicConfig holds configuration for the Reonic (FieldOps) API
type ReonicConfig struct {
	// APIBase is the API root configured in the Reonic integration setup
	APIBase string
	// APIKey is the token part of the basic credential
	APIKey string
	// AuthHeader, when set, is sent verbatim as the X-Authorization value and wins over APIKey
	AuthHeader string
	// ClientID is kept for REST endpoints that need it; request creation does not
	ClientID string
	// RequestCreatePath overrides the request creation endpoint path
	RequestCreatePath string
	// WebhookSubscribePath overrides the webhook subscription path template ({event} placeholder)
	WebhookSubscribePath string
}

const (
	// DefaultReonicAPIBase is used when no API base is configured
	DefaultReonicAPIBase = "http://localhost:8000"
	// ReonicAuthHeader is the header carrying the credential; casing matters to Reonic
	ReonicAuthHeader = "X-Authorization"
	// reonicPlaceholderKey is the value shipped in sample env files
	reonicPlaceholderKey = "YOUR_REONIC_API_KEY_HERE"
)

// Errors for Reonic configuration
var (
	ErrReonicConfigMissingAuth = errors.New("reonic: missing auth (set REONIC_AUTH_HEADER or REONIC_API_KEY)")
)

func (c *ReonicConfig) applyDefaults() {
	if c.APIBase == "" {
		c.APIBase = DefaultReonicAPIBase
	}
	c.APIBase = strings.TrimRight(c.APIBase, "/")
}

// Validate validates the Reonic configuration and fills in defaults
func (c *ReonicConfig) Validate() error {
	c.applyDefaults()
	_, err := c.Authorization()
	return err
}

// Authorization returns the X-Authorization header value
func (c *ReonicConfig) Authorization() (string, error) {
	if c.AuthHeader != "" {
		return c.AuthHeader, nil
	}
	if c.APIKey == "" || c.APIKey == reonicPlaceholderKey {
		return "", ErrReonicConfigMissingAuth
	}
	return "Basic " + c.APIKey, nil
}

// URL builds the absolute URL of path
func (c *ReonicConfig) URL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.APIBase + path
}

// Endpoints applies the configured path overrides to table
func (c ReonicConfig) Endpoints(table integration.Endpoints) integration.Endpoints {
	return table.
		WithPath(integration.OpFieldOpsRequestCreate, c.RequestCreatePath).
		WithPath(integration.OpFieldOpsWebhookSubscribe, c.WebhookSubscribePath)
}
