package remote

import (
	"errors"
	"fmt"
	"strings"

	"github.com/crmbridge/gateway/internal/domain/integration"
)

// PipedriveConfig holds configuration for the Pipedrive (CRM) API
type PipedriveConfig struct {
	// APIToken is the personal API token (Settings > Personal preferences > API)
	APIToken string
	// CompanyDomain is the account subdomain, e.g. "acme" for https://acme.pipedrive.com
	CompanyDomain string
	// BaseURL is the API root without version suffix. Derived from CompanyDomain when empty.
	BaseURL string
	// RequestIDField is the lead custom field key that stores the FieldOps request id
	RequestIDField string
}

const (
	// DefaultPipedriveCompanyDomain is used when no company domain is configured
	DefaultPipedriveCompanyDomain = "yourcompany"
	// DefaultRequestIDField is the default custom field key for write-backs
	DefaultRequestIDField = "cf_reonic_request_id"
)

// Errors for Pipedrive configuration
var (
	ErrPipedriveConfigMissingToken = errors.New("pipedrive: api token is required")
)

func (c *PipedriveConfig) applyDefaults() {
	if c.CompanyDomain == "" {
		c.CompanyDomain = DefaultPipedriveCompanyDomain
	}
	if c.BaseURL == "" {
		c.BaseURL = fmt.Sprintf("https://%s.pipedrive.com", c.CompanyDomain)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.RequestIDField == "" {
		c.RequestIDField = DefaultRequestIDField
	}
}

// Validate validates the Pipedrive configuration and fills in defaults
func (c *PipedriveConfig) Validate() error {
	c.applyDefaults()
	if c.APIToken == "" {
		return ErrPipedriveConfigMissingToken
	}
	return nil
}

// URL builds the absolute URL of path for the given API version.
//
//	v1: {base}/v1{path}
//	v2: {base}/api/v2{path}
func (c *PipedriveConfig) URL(version integration.APIVersion, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.BaseURL + version.PathPrefix() + path
}
