package integration

import (
	"net/http"
	"strings"
)

// ---------------------------------------------------------------------------
// System identifies a remote the gateway talks to
// ---------------------------------------------------------------------------

// System identifies a remote system
type System string

const (
	// SystemPipedrive is the CRM
	SystemPipedrive System = "pipedrive"
	// SystemReonic is the field-operations platform
	SystemReonic System = "reonic"
)

// IsValid returns true if the system is known
func (s System) IsValid() bool {
	switch s {
	case SystemPipedrive, SystemReonic:
		return true
	default:
		return false
	}
}

// String returns the string representation of System
func (s System) String() string {
	return string(s)
}

// DisplayName returns a human-readable name for the system
func (s System) DisplayName() string {
	switch s {
	case SystemPipedrive:
		return "Pipedrive (CRM)"
	case SystemReonic:
		return "Reonic (FieldOps)"
	default:
		return string(s)
	}
}

// ---------------------------------------------------------------------------
// APIVersion selects URL layout and credential placement on the CRM
// ---------------------------------------------------------------------------

// APIVersion selects how a CRM URL is addressed and authenticated.
//   - v1: {base}/v1{path}, token in the api_token query parameter
//   - v2: {base}/api/v2{path}, token in the x-api-token header
//
// FieldOps calls carry APIVersionNone.
type APIVersion string

const (
	APIVersionNone APIVersion = ""
	APIVersionV1   APIVersion = "v1"
	APIVersionV2   APIVersion = "v2"
)

// PathPrefix returns the URL segment placed between the base URL and the path
func (v APIVersion) PathPrefix() string {
	switch v {
	case APIVersionV1:
		return "/v1"
	case APIVersionV2:
		return "/api/v2"
	default:
		return ""
	}
}

// ---------------------------------------------------------------------------
// Operation / Endpoint table
// ---------------------------------------------------------------------------

// Operation names one outbound call kind. It keys the endpoint table and
// labels metrics and logs.
type Operation string

const (
	OpLeadList                 Operation = "lead.list"
	OpLeadGet                  Operation = "lead.get"
	OpLeadCreate               Operation = "lead.create"
	OpLeadUpdate               Operation = "lead.update"
	OpLeadDelete               Operation = "lead.delete"
	OpLeadSearch               Operation = "lead.search"
	OpOrganizationCreate       Operation = "organization.create"
	OpProductCreate            Operation = "product.create"
	OpDealCreate               Operation = "deal.create"
	OpDealUpdate               Operation = "deal.update"
	OpActivityCreate           Operation = "activity.create"
	OpFieldOpsLeadImport       Operation = "fieldops.lead_import"
	OpFieldOpsRequestCreate    Operation = "fieldops.request_create"
	OpFieldOpsWebhookSubscribe Operation = "fieldops.webhook_subscribe"
)

// Endpoint describes where an Operation is sent.
// Path may contain {name} placeholders filled by Endpoint.Expand.
type Endpoint struct {
	System  System
	Version APIVersion
	Method  string
	Path    string
}

// Expand substitutes {name} placeholders in the path.
func (e Endpoint) Expand(params map[string]string) string {
	path := e.Path
	for k, v := range params {
		path = strings.ReplaceAll(path, "{"+k+"}", v)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path
}

// Endpoints maps every Operation to its remote endpoint.
type Endpoints map[Operation]Endpoint

// DefaultEndpoints returns the endpoint table used by the gateway.
// Leads and organizations are addressed on CRM v1, everything else on v2.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		OpLeadList:                 {SystemPipedrive, APIVersionV1, http.MethodGet, "/leads"},
		OpLeadGet:                  {SystemPipedrive, APIVersionV1, http.MethodGet, "/leads/{id}"},
		OpLeadCreate:               {SystemPipedrive, APIVersionV1, http.MethodPost, "/leads"},
		OpLeadUpdate:               {SystemPipedrive, APIVersionV1, http.MethodPatch, "/leads/{id}"},
		OpLeadDelete:               {SystemPipedrive, APIVersionV1, http.MethodDelete, "/leads/{id}"},
		OpLeadSearch:               {SystemPipedrive, APIVersionV2, http.MethodGet, "/leads/search"},
		OpOrganizationCreate:       {SystemPipedrive, APIVersionV1, http.MethodPost, "/organizations"},
		OpProductCreate:            {SystemPipedrive, APIVersionV2, http.MethodPost, "/products"},
		OpDealCreate:               {SystemPipedrive, APIVersionV2, http.MethodPost, "/deals"},
		OpDealUpdate:               {SystemPipedrive, APIVersionV2, http.MethodPatch, "/deals/{id}"},
		OpActivityCreate:           {SystemPipedrive, APIVersionV2, http.MethodPost, "/activities"},
		OpFieldOpsLeadImport:       {SystemReonic, APIVersionNone, http.MethodPost, "/leads/import"},
		OpFieldOpsRequestCreate:    {SystemReonic, APIVersionNone, http.MethodPost, "/integrations/zapier/h360/requests"},
		OpFieldOpsWebhookSubscribe: {SystemReonic, APIVersionNone, http.MethodPost, "/integrations/zapier/webhooks/{event}/subscribe"},
	}
}

// WithPath returns a copy of the table with the path of op replaced.
// An empty path leaves the table unchanged.
func (e Endpoints) WithPath(op Operation, path string) Endpoints {
	if path == "" {
		return e
	}
	out := make(Endpoints, len(e))
	for k, v := range e {
		out[k] = v
	}
	ep := out[op]
	ep.Path = path
	out[op] = ep
	return out
}
