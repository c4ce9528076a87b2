package integration

import (
	"context"
	"encoding/json"

	"github.com/tidwall/gjson"
)

// ---------------------------------------------------------------------------
// RemoteCaller port
// ---------------------------------------------------------------------------

// RemoteCall is a fully built outbound request description
type RemoteCall struct {
	Operation  Operation
	Endpoint   Endpoint
	Path       string            // Endpoint.Path with placeholders expanded
	PathParams map[string]string // values substituted into Path
	Query      map[string]string // caller query parameters, without credentials
	Body       any               // JSON body; nil for GET/DELETE
}

// RequestPreview describes the request as sent, or as it would have been
// sent in dry-run mode. Credentials are always masked.
type RequestPreview struct {
	Method   string            `json:"method"`
	URL      string            `json:"url"`
	Query    map[string]string `json:"query,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	JSONBody any               `json:"json_body,omitempty"`
}

// RemoteCallResult is the successful outcome of a RemoteCall.
// Failures are reported as errors: ErrConfiguration, ErrTransport, ErrDecode
// or *RemoteError.
type RemoteCallResult struct {
	Status  int             `json:"status_code"`
	Body    json.RawMessage `json:"body"`
	Preview RequestPreview  `json:"request"`
	DryRun  bool            `json:"dry_run"`
}

// Get reads a gjson path from the response body
func (r *RemoteCallResult) Get(path string) gjson.Result {
	if r == nil {
		return gjson.Result{}
	}
	return gjson.GetBytes(r.Body, path)
}

// RemoteCaller executes RemoteCalls against the remote systems.
type RemoteCaller interface {
	// CheckCredentials reports ErrConfiguration when system cannot be called.
	// Callers invoke it before Call so no I/O happens without credentials.
	CheckCredentials(system System) error

	// Call executes (or, in dry-run mode, simulates) the request
	Call(ctx context.Context, call RemoteCall) (*RemoteCallResult, error)

	// DryRun reports whether calls are simulated
	DryRun() bool
}

// NewRemoteCall resolves op against endpoints and expands its path
func NewRemoteCall(endpoints Endpoints, op Operation, pathParams map[string]string, query map[string]string, body any) RemoteCall {
	ep := endpoints[op]
	return RemoteCall{
		Operation:  op,
		Endpoint:   ep,
		Path:       ep.Expand(pathParams),
		PathParams: pathParams,
		Query:      query,
		Body:       body,
	}
}
