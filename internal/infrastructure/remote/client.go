package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/crmbridge/gateway/internal/domain/integration"
	"github.com/crmbridge/gateway/internal/infrastructure/logger"
)

const (
	// DefaultTimeout bounds every remote call
	DefaultTimeout = 20 * time.Second
	// DefaultMaxResponseBytes caps how much of a response body is read (10MB)
	DefaultMaxResponseBytes = 10 * 1024 * 1024

	tracerName = "github.com/crmbridge/gateway/internal/infrastructure/remote"
)

// Call outcomes reported to the CallRecorder
const (
	OutcomeOK             = "ok"
	OutcomeDryRun         = "dry_run"
	OutcomeConfigError    = "config_error"
	OutcomeRemoteError    = "remote_error"
	OutcomeTransportError = "transport_error"
	OutcomeDecodeError    = "decode_error"
)

// CallRecorder receives one observation per remote call
type CallRecorder interface {
	RecordRemoteCall(system, operation, outcome string, duration time.Duration)
}

// Config holds the remote client configuration
type Config struct {
	Pipedrive        PipedriveConfig
	Reonic           ReonicConfig
	Timeout          time.Duration
	DryRun           bool
	MaxResponseBytes int64
}

// Client implements integration.RemoteCaller over HTTP. In dry-run mode the
// request is prepared exactly as for a live call and answered by a Simulator.
type Client struct {
	config     Config
	httpClient *http.Client
	simulator  *Simulator
	recorder   CallRecorder
	logger     *zap.Logger
	tracer     trace.Tracer
}

// NewClient creates a new remote client. recorder may be nil.
func NewClient(cfg Config, logger *zap.Logger, recorder CallRecorder) *Client {
	cfg.Pipedrive.applyDefaults()
	cfg.Reonic.applyDefaults()
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxResponseBytes <= 0 {
		cfg.MaxResponseBytes = DefaultMaxResponseBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		simulator: NewSimulator(),
		recorder:  recorder,
		logger:    logger.Named("remote"),
		tracer:    otel.Tracer(tracerName),
	}
}

// WithHTTPClient replaces the underlying HTTP client
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// DryRun reports whether calls are simulated
func (c *Client) DryRun() bool {
	return c.config.DryRun
}

// CheckCredentials reports ErrConfiguration when system cannot be called
func (c *Client) CheckCredentials(system integration.System) error {
	switch system {
	case integration.SystemPipedrive:
		if c.config.Pipedrive.APIToken == "" {
			return fmt.Errorf("%w: %v", integration.ErrConfiguration, ErrPipedriveConfigMissingToken)
		}
		return nil
	case integration.SystemReonic:
		if _, err := c.config.Reonic.Authorization(); err != nil {
			return fmt.Errorf("%w: %v", integration.ErrConfiguration, err)
		}
		return nil
	default:
		return integration.NewConfigurationError("unknown remote system %q", system)
	}
}

// Call executes the request, or simulates it in dry-run mode
func (c *Client) Call(ctx context.Context, call integration.RemoteCall) (*integration.RemoteCallResult, error) {
	start := time.Now()
	system := call.Endpoint.System

	if err := c.CheckCredentials(system); err != nil {
		c.record(call, OutcomeConfigError, start)
		return nil, err
	}

	ctx, span := c.tracer.Start(ctx, "remote "+string(call.Operation),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("remote.system", system.String()),
			attribute.String("remote.operation", string(call.Operation)),
			attribute.String("http.request.method", call.Endpoint.Method),
			attribute.Bool("remote.dry_run", c.config.DryRun),
		),
	)
	defer span.End()

	prepared, err := c.prepare(call)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.record(call, OutcomeConfigError, start)
		return nil, err
	}

	var (
		result  *integration.RemoteCallResult
		outcome string
	)
	if c.config.DryRun {
		result, outcome, err = c.simulate(call, prepared)
	} else {
		result, outcome, err = c.do(ctx, call, prepared)
	}

	if result != nil {
		span.SetAttributes(attribute.Int("http.response.status_code", result.Status))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	c.record(call, outcome, start)

	logger.With(ctx, c.logger).Debug("remote call",
		zap.String("system", system.String()),
		zap.String("operation", string(call.Operation)),
		zap.String("method", call.Endpoint.Method),
		zap.String("url", prepared.preview.URL),
		zap.String("outcome", outcome),
		zap.Bool("dry_run", c.config.DryRun),
		zap.Duration("latency", time.Since(start)),
	)

	return result, err
}

// preparedRequest is a RemoteCall resolved to wire form
type preparedRequest struct {
	url     string
	headers map[string]string
	body    []byte
	preview integration.RequestPreview
}

// prepare resolves URL, credentials and body. The preview never carries a
// usable credential.
func (c *Client) prepare(call integration.RemoteCall) (*preparedRequest, error) {
	headers := map[string]string{"Accept": "application/json"}
	query := url.Values{}
	previewQuery := make(map[string]string, len(call.Query)+1)
	for k, v := range call.Query {
		query.Set(k, v)
		previewQuery[k] = v
	}

	var base string
	switch call.Endpoint.System {
	case integration.SystemPipedrive:
		token := c.config.Pipedrive.APIToken
		base = c.config.Pipedrive.URL(call.Endpoint.Version, call.Path)
		if call.Endpoint.Version == integration.APIVersionV1 {
			query.Set(PipedriveTokenParam, token)
			previewQuery[PipedriveTokenParam] = integration.MaskSecret(token)
		} else {
			headers[PipedriveTokenHeader] = token
		}
	case integration.SystemReonic:
		auth, err := c.config.Reonic.Authorization()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", integration.ErrConfiguration, err)
		}
		headers[ReonicAuthHeader] = auth
		base = c.config.Reonic.URL(call.Path)
	default:
		return nil, integration.NewConfigurationError("unknown remote system %q", call.Endpoint.System)
	}

	var body []byte
	if call.Body != nil {
		var err error
		body, err = json.Marshal(call.Body)
		if err != nil {
			return nil, fmt.Errorf("remote: failed to encode request body: %w", err)
		}
		headers["Content-Type"] = "application/json"
	}

	target := base
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	if len(previewQuery) == 0 {
		previewQuery = nil
	}

	return &preparedRequest{
		url:     target,
		headers: headers,
		body:    body,
		preview: integration.RequestPreview{
			Method:   call.Endpoint.Method,
			URL:      base,
			Query:    previewQuery,
			Headers:  RedactHeaders(headers),
			JSONBody: call.Body,
		},
	}, nil
}

// do performs the HTTP exchange
func (c *Client) do(ctx context.Context, call integration.RemoteCall, p *preparedRequest) (*integration.RemoteCallResult, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var reader io.Reader
	if p.body != nil {
		reader = bytes.NewReader(p.body)
	}
	req, err := http.NewRequestWithContext(ctx, call.Endpoint.Method, p.url, reader)
	if err != nil {
		return nil, OutcomeTransportError, fmt.Errorf("remote: failed to create request: %w", err)
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the full URL, which holds the v1 token
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return nil, OutcomeTransportError, fmt.Errorf("%w: %s %s: %v",
			integration.ErrTransport, call.Endpoint.System, call.Operation, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxResponseBytes))
	if err != nil {
		return nil, OutcomeTransportError, fmt.Errorf("%w: reading %s response: %v",
			integration.ErrTransport, call.Endpoint.System, err)
	}

	return c.interpret(call, p, resp.StatusCode, raw, false)
}

// simulate answers the call from the in-process simulator
func (c *Client) simulate(call integration.RemoteCall, p *preparedRequest) (*integration.RemoteCallResult, string, error) {
	status, raw, err := c.simulator.Respond(call)
	if err != nil {
		return nil, OutcomeDecodeError, fmt.Errorf("%w: %v", integration.ErrDecode, err)
	}
	return c.interpret(call, p, status, raw, true)
}

// interpret turns a status and raw body into a result or a typed error
func (c *Client) interpret(call integration.RemoteCall, p *preparedRequest, status int, raw []byte, dryRun bool) (*integration.RemoteCallResult, string, error) {
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return nil, OutcomeRemoteError, &integration.RemoteError{
			System:  call.Endpoint.System,
			Status:  status,
			Message: remoteMessage(raw, status),
			Body:    raw,
			Preview: p.preview,
		}
	}

	body := json.RawMessage("null")
	if len(bytes.TrimSpace(raw)) > 0 {
		if !json.Valid(raw) {
			return nil, OutcomeDecodeError, fmt.Errorf("%w: %s %s returned %d bytes of non-JSON",
				integration.ErrDecode, call.Endpoint.System, call.Operation, len(raw))
		}
		body = json.RawMessage(raw)
	}

	outcome := OutcomeOK
	if dryRun {
		outcome = OutcomeDryRun
	}
	return &integration.RemoteCallResult{
		Status:  status,
		Body:    body,
		Preview: p.preview,
		DryRun:  dryRun,
	}, outcome, nil
}

func (c *Client) record(call integration.RemoteCall, outcome string, start time.Time) {
	if c.recorder == nil {
		return
	}
	c.recorder.RecordRemoteCall(call.Endpoint.System.String(), string(call.Operation), outcome, time.Since(start))
}

// remoteMessage extracts the error text a remote put in its body
func remoteMessage(raw []byte, status int) string {
	if gjson.ValidBytes(raw) {
		for _, path := range []string{"error", "message", "detail", "errors.0.message"} {
			if r := gjson.GetBytes(raw, path); r.Type == gjson.String && r.String() != "" {
				return r.String()
			}
		}
	}
	return http.StatusText(status)
}

// Ensure Client implements RemoteCaller
var _ integration.RemoteCaller = (*Client)(nil)
