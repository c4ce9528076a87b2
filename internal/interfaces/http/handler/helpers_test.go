package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appintegration "github.com/crmbridge/gateway/internal/application/integration"
	"github.com/crmbridge/gateway/internal/domain/integration"
	"github.com/crmbridge/gateway/internal/infrastructure/cache"
	"github.com/crmbridge/gateway/internal/infrastructure/remote"
	"github.com/crmbridge/gateway/internal/interfaces/http/middleware"
)

// testGateway is a gin engine wired to real services over the dry-run remote
type testGateway struct {
	engine   *gin.Engine
	service  *appintegration.Service
	mappings *cache.InMemoryIdentityStore
}

type gatewayOptions struct {
	pipedriveToken string
	reonicKey      string
	dryRun         bool
	pipedriveURL   string
	reonicURL      string
	execute        bool
}

func dryRunOptions() gatewayOptions {
	return gatewayOptions{
		pipedriveToken: "abcd1234efgh5678",
		reonicKey:      "reonic-key",
		dryRun:         true,
	}
}

func newTestGateway(t *testing.T, opts gatewayOptions) *testGateway {
	t.Helper()

	client := remote.NewClient(remote.Config{
		Pipedrive: remote.PipedriveConfig{APIToken: opts.pipedriveToken, BaseURL: opts.pipedriveURL},
		Reonic:    remote.ReonicConfig{APIKey: opts.reonicKey, APIBase: opts.reonicURL},
		DryRun:    opts.dryRun,
	}, zap.NewNop(), nil)
	mappings := cache.NewInMemoryIdentityStore(integration.DemoMappings())
	svc := appintegration.NewService(client, mappings, appintegration.ServiceConfig{
		RequestIDField:  "cf_reonic_request_id",
		ExecuteWebhooks: opts.execute,
	}, zap.NewNop(), nil)

	leads := NewLeadHandler(svc)
	syncs := NewSyncHandler(svc)
	hooks := NewWebhookHandler(svc)

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.GET("/leads", leads.List)
	engine.GET("/leads/:lead_id", leads.Get)
	engine.POST("/leads", leads.Create)
	engine.PATCH("/leads/:lead_id", leads.Update)
	engine.DELETE("/leads/:lead_id", leads.Delete)
	engine.POST("/organization", leads.CreateOrganization)
	engine.POST("/products", leads.CreateProduct)
	engine.POST("/products/sync_reonic_products", leads.SyncProducts)
	engine.POST("/reonic_push_status_to_pipedrive", syncs.PushDealStatus)
	engine.POST("/reonic_push_activity_to_pipedrive", syncs.PushActivity)
	engine.POST("/reonic_push_project_update", syncs.PushProjectUpdate)
	engine.POST("/pipedrive_push_leads_to_reonic", syncs.ImportLeads)
	engine.POST("/pipedrive_push_leads_to_reonic_requests", syncs.PushLeadsAsRequests)
	engine.POST("/sync/reonic-to-pipedrive/projects", syncs.SyncProjects)
	engine.GET("/lookup_deal_id_by_reonic_project/:project_id", syncs.Lookup)
	engine.POST("/upsert_deal_by_reonic_project_id", syncs.UpsertDeal)
	engine.POST("/reonic_webhook_project_event", hooks.ProjectEvent)
	engine.POST("/reonic_webhooks/:event/subscribe", hooks.Subscribe)

	return &testGateway{engine: engine, service: svc, mappings: mappings}
}

func (g *testGateway) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	g.engine.ServeHTTP(w, req)
	return w
}

func decodeAs[T any](t *testing.T, w *httptest.ResponseRecorder) APIResponse[T] {
	t.Helper()
	var resp APIResponse[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// capturedCall is one request seen by a fake remote
type capturedCall struct {
	Method string
	Path   string
	Query  string
	Body   map[string]any
}

// fakeRemote answers every request with the given status and body and keeps
// what it received
func fakeRemote(t *testing.T, status int, body string) (*httptest.Server, *[]capturedCall) {
	t.Helper()
	calls := &[]capturedCall{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := capturedCall{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery}
		raw, _ := io.ReadAll(r.Body)
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &call.Body)
		}
		*calls = append(*calls, call)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, calls
}
