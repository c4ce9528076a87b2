package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	appintegration "github.com/crmbridge/gateway/internal/application/integration"
)

func TestWebhookHandler_ProjectEvent(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDeal   int64
		wantSource string
		wantCount  int
	}{
		{
			name:       "deal id on event",
			body:       `{"event_type":"project.updated","reonic_project_id":"proj_1","deal_id":42,"technical_status":"READY_FOR_INSTALL"}`,
			wantDeal:   42,
			wantSource: appintegration.DealIDFromEvent,
			wantCount:  2,
		},
		{
			name:       "deal id from mapping",
			body:       `{"event_type":"project.updated","reonic_project_id":"reonic_proj_demo_001","technical_status":"IN_PROGRESS"}`,
			wantDeal:   5001,
			wantSource: appintegration.DealIDFromMapping,
			wantCount:  2,
		},
		{
			name:      "no technical status",
			body:      `{"event_type":"project.updated","reonic_project_id":"reonic_proj_demo_001"}`,
			wantDeal:  5001,
			wantCount: 0,
		},
		{
			name:      "unresolvable deal",
			body:      `{"event_type":"project.updated","reonic_project_id":"proj_unknown","technical_status":"DONE"}`,
			wantCount: 0,
		},
	}

	gw := newTestGateway(t, dryRunOptions())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := gw.do(t, http.MethodPost, "/reonic_webhook_project_event", tt.body)

			require.Equal(t, http.StatusOK, w.Code, w.Body.String())
			resp := decodeAs[appintegration.WebhookResult](t, w)
			assert.Len(t, resp.Data.ActionsPlanned, tt.wantCount)
			assert.False(t, resp.Data.Executed)
			assert.Empty(t, resp.Data.Results)
			if tt.wantDeal == 0 {
				assert.Nil(t, resp.Data.DealID)
				return
			}
			require.NotNil(t, resp.Data.DealID)
			assert.Equal(t, tt.wantDeal, *resp.Data.DealID)
			if tt.wantSource != "" {
				assert.Equal(t, tt.wantSource, resp.Data.DealIDSource)
			}
		})
	}
}

func TestWebhookHandler_ProjectEventPlannedActions(t *testing.T) {
	gw := newTestGateway(t, dryRunOptions())

	w := gw.do(t, http.MethodPost, "/reonic_webhook_project_event",
		`{"event_type":"project.updated","reonic_project_id":"proj_1","deal_id":42,"technical_status":"READY_FOR_INSTALL"}`)

	require.Equal(t, http.StatusOK, w.Code)
	actions := gjson.GetBytes(w.Body.Bytes(), "data.actions_planned")
	assert.Equal(t, appintegration.ActionPushDealStatus, actions.Get("0.action").String())
	assert.Equal(t, "READY_FOR_INSTALL", actions.Get("0.with.technical_status").String())
	assert.Equal(t, appintegration.ActionPushActivity, actions.Get("1.action").String())
	assert.Equal(t, int64(42), actions.Get("1.with.deal_id").Int())
	assert.True(t, actions.Get("1.with.note").Exists())
}

func TestWebhookHandler_ProjectEventExecute(t *testing.T) {
	opts := dryRunOptions()
	opts.execute = true
	gw := newTestGateway(t, opts)

	w := gw.do(t, http.MethodPost, "/reonic_webhook_project_event",
		`{"event_type":"project.updated","reonic_project_id":"reonic_proj_demo_002","technical_status":"DONE"}`)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeAs[appintegration.WebhookResult](t, w)
	assert.True(t, resp.Data.Executed)
	require.Len(t, resp.Data.Results, 2)
	for _, r := range resp.Data.Results {
		assert.False(t, r.Failed())
		assert.True(t, r.DryRun)
	}
	assert.Contains(t, gjson.GetBytes(w.Body.Bytes(), "data.results.0.request.url").String(), "/deals/5002")
}

func TestWebhookHandler_ProjectEventValidation(t *testing.T) {
	gw := newTestGateway(t, dryRunOptions())

	w := gw.do(t, http.MethodPost, "/reonic_webhook_project_event", `{"event_type":"project.updated"}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeAs[any](t, w)
	require.NotEmpty(t, resp.Error.Fields)
	assert.Equal(t, "reonic_project_id", resp.Error.Fields[0].Field)
}

func TestWebhookHandler_Subscribe(t *testing.T) {
	gw := newTestGateway(t, dryRunOptions())

	t.Run("created", func(t *testing.T) {
		w := gw.do(t, http.MethodPost, "/reonic_webhooks/project.updated/subscribe",
			`{"hook_url":"https://hooks.example.com/reonic"}`)

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		body := w.Body.Bytes()
		assert.Equal(t, "https://hooks.example.com/reonic", gjson.GetBytes(body, "data.request.json_body.hookUrl").String())
		assert.Equal(t, "[REDACTED]", gjson.GetBytes(body, "data.request.headers.X-Authorization").String())
		assert.True(t, gjson.GetBytes(body, "data.response.id").Exists())
	})

	t.Run("hook url required", func(t *testing.T) {
		w := gw.do(t, http.MethodPost, "/reonic_webhooks/project.updated/subscribe", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("hook url must be a url", func(t *testing.T) {
		w := gw.do(t, http.MethodPost, "/reonic_webhooks/project.updated/subscribe", `{"hook_url":"not a url"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
