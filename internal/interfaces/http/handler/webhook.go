package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	appintegration "github.com/crmbridge/gateway/internal/application/integration"
)

// WebhookHandler handles inbound FieldOps events and webhook subscriptions
type WebhookHandler struct {
	BaseHandler
	syncService *appintegration.Service
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(syncService *appintegration.Service) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: BaseHandler{mode: syncService},
		syncService: syncService,
	}
}

// ProjectEvent godoc
// @ID           reonicProjectEvent
// @Summary      Receive a FieldOps project event
// @Description  Plans a deal status push and an activity when the event carries a technical status
// @Description  and a deal can be resolved. Planned actions run only when webhook execution is enabled.
// @Tags         webhooks
// @Router       /reonic_webhook_project_event [post]
func (h *WebhookHandler) ProjectEvent(c *gin.Context) {
	var req appintegration.ProjectEventRequest
	if !h.BindJSON(c, &req, false) {
		return
	}
	result, err := h.syncService.DispatchWebhook(c.Request.Context(), req.ToEvent())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Subscribe registers a hook URL for a FieldOps event
func (h *WebhookHandler) Subscribe(c *gin.Context) {
	event := strings.TrimSpace(c.Param("event"))
	if event == "" {
		h.BadRequest(c, "event is required")
		return
	}
	var req appintegration.WebhookSubscribeRequest
	if !h.BindJSON(c, &req, false) {
		return
	}
	outcome, err := h.syncService.SubscribeWebhook(c.Request.Context(), event, req.HookURL)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, outcome)
}
