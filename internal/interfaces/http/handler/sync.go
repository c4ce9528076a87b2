package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	appintegration "github.com/crmbridge/gateway/internal/application/integration"
)

// SyncHandler handles the FieldOps to CRM pushes, the lead import and the
// project identity endpoints
type SyncHandler struct {
	BaseHandler
	syncService *appintegration.Service
}

// NewSyncHandler creates a new SyncHandler
func NewSyncHandler(syncService *appintegration.Service) *SyncHandler {
	return &SyncHandler{
		BaseHandler: BaseHandler{mode: syncService},
		syncService: syncService,
	}
}

// PushDealStatus godoc
// @ID           pushDealStatus
// @Summary      Patch a CRM deal from FieldOps project state
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        request body appintegration.PushDealStatusRequest true "Deal status"
// @Router       /reonic_push_status_to_pipedrive [post]
func (h *SyncHandler) PushDealStatus(c *gin.Context) {
	var req appintegration.PushDealStatusRequest
	if !h.BindJSON(c, &req, false) {
		return
	}
	outcome, err := h.syncService.PushDealStatus(c.Request.Context(), req.ToUpdate())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}

// PushActivity godoc
// @ID           pushActivity
// @Summary      Create a CRM activity for a FieldOps event
// @Tags         sync
// @Router       /reonic_push_activity_to_pipedrive [post]
func (h *SyncHandler) PushActivity(c *gin.Context) {
	var req appintegration.PushActivityRequest
	if !h.BindJSON(c, &req, false) {
		return
	}
	outcome, err := h.syncService.PushActivity(c.Request.Context(), req.ToDraft())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, outcome)
}

// PushProjectUpdate patches the deal and logs an activity. Both calls are
// reported independently in the result.
func (h *SyncHandler) PushProjectUpdate(c *gin.Context) {
	var req appintegration.PushProjectUpdateRequest
	if !h.BindJSON(c, &req, false) {
		return
	}
	result, err := h.syncService.PushProjectUpdate(c.Request.Context(), req.ToUpdate())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// SyncProjects pushes deal patches for a batch of FieldOps projects
func (h *SyncHandler) SyncProjects(c *gin.Context) {
	var req appintegration.SyncProjectsRequest
	if !h.BindJSON(c, &req, true) {
		return
	}
	result, err := h.syncService.SyncProjects(c.Request.Context(), req.Projects)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ImportLeads godoc
// @ID           importLeads
// @Summary      Search CRM leads and bulk import them into FieldOps
// @Tags         sync
// @Param        term   query string false "Search term"  default(solar)
// @Param        limit  query int    false "Page size"    default(2)
// @Param        cursor query string false "Page cursor"
// @Param        match  query string false "Match mode"   default(middle)
// @Router       /pipedrive_push_leads_to_reonic [post]
func (h *SyncHandler) ImportLeads(c *gin.Context) {
	var query appintegration.LeadSearchQuery
	if !h.BindQuery(c, &query) {
		return
	}
	result, err := h.syncService.SearchAndImport(c.Request.Context(), query.ToSearch())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// PushLeadsAsRequests creates one FieldOps request per found lead and writes
// the request id back to the lead
func (h *SyncHandler) PushLeadsAsRequests(c *gin.Context) {
	var query appintegration.LeadSearchQuery
	if !h.BindQuery(c, &query) {
		return
	}
	result, err := h.syncService.PushLeadsAsRequests(c.Request.Context(), query.ToSearch())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Lookup returns the deal linked to a FieldOps project. An unknown project
// is not an error: found is false.
func (h *SyncHandler) Lookup(c *gin.Context) {
	projectID := strings.TrimSpace(c.Param("project_id"))
	if projectID == "" {
		h.BadRequest(c, "project id is required")
		return
	}
	h.Success(c, h.syncService.Lookup(projectID))
}

// UpsertDeal godoc
// @ID           upsertDeal
// @Summary      Create or update the deal linked to a FieldOps project
// @Description  Returns 201 when a deal was created and 200 when the linked deal was patched
// @Tags         sync
// @Router       /upsert_deal_by_reonic_project_id [post]
func (h *SyncHandler) UpsertDeal(c *gin.Context) {
	var req appintegration.UpsertDealRequest
	if !h.BindJSON(c, &req, false) {
		return
	}
	result, err := h.syncService.UpsertDeal(c.Request.Context(), req.ToUpsert())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Created() {
		h.Created(c, result)
		return
	}
	h.Success(c, result)
}
