package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	appintegration "github.com/crmbridge/gateway/internal/application/integration"
)

// LeadHandler handles the CRM lead, organization and product endpoints
type LeadHandler struct {
	BaseHandler
	syncService *appintegration.Service
}

// NewLeadHandler creates a new LeadHandler
func NewLeadHandler(syncService *appintegration.Service) *LeadHandler {
	return &LeadHandler{
		BaseHandler: BaseHandler{mode: syncService},
		syncService: syncService,
	}
}

// leadID returns the trimmed :lead_id path parameter, writing a 400 when blank
func (h *LeadHandler) leadID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("lead_id"))
	if id == "" {
		h.BadRequest(c, "lead id is required")
		return "", false
	}
	return id, true
}

// List godoc
// @ID           listLeads
// @Summary      List CRM leads
// @Tags         leads
// @Produce      json
// @Router       /leads [get]
func (h *LeadHandler) List(c *gin.Context) {
	outcome, err := h.syncService.ListLeads(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}

// Get godoc
// @ID           getLead
// @Summary      Get a CRM lead by id
// @Tags         leads
// @Produce      json
// @Param        lead_id path string true "Lead ID"
// @Router       /leads/{lead_id} [get]
func (h *LeadHandler) Get(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	outcome, err := h.syncService.GetLead(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}

// Create godoc
// @ID           createLead
// @Summary      Create a CRM lead
// @Tags         leads
// @Accept       json
// @Produce      json
// @Param        request body appintegration.CreateLeadRequest true "Lead"
// @Router       /leads [post]
func (h *LeadHandler) Create(c *gin.Context) {
	var req appintegration.CreateLeadRequest
	if !h.BindJSON(c, &req, false) {
		return
	}
	outcome, err := h.syncService.CreateLead(c.Request.Context(), req.ToDraft())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, outcome)
}

// Update godoc
// @ID           updateLead
// @Summary      Patch a CRM lead with the supplied fields only
// @Tags         leads
// @Router       /leads/{lead_id} [patch]
func (h *LeadHandler) Update(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	var req appintegration.UpdateLeadRequest
	if !h.BindJSON(c, &req, true) {
		return
	}
	outcome, err := h.syncService.UpdateLead(c.Request.Context(), id, req.ToChanges())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}

// Delete removes a CRM lead
func (h *LeadHandler) Delete(c *gin.Context) {
	id, ok := h.leadID(c)
	if !ok {
		return
	}
	outcome, err := h.syncService.DeleteLead(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, outcome)
}

// CreateOrganization creates a CRM organization
func (h *LeadHandler) CreateOrganization(c *gin.Context) {
	var req appintegration.CreateOrganizationRequest
	if !h.BindJSON(c, &req, false) {
		return
	}
	outcome, err := h.syncService.CreateOrganization(c.Request.Context(), req.ToDraft())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, outcome)
}

// CreateProduct creates a CRM product
func (h *LeadHandler) CreateProduct(c *gin.Context) {
	var req appintegration.CreateProductRequest
	if !h.BindJSON(c, &req, false) {
		return
	}
	outcome, err := h.syncService.CreateProduct(c.Request.Context(), req.ToDraft())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, outcome)
}

// SyncProducts pushes the FieldOps catalogue into the CRM product list.
// Individual product failures are reported in the result, so the response is
// 200 even when some of them failed.
func (h *LeadHandler) SyncProducts(c *gin.Context) {
	var req appintegration.SyncProductsRequest
	if !h.BindJSON(c, &req, true) {
		return
	}
	result, err := h.syncService.SyncProducts(c.Request.Context(), req.Products)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
