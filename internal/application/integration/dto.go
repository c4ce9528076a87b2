package integration

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crmbridge/gateway/internal/domain/integration"
)

// ---------------------------------------------------------------------------
// Request DTOs
// ---------------------------------------------------------------------------

// CreateLeadRequest represents a request to create a CRM lead
type CreateLeadRequest struct {
	Title             string           `json:"title" binding:"required"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	Currency          *string          `json:"currency,omitempty" binding:"omitempty,currency"`
	OwnerID           *int64           `json:"owner_id,omitempty" binding:"omitempty,gt=0"`
	LabelIDs          []string         `json:"label_ids,omitempty"`
	PersonID          *int64           `json:"person_id,omitempty" binding:"omitempty,gt=0"`
	OrganizationID    *int64           `json:"organization_id,omitempty" binding:"omitempty,gt=0"`
	ExpectedCloseDate *string          `json:"expected_close_date,omitempty" binding:"omitempty,datetime=2006-01-02"`
	VisibleTo         *string          `json:"visible_to,omitempty"`
	WasSeen           *bool            `json:"was_seen,omitempty"`
}

// ToDraft converts the request into a domain lead draft
func (r CreateLeadRequest) ToDraft() integration.LeadDraft {
	return integration.LeadDraft{
		Title:             r.Title,
		Amount:            r.Amount,
		Currency:          r.Currency,
		OwnerID:           r.OwnerID,
		LabelIDs:          r.LabelIDs,
		PersonID:          r.PersonID,
		OrganizationID:    r.OrganizationID,
		ExpectedCloseDate: r.ExpectedCloseDate,
		VisibleTo:         r.VisibleTo,
		WasSeen:           r.WasSeen,
	}
}

// UpdateLeadRequest represents a partial lead update; every field is optional
type UpdateLeadRequest struct {
	Title             *string          `json:"title,omitempty" binding:"omitempty,min=1"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	Currency          *string          `json:"currency,omitempty" binding:"omitempty,currency"`
	OwnerID           *int64           `json:"owner_id,omitempty" binding:"omitempty,gt=0"`
	LabelIDs          []string         `json:"label_ids,omitempty"`
	PersonID          *int64           `json:"person_id,omitempty" binding:"omitempty,gt=0"`
	OrganizationID    *int64           `json:"organization_id,omitempty" binding:"omitempty,gt=0"`
	ExpectedCloseDate *string          `json:"expected_close_date,omitempty" binding:"omitempty,datetime=2006-01-02"`
	VisibleTo         *string          `json:"visible_to,omitempty"`
	WasSeen           *bool            `json:"was_seen,omitempty"`
}

// ToChanges converts the request into domain lead changes
func (r UpdateLeadRequest) ToChanges() integration.LeadChanges {
	return integration.LeadChanges{
		Title:             r.Title,
		Amount:            r.Amount,
		Currency:          r.Currency,
		OwnerID:           r.OwnerID,
		LabelIDs:          r.LabelIDs,
		PersonID:          r.PersonID,
		OrganizationID:    r.OrganizationID,
		ExpectedCloseDate: r.ExpectedCloseDate,
		VisibleTo:         r.VisibleTo,
		WasSeen:           r.WasSeen,
	}
}

// CreateOrganizationRequest represents a request to create a CRM organization
type CreateOrganizationRequest struct {
	Name      string  `json:"name" binding:"required"`
	OwnerID   *int64  `json:"owner_id,omitempty" binding:"omitempty,gt=0"`
	VisibleTo *string `json:"visible_to,omitempty"`
	Address   *string `json:"address,omitempty"`
}

// ToDraft converts the request into a domain organization draft
func (r CreateOrganizationRequest) ToDraft() integration.OrganizationDraft {
	return integration.OrganizationDraft{
		Name:      r.Name,
		OwnerID:   r.OwnerID,
		VisibleTo: r.VisibleTo,
		Address:   r.Address,
	}
}

// ProductPriceRequest is one price row of a product
type ProductPriceRequest struct {
	Price        decimal.Decimal  `json:"price"`
	Currency     string           `json:"currency" binding:"required,currency"`
	Cost         *decimal.Decimal `json:"cost,omitempty"`
	OverheadCost *decimal.Decimal `json:"overhead_cost,omitempty"`
}

// CreateProductRequest represents a request to create a CRM product
type CreateProductRequest struct {
	Name       string                `json:"name" binding:"required"`
	Code       *string               `json:"code,omitempty"`
	Unit       *string               `json:"unit,omitempty"`
	Tax        *decimal.Decimal      `json:"tax,omitempty"`
	ActiveFlag *bool                 `json:"active_flag,omitempty"`
	Selectable *bool                 `json:"selectable,omitempty"`
	VisibleTo  *string               `json:"visible_to,omitempty"`
	OwnerID    *int64                `json:"owner_id,omitempty" binding:"omitempty,gt=0"`
	Prices     []ProductPriceRequest `json:"prices,omitempty" binding:"omitempty,dive"`
}

// ToDraft converts the request into a domain product draft
func (r CreateProductRequest) ToDraft() integration.ProductDraft {
	draft := integration.ProductDraft{
		Name:       r.Name,
		Code:       r.Code,
		Unit:       r.Unit,
		Tax:        r.Tax,
		ActiveFlag: r.ActiveFlag,
		Selectable: r.Selectable,
		VisibleTo:  r.VisibleTo,
		OwnerID:    r.OwnerID,
	}
	for _, p := range r.Prices {
		draft.Prices = append(draft.Prices, integration.PriceEntry{
			Price:        p.Price,
			Currency:     p.Currency,
			Cost:         p.Cost,
			OverheadCost: p.OverheadCost,
		})
	}
	return draft
}

// SyncProductsRequest optionally names the FieldOps catalogue to push.
// An empty list syncs the demo catalogue.
type SyncProductsRequest struct {
	Products []integration.FieldOpsProduct `json:"products,omitempty" binding:"omitempty,max=100,dive"`
}

// PushDealStatusRequest patches a CRM deal from FieldOps state
type PushDealStatusRequest struct {
	DealID            int64            `json:"deal_id" binding:"required,gt=0"`
	StageID           *int64           `json:"stage_id,omitempty" binding:"omitempty,gt=0"`
	Status            *string          `json:"status,omitempty" binding:"omitempty,oneof=open won lost deleted"`
	Probability       *int             `json:"probability,omitempty" binding:"omitempty,min=0,max=100"`
	Amount            *decimal.Decimal `json:"value_amount,omitempty"`
	Currency          *string          `json:"value_currency,omitempty" binding:"omitempty,currency"`
	ExpectedCloseDate *string          `json:"expected_close_date,omitempty" binding:"omitempty,datetime=2006-01-02"`
	TechnicalStatus   *string          `json:"technical_status,omitempty"`
	ReonicProjectID   *string          `json:"reonic_project_id,omitempty"`
	OwnerID           *int64           `json:"owner_id,omitempty" binding:"omitempty,gt=0"`
}

// ToUpdate converts the request into a domain deal status update
func (r PushDealStatusRequest) ToUpdate() integration.DealStatusUpdate {
	return integration.DealStatusUpdate{
		DealID:            r.DealID,
		StageID:           r.StageID,
		Status:            r.Status,
		Probability:       r.Probability,
		Amount:            r.Amount,
		Currency:          r.Currency,
		ExpectedCloseDate: r.ExpectedCloseDate,
		TechnicalStatus:   r.TechnicalStatus,
		ReonicProjectID:   r.ReonicProjectID,
		OwnerID:           r.OwnerID,
	}
}

// PushActivityRequest creates a CRM activity
type PushActivityRequest struct {
	Subject         string  `json:"subject" binding:"required"`
	Type            *string `json:"type,omitempty"`
	DealID          *int64  `json:"deal_id,omitempty" binding:"omitempty,gt=0"`
	PersonID        *int64  `json:"person_id,omitempty" binding:"omitempty,gt=0"`
	OrganizationID  *int64  `json:"org_id,omitempty" binding:"omitempty,gt=0"`
	DueDate         *string `json:"due_date,omitempty" binding:"omitempty,datetime=2006-01-02"`
	Note            *string `json:"note,omitempty"`
	ReonicProjectID *string `json:"reonic_project_id,omitempty"`
}

// ToDraft converts the request into a domain activity draft
func (r PushActivityRequest) ToDraft() integration.ActivityDraft {
	return integration.ActivityDraft{
		Subject:         r.Subject,
		Type:            r.Type,
		DealID:          r.DealID,
		PersonID:        r.PersonID,
		OrganizationID:  r.OrganizationID,
		DueDate:         r.DueDate,
		Note:            r.Note,
		ReonicProjectID: r.ReonicProjectID,
	}
}

// PushProjectUpdateRequest is the combined FieldOps project update
type PushProjectUpdateRequest struct {
	DealID          int64            `json:"deal_id" binding:"required,gt=0"`
	TechnicalStatus *string          `json:"technical_status,omitempty"`
	ExpectedGoLive  *string          `json:"expected_go_live,omitempty" binding:"omitempty,datetime=2006-01-02"`
	ProgressNote    *string          `json:"progress_note,omitempty"`
	ReonicProjectID *string          `json:"reonic_project_id,omitempty"`
	StageID         *int64           `json:"stage_id,omitempty" binding:"omitempty,gt=0"`
	Amount          *decimal.Decimal `json:"value_amount,omitempty"`
	Currency        *string          `json:"value_currency,omitempty" binding:"omitempty,currency"`
	OwnerID         *int64           `json:"owner_id,omitempty" binding:"omitempty,gt=0"`
}

// ToUpdate converts the request into a domain project update
func (r PushProjectUpdateRequest) ToUpdate() integration.ProjectUpdate {
	return integration.ProjectUpdate{
		DealID:          r.DealID,
		TechnicalStatus: r.TechnicalStatus,
		ExpectedGoLive:  r.ExpectedGoLive,
		ProgressNote:    r.ProgressNote,
		ReonicProjectID: r.ReonicProjectID,
		StageID:         r.StageID,
		Amount:          r.Amount,
		Currency:        r.Currency,
		OwnerID:         r.OwnerID,
	}
}

// LeadSearchQuery holds the query parameters of a lead search
type LeadSearchQuery struct {
	Term   string  `form:"term"`
	Limit  int     `form:"limit" binding:"omitempty,min=1,max=100"`
	Cursor *string `form:"cursor"`
	Match  string  `form:"match" binding:"omitempty,oneof=exact beginning middle"`
}

// Lead search defaults
const (
	DefaultSearchTerm  = "solar"
	DefaultSearchLimit = 2
	DefaultSearchMatch = "middle"
)

// ToSearch converts the query into a domain search, filling in defaults
func (q LeadSearchQuery) ToSearch() integration.LeadSearch {
	s := integration.LeadSearch{Term: q.Term, Limit: q.Limit, Cursor: q.Cursor, Match: q.Match}
	if s.Term == "" {
		s.Term = DefaultSearchTerm
	}
	if s.Limit == 0 {
		s.Limit = DefaultSearchLimit
	}
	if s.Match == "" {
		s.Match = DefaultSearchMatch
	}
	return s
}

// UpsertDealRequest creates or updates the deal linked to a FieldOps project
type UpsertDealRequest struct {
	ReonicProjectID   string           `json:"reonic_project_id" binding:"required"`
	Title             *string          `json:"title,omitempty" binding:"omitempty,min=1"`
	TechnicalStatus   *string          `json:"technical_status,omitempty"`
	StageID           *int64           `json:"stage_id,omitempty" binding:"omitempty,gt=0"`
	Amount            *decimal.Decimal `json:"value_amount,omitempty"`
	Currency          *string          `json:"value_currency,omitempty" binding:"omitempty,currency"`
	OwnerID           *int64           `json:"owner_id,omitempty" binding:"omitempty,gt=0"`
	PersonID          *int64           `json:"person_id,omitempty" binding:"omitempty,gt=0"`
	OrgID             *int64           `json:"org_id,omitempty" binding:"omitempty,gt=0"`
	ExpectedCloseDate *string          `json:"expected_close_date,omitempty" binding:"omitempty,datetime=2006-01-02"`
}

// ToUpsert converts the request into a domain deal upsert
func (r UpsertDealRequest) ToUpsert() integration.DealUpsert {
	return integration.DealUpsert{
		ReonicProjectID:   r.ReonicProjectID,
		Title:             r.Title,
		TechnicalStatus:   r.TechnicalStatus,
		StageID:           r.StageID,
		Amount:            r.Amount,
		Currency:          r.Currency,
		OwnerID:           r.OwnerID,
		PersonID:          r.PersonID,
		OrgID:             r.OrgID,
		ExpectedCloseDate: r.ExpectedCloseDate,
	}
}

// ProjectEventRequest is an inbound FieldOps webhook payload
type ProjectEventRequest struct {
	EventType       string  `json:"event_type" binding:"required"`
	ReonicProjectID string  `json:"reonic_project_id" binding:"required"`
	TechnicalStatus *string `json:"technical_status,omitempty"`
	DealID          *int64  `json:"deal_id,omitempty" binding:"omitempty,gt=0"`
}

// ToEvent converts the request into a domain project event
func (r ProjectEventRequest) ToEvent() integration.ProjectEvent {
	return integration.ProjectEvent{
		EventType:       r.EventType,
		ReonicProjectID: r.ReonicProjectID,
		TechnicalStatus: r.TechnicalStatus,
		DealID:          r.DealID,
	}
}

// SyncProjectsRequest optionally names the FieldOps projects to push.
// An empty list syncs the demo projects.
type SyncProjectsRequest struct {
	Projects []integration.FieldOpsProject `json:"projects,omitempty" binding:"omitempty,max=100,dive"`
}

// WebhookSubscribeRequest subscribes a hook URL to a FieldOps event
type WebhookSubscribeRequest struct {
	HookURL string `json:"hook_url" binding:"required,url"`
}

// ---------------------------------------------------------------------------
// Response DTOs
// ---------------------------------------------------------------------------

// CallError describes why one call of a multi-call operation failed
type CallError struct {
	Kind    string          `json:"kind"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

// CallOutcome is the normalized result of one remote call. Request is
// present in both live and dry-run mode.
type CallOutcome struct {
	Operation   integration.Operation       `json:"operation"`
	Request     *integration.RequestPreview `json:"request,omitempty"`
	StatusCode  int                         `json:"status_code,omitempty"`
	Response    json.RawMessage             `json:"response,omitempty"`
	DryRun      bool                        `json:"dry_run"`
	CreatedFrom string                      `json:"created_from,omitempty"`
	UpdatedFrom string                      `json:"updated_from,omitempty"`
	Error       *CallError                  `json:"error,omitempty"`
}

// Failed reports whether the call did not succeed
func (o *CallOutcome) Failed() bool {
	return o == nil || o.Error != nil
}

// ProjectUpdateResult holds the independent outcomes of a project update
type ProjectUpdateResult struct {
	DealUpdate      *CallOutcome `json:"deal_update"`
	ActivityCreated *CallOutcome `json:"activity_created"`
}

// LeadImportResult is the outcome of a bulk search-and-import
type LeadImportResult struct {
	SearchTerm  string                  `json:"search_term"`
	Search      *CallOutcome            `json:"search"`
	Found       []integration.FoundLead `json:"found"`
	Transformed []integration.Payload   `json:"transformed"`
	SentCount   int                     `json:"sent_to_reonic_count"`
	Import      *CallOutcome            `json:"import"`
	NextCursor  *string                 `json:"next_cursor"`
}

// RequestMapping links a CRM lead to the FieldOps request created from it
type RequestMapping struct {
	PipedriveLeadID any    `json:"pipedrive_lead_id"`
	ReonicRequestID string `json:"reonic_request_id"`
}

// RequestPush is the pair of calls made for one lead
type RequestPush struct {
	PipedriveLeadID any          `json:"pipedrive_lead_id"`
	Create          *CallOutcome `json:"reonic_create"`
	WriteBack       *CallOutcome `json:"pipedrive_writeback,omitempty"`
}

// RequestCreationResult is the outcome of pushing found leads as FieldOps requests
type RequestCreationResult struct {
	SearchTerm    string                  `json:"search_term"`
	Search        *CallOutcome            `json:"search"`
	Found         []integration.FoundLead `json:"found"`
	Pushes        []RequestPush           `json:"pushes"`
	MappingsBuilt []RequestMapping        `json:"mappings_built"`
	NextCursor    *string                 `json:"next_cursor"`
}

// ProductSyncResult is the outcome of a FieldOps product sync
type ProductSyncResult struct {
	ReonicProducts []integration.FieldOpsProduct `json:"reonic_products"`
	Results        []*CallOutcome                `json:"results"`
}

// ProjectSyncResult is the outcome of a FieldOps project batch sync
type ProjectSyncResult struct {
	ReonicProjects []integration.FieldOpsProject `json:"reonic_projects"`
	Results        []*CallOutcome                `json:"results"`
}

// MappingView is the identity mapping state reported by lookups and upserts
type MappingView struct {
	ReonicProjectID string `json:"reonic_project_id"`
	PipedriveDealID *int64 `json:"pipedrive_deal_id"`
	Found           bool   `json:"found"`
	Stored          *bool  `json:"stored,omitempty"`
}

// Upsert modes
const (
	UpsertModeCreate = "create"
	UpsertModeUpdate = "update"
)

// UpsertResult is the outcome of an upsert by project id
type UpsertResult struct {
	Mode    string       `json:"mode"`
	Mapping MappingView  `json:"mapping"`
	Call    *CallOutcome `json:"call"`
}

// Created reports whether the upsert took the create branch
func (r *UpsertResult) Created() bool {
	return r.Mode == UpsertModeCreate
}

// Webhook action names
const (
	ActionPushDealStatus = "push_deal_status"
	ActionPushActivity   = "push_activity"
)

// PlannedAction is one downstream call planned for a webhook event
type PlannedAction struct {
	Action    string                `json:"action"`
	Operation integration.Operation `json:"operation"`
	With      map[string]any        `json:"with"`
}

// Deal id sources reported by the webhook dispatcher
const (
	DealIDFromEvent   = "event"
	DealIDFromMapping = "mapping"
)

// WebhookResult is the outcome of dispatching one project event
type WebhookResult struct {
	ReceivedEvent  integration.ProjectEvent `json:"received_event"`
	DealID         *int64                   `json:"deal_id"`
	DealIDSource   string                   `json:"deal_id_source,omitempty"`
	ActionsPlanned []PlannedAction          `json:"actions_planned"`
	Executed       bool                     `json:"executed"`
	Results        []*CallOutcome           `json:"results,omitempty"`
}

// HealthStatus reports the gateway mode and which systems are configured
type HealthStatus struct {
	Status     string          `json:"status"`
	Mode       string          `json:"mode"`
	Configured map[string]bool `json:"configured"`
	Mappings   int             `json:"mappings"`
}

// OAuthCallbackResult is the outcome of the OAuth redirect
type OAuthCallbackResult struct {
	Code      string            `json:"code"`
	Params    map[string]string `json:"params"`
	Exchanged bool              `json:"exchanged"`
	Token     *TokenView        `json:"token,omitempty"`
}

// TokenView is a stored OAuth token with masked secrets
type TokenView struct {
	Provider     string     `json:"provider"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token,omitempty"`
	TokenType    string     `json:"token_type,omitempty"`
	Expiry       *time.Time `json:"expiry,omitempty"`
}
