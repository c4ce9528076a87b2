package integration

import (
	"github.com/shopspring/decimal"
)

// Records are transient: each one lives for a single inbound request.
// Optional fields are pointers so that "absent" and "zero" stay distinct.

// LeadDraft is a lead to be created in the CRM
type LeadDraft struct {
	Title             string
	Amount            *decimal.Decimal
	Currency          *string
	OwnerID           *int64
	LabelIDs          []string
	PersonID          *int64
	OrganizationID    *int64
	ExpectedCloseDate *string // YYYY-MM-DD
	VisibleTo         *string
	WasSeen           *bool
}

// LeadChanges is a partial lead update; every field is optional
type LeadChanges struct {
	Title             *string
	Amount            *decimal.Decimal
	Currency          *string
	OwnerID           *int64
	LabelIDs          []string
	PersonID          *int64
	OrganizationID    *int64
	ExpectedCloseDate *string
	VisibleTo         *string
	WasSeen           *bool
}

// DealStatusUpdate patches an existing CRM deal from FieldOps state
type DealStatusUpdate struct {
	DealID            int64
	StageID           *int64
	Status            *string
	Probability       *int
	Amount            *decimal.Decimal
	Currency          *string
	ExpectedCloseDate *string
	TechnicalStatus   *string
	ReonicProjectID   *string
	OwnerID           *int64
}

// ActivityDraft is a CRM activity. Type defaults to "task".
type ActivityDraft struct {
	Subject         string
	Type            *string
	DealID          *int64
	PersonID        *int64
	OrganizationID  *int64
	DueDate         *string
	Note            *string
	ReonicProjectID *string
}

// ProjectUpdate is the combined FieldOps project update that fans out into
// a deal patch and an activity.
type ProjectUpdate struct {
	DealID          int64
	TechnicalStatus *string
	ExpectedGoLive  *string
	ProgressNote    *string
	ReonicProjectID *string
	StageID         *int64
	Amount          *decimal.Decimal
	Currency        *string
	OwnerID         *int64
}

// DealUpsert creates or updates the deal linked to a FieldOps project
type DealUpsert struct {
	ReonicProjectID   string
	Title             *string
	TechnicalStatus   *string
	StageID           *int64
	Amount            *decimal.Decimal
	Currency          *string
	OwnerID           *int64
	PersonID          *int64
	OrgID             *int64
	ExpectedCloseDate *string
}

// OrganizationDraft is an organization to be created in the CRM
type OrganizationDraft struct {
	Name      string
	OwnerID   *int64
	VisibleTo *string
	Address   *string
}

// PriceEntry is one price row of a product
type PriceEntry struct {
	Price        decimal.Decimal
	Currency     string
	Cost         *decimal.Decimal
	OverheadCost *decimal.Decimal
}

// ProductDraft is a product to be created in the CRM
type ProductDraft struct {
	Name       string
	Code       *string
	Unit       *string
	Tax        *decimal.Decimal
	ActiveFlag *bool
	Selectable *bool
	VisibleTo  *string
	OwnerID    *int64
	Prices     []PriceEntry
}

// FieldOpsProduct is a catalogue item on the FieldOps side
type FieldOpsProduct struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Currency string          `json:"currency"`
}

// ProductDraft converts the catalogue item into a CRM product draft
func (p FieldOpsProduct) ProductDraft() ProductDraft {
	sku := p.SKU
	return ProductDraft{
		Name:   p.Name,
		Code:   &sku,
		Prices: []PriceEntry{{Price: p.Price, Currency: p.Currency}},
	}
}

// FieldOpsProject is the FieldOps view of a project linked to a CRM deal
type FieldOpsProject struct {
	ReonicProjectID   string           `json:"reonic_project_id"`
	DealID            int64            `json:"deal_id"`
	TechnicalStatus   string           `json:"technical_status"`
	StageID           *int64           `json:"stage_id,omitempty"`
	Amount            *decimal.Decimal `json:"value_amount,omitempty"`
	Currency          *string          `json:"value_currency,omitempty"`
	ExpectedCloseDate *string          `json:"expected_close_date,omitempty"`
}

// ProjectEvent is an inbound FieldOps webhook payload
type ProjectEvent struct {
	EventType       string  `json:"event_type"`
	ReonicProjectID string  `json:"reonic_project_id"`
	TechnicalStatus *string `json:"technical_status"`
	DealID          *int64  `json:"deal_id"`
}

// FoundLead is a CRM lead as returned by a search. ID is a UUID string on
// v2 and an integer on v1, so it is kept as received.
type FoundLead struct {
	ID             any     `json:"id"`
	Title          *string `json:"title,omitempty"`
	OwnerID        *int64  `json:"owner_id,omitempty"`
	PersonID       *int64  `json:"person_id,omitempty"`
	OrganizationID *int64  `json:"organization_id,omitempty"`
	AddTime        *string `json:"add_time,omitempty"`
}

// SeedSearchCursor is the cursor advertised for a first page when the remote
// names none
const SeedSearchCursor = "mock_cursor_1"

// LeadSearch holds the parameters of a CRM lead search
type LeadSearch struct {
	Term   string
	Limit  int
	Cursor *string
	Match  string
}
