package integration

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Payload tables keyed by entity, direction and CRM API version. Every
// outbound body in the gateway is produced by one of these.

// Defaults applied by the project update fan-out
const (
	DefaultActivityType        = "task"
	ProjectUpdateDealStatus    = "open"
	ProjectUpdateProbability   = 60
	ProjectUpdateSubject       = "Project update"
	FieldOpsLeadSource         = "pipedrive"
	FieldOpsRequestLeadSource  = "Pipedrive"
	defaultRequestMessage      = "Imported from Pipedrive"
	defaultDealTitlePrefix     = "Project "
	technicalStatusNoteFormat  = "Technical status updated to %s"
	webhookActivitySubjectForm = "Reonic event: %s"
)

// LeadCreateV1 builds the CRM v1 lead create body. value is only emitted
// when both amount and currency are supplied.
var LeadCreateV1 = FieldTable[LeadDraft]{
	Required("title", func(l LeadDraft) string { return l.Title }),
	Money("value", FoldBoth,
		func(l LeadDraft) *decimal.Decimal { return l.Amount },
		func(l LeadDraft) *string { return l.Currency }),
	Optional("owner_id", func(l LeadDraft) *int64 { return l.OwnerID }),
	List("label_ids", func(l LeadDraft) []string { return l.LabelIDs }),
	Optional("person_id", func(l LeadDraft) *int64 { return l.PersonID }),
	Optional("organization_id", func(l LeadDraft) *int64 { return l.OrganizationID }),
	Optional("expected_close_date", func(l LeadDraft) *string { return l.ExpectedCloseDate }),
	Optional("visible_to", func(l LeadDraft) *string { return l.VisibleTo }),
	Optional("was_seen", func(l LeadDraft) *bool { return l.WasSeen }),
}

// LeadPatchV1 builds the CRM v1 lead update body
var LeadPatchV1 = FieldTable[LeadChanges]{
	Optional("title", func(l LeadChanges) *string { return l.Title }),
	Money("value", FoldBoth,
		func(l LeadChanges) *decimal.Decimal { return l.Amount },
		func(l LeadChanges) *string { return l.Currency }),
	Optional("owner_id", func(l LeadChanges) *int64 { return l.OwnerID }),
	List("label_ids", func(l LeadChanges) []string { return l.LabelIDs }),
	Optional("person_id", func(l LeadChanges) *int64 { return l.PersonID }),
	Optional("organization_id", func(l LeadChanges) *int64 { return l.OrganizationID }),
	Optional("expected_close_date", func(l LeadChanges) *string { return l.ExpectedCloseDate }),
	Optional("visible_to", func(l LeadChanges) *string { return l.VisibleTo }),
	Optional("was_seen", func(l LeadChanges) *bool { return l.WasSeen }),
}

// DealPatchV2 builds the CRM v2 deal patch pushed from FieldOps
var DealPatchV2 = FieldTable[DealStatusUpdate]{
	Optional("stage_id", func(d DealStatusUpdate) *int64 { return d.StageID }),
	Optional("status", func(d DealStatusUpdate) *string { return d.Status }),
	Optional("probability", func(d DealStatusUpdate) *int { return d.Probability }),
	Optional("expected_close_date", func(d DealStatusUpdate) *string { return d.ExpectedCloseDate }),
	Money("value", FoldEither,
		func(d DealStatusUpdate) *decimal.Decimal { return d.Amount },
		func(d DealStatusUpdate) *string { return d.Currency }),
	Optional("owner_id", func(d DealStatusUpdate) *int64 { return d.OwnerID }),
	Optional("reonic_technical_status", func(d DealStatusUpdate) *string { return d.TechnicalStatus }),
	Optional("reonic_project_id", func(d DealStatusUpdate) *string { return d.ReonicProjectID }),
}

// ActivityCreateV2 builds the CRM v2 activity body. The project id travels
// inside the note as a ProjectTag.
var ActivityCreateV2 = FieldTable[ActivityDraft]{
	Required("subject", func(a ActivityDraft) string { return a.Subject }),
	WithDefault("type",
		func(a ActivityDraft) *string { return a.Type },
		func(ActivityDraft) string { return DefaultActivityType }),
	Optional("deal_id", func(a ActivityDraft) *int64 { return a.DealID }),
	Optional("person_id", func(a ActivityDraft) *int64 { return a.PersonID }),
	Optional("org_id", func(a ActivityDraft) *int64 { return a.OrganizationID }),
	Optional("due_date", func(a ActivityDraft) *string { return a.DueDate }),
	TaggedNote("note",
		func(a ActivityDraft) string { return deref(a.Note) },
		func(a ActivityDraft) string { return deref(a.ReonicProjectID) }),
}

// dealUpsertCommon is shared by the create and update branches of an upsert.
// reonic_project_id is always present because it is the upsert key.
var dealUpsertCommon = FieldTable[DealUpsert]{
	Optional("stage_id", func(d DealUpsert) *int64 { return d.StageID }),
	Optional("owner_id", func(d DealUpsert) *int64 { return d.OwnerID }),
	Optional("person_id", func(d DealUpsert) *int64 { return d.PersonID }),
	Optional("org_id", func(d DealUpsert) *int64 { return d.OrgID }),
	Optional("expected_close_date", func(d DealUpsert) *string { return d.ExpectedCloseDate }),
	Money("value", FoldEither,
		func(d DealUpsert) *decimal.Decimal { return d.Amount },
		func(d DealUpsert) *string { return d.Currency }),
	Optional("reonic_technical_status", func(d DealUpsert) *string { return d.TechnicalStatus }),
	Required("reonic_project_id", func(d DealUpsert) string { return d.ReonicProjectID }),
}

// DealCreateV2 builds the upsert create body; title defaults to "Project <id>"
var DealCreateV2 = append(FieldTable[DealUpsert]{
	WithDefault("title",
		func(d DealUpsert) *string { return d.Title },
		func(d DealUpsert) string { return defaultDealTitlePrefix + d.ReonicProjectID }),
}, dealUpsertCommon...)

// DealUpdateV2 builds the upsert update body; only supplied fields are sent
var DealUpdateV2 = append(FieldTable[DealUpsert]{
	Optional("title", func(d DealUpsert) *string { return d.Title }),
}, dealUpsertCommon...)

// OrganizationCreateV1 builds the CRM v1 organization body
var OrganizationCreateV1 = FieldTable[OrganizationDraft]{
	Required("name", func(o OrganizationDraft) string { return o.Name }),
	Optional("owner_id", func(o OrganizationDraft) *int64 { return o.OwnerID }),
	Optional("visible_to", func(o OrganizationDraft) *string { return o.VisibleTo }),
	Optional("address", func(o OrganizationDraft) *string { return o.Address }),
}

// PriceEntryV2 builds one entry of a product's prices list
var PriceEntryV2 = FieldTable[PriceEntry]{
	Required("price", func(p PriceEntry) decimal.Decimal { return p.Price }),
	Required("currency", func(p PriceEntry) string { return p.Currency }),
	Optional("cost", func(p PriceEntry) *decimal.Decimal { return p.Cost }),
	Optional("overhead_cost", func(p PriceEntry) *decimal.Decimal { return p.OverheadCost }),
}

// ProductCreateV2 builds the CRM v2 product body
var ProductCreateV2 = FieldTable[ProductDraft]{
	Required("name", func(p ProductDraft) string { return p.Name }),
	Optional("code", func(p ProductDraft) *string { return p.Code }),
	Optional("unit", func(p ProductDraft) *string { return p.Unit }),
	Optional("tax", func(p ProductDraft) *decimal.Decimal { return p.Tax }),
	Optional("active_flag", func(p ProductDraft) *bool { return p.ActiveFlag }),
	Optional("selectable", func(p ProductDraft) *bool { return p.Selectable }),
	Optional("visible_to", func(p ProductDraft) *string { return p.VisibleTo }),
	Optional("owner_id", func(p ProductDraft) *int64 { return p.OwnerID }),
	Computed("prices", func(p ProductDraft) (any, bool) {
		if len(p.Prices) == 0 {
			return nil, false
		}
		out := make([]Payload, len(p.Prices))
		for i, entry := range p.Prices {
			out[i] = PriceEntryV2.Build(entry)
		}
		return out, true
	}),
}

// FieldOpsLeadImport builds one element of the FieldOps bulk lead import
var FieldOpsLeadImport = FieldTable[FoundLead]{
	Computed("external_id", func(l FoundLead) (any, bool) { return l.ID, l.ID != nil }),
	Optional("title", func(l FoundLead) *string { return l.Title }),
	Constant[FoundLead]("source", func() any { return FieldOpsLeadSource }),
	Optional("person_id", func(l FoundLead) *int64 { return l.PersonID }),
	Optional("owner_id", func(l FoundLead) *int64 { return l.OwnerID }),
	Optional("add_time", func(l FoundLead) *string { return l.AddTime }),
}

// FieldOpsRequestCreate builds a FieldOps request from a CRM lead. FieldOps
// requires firstName, lastName and a geocodable address, none of which a
// CRM lead carries, so placeholders are sent.
var FieldOpsRequestCreate = FieldTable[FoundLead]{
	Constant[FoundLead]("firstName", func() any { return "Pipedrive" }),
	Constant[FoundLead]("lastName", func() any { return "Lead" }),
	Computed("message", func(l FoundLead) (any, bool) {
		if l.Title != nil && *l.Title != "" {
			return *l.Title, true
		}
		return defaultRequestMessage, true
	}),
	Computed("note", func(l FoundLead) (any, bool) {
		return fmt.Sprintf("pipedrive_lead_id=%v person_id=%s owner_id=%s",
			l.ID, formatOptional(l.PersonID), formatOptional(l.OwnerID)), true
	}),
	Constant[FoundLead]("addressToGeocode", func() any {
		return map[string]any{
			"country":      "Germany",
			"postcode":     "10115",
			"city":         "Berlin",
			"street":       "Hauptstraße",
			"streetNumber": "1",
		}
	}),
	Constant[FoundLead]("leadSourceName", func() any { return FieldOpsRequestLeadSource }),
}

// BuildProjectUpdate derives the deal patch and the activity of a combined
// project update. The deal is forced to open/60% and its expected close date
// follows the go-live date. The activity note falls back to a status line
// when no progress note is supplied.
func BuildProjectUpdate(u ProjectUpdate) (deal Payload, activity Payload) {
	status := ProjectUpdateDealStatus
	probability := ProjectUpdateProbability
	deal = DealPatchV2.Build(DealStatusUpdate{
		DealID:            u.DealID,
		StageID:           u.StageID,
		Status:            &status,
		Probability:       &probability,
		Amount:            u.Amount,
		Currency:          u.Currency,
		ExpectedCloseDate: u.ExpectedGoLive,
		TechnicalStatus:   u.TechnicalStatus,
		ReonicProjectID:   u.ReonicProjectID,
		OwnerID:           u.OwnerID,
	})

	note := deref(u.ProgressNote)
	if note == "" && u.TechnicalStatus != nil && *u.TechnicalStatus != "" {
		note = fmt.Sprintf(technicalStatusNoteFormat, *u.TechnicalStatus)
	}
	taskType := DefaultActivityType
	dealID := u.DealID
	activity = ActivityCreateV2.Build(ActivityDraft{
		Subject:         ProjectUpdateSubject,
		Type:            &taskType,
		DealID:          &dealID,
		DueDate:         u.ExpectedGoLive,
		Note:            &note,
		ReonicProjectID: u.ReonicProjectID,
	})
	return deal, activity
}

// WebhookStatusPush is the deal status push planned for a project event
func WebhookStatusPush(dealID int64, ev ProjectEvent) DealStatusUpdate {
	projectID := ev.ReonicProjectID
	return DealStatusUpdate{
		DealID:          dealID,
		TechnicalStatus: ev.TechnicalStatus,
		ReonicProjectID: &projectID,
	}
}

// WebhookActivityPush is the activity push planned for a project event
func WebhookActivityPush(dealID int64, ev ProjectEvent) ActivityDraft {
	projectID := ev.ReonicProjectID
	note := "technical_status=" + deref(ev.TechnicalStatus)
	return ActivityDraft{
		Subject:         fmt.Sprintf(webhookActivitySubjectForm, ev.EventType),
		DealID:          &dealID,
		Note:            &note,
		ReonicProjectID: &projectID,
	}
}

func formatOptional(v *int64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *v)
}
