package integration

import (
	"encoding/json"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[V any](v V) *V { return &v }

// ---------------------------------------------------------------------------
// Omission Tests
// ---------------------------------------------------------------------------

func TestLeadCreateV1_OmitsAbsentFields(t *testing.T) {
	payload := LeadCreateV1.Build(LeadDraft{Title: "Solar X"})

	assert.Equal(t, Payload{"title": "Solar X"}, payload)
}

// randomLeadDraft sets each optional field with probability 1/2
func randomLeadDraft(f *gofakeit.Faker) LeadDraft {
	d := LeadDraft{Title: f.ProductName()}
	if f.Bool() {
		d.Amount = ptr(decimal.NewFromFloat(f.Price(1, 10000)))
	}
	if f.Bool() {
		d.Currency = ptr(f.CurrencyShort())
	}
	if f.Bool() {
		d.OwnerID = ptr(int64(f.Number(1, 1000)))
	}
	if f.Bool() {
		d.LabelIDs = []string{f.UUID()}
	}
	if f.Bool() {
		d.PersonID = ptr(int64(f.Number(1, 1000)))
	}
	if f.Bool() {
		d.OrganizationID = ptr(int64(f.Number(1, 1000)))
	}
	if f.Bool() {
		d.ExpectedCloseDate = ptr(f.Date().Format("2006-01-02"))
	}
	if f.Bool() {
		d.VisibleTo = ptr("3")
	}
	if f.Bool() {
		d.WasSeen = ptr(f.Bool())
	}
	return d
}

func TestLeadCreateV1_PresenceMatchesInput(t *testing.T) {
	f := gofakeit.New(42)

	for i := 0; i < 200; i++ {
		d := randomLeadDraft(f)
		payload := LeadCreateV1.Build(d)

		checkInt := func(key string, v *int64) {
			got, ok := payload[key]
			if v == nil {
				assert.False(t, ok, "%s must be omitted", key)
				return
			}
			assert.Equal(t, *v, got, key)
		}
		checkString := func(key string, v *string) {
			got, ok := payload[key]
			if v == nil {
				assert.False(t, ok, "%s must be omitted", key)
				return
			}
			assert.Equal(t, *v, got, key)
		}

		assert.Equal(t, d.Title, payload["title"])
		checkInt("owner_id", d.OwnerID)
		checkInt("person_id", d.PersonID)
		checkInt("organization_id", d.OrganizationID)
		checkString("expected_close_date", d.ExpectedCloseDate)
		checkString("visible_to", d.VisibleTo)

		_, hasSeen := payload["was_seen"]
		assert.Equal(t, d.WasSeen != nil, hasSeen)
		_, hasLabels := payload["label_ids"]
		assert.Equal(t, len(d.LabelIDs) > 0, hasLabels)
		_, hasValue := payload["value"]
		assert.Equal(t, d.Amount != nil && d.Currency != nil, hasValue)

		for k, v := range payload {
			assert.NotNil(t, v, "key %s emitted as null", k)
			assert.NotEqual(t, "", v, "key %s emitted as empty string", k)
		}
	}
}

// ---------------------------------------------------------------------------
// Monetary Folding Tests
// ---------------------------------------------------------------------------

func TestMoneyFolding(t *testing.T) {
	amount := decimal.NewFromInt(3000)
	eur := "EUR"

	tests := []struct {
		name     string
		policy   FoldPolicy
		amount   *decimal.Decimal
		currency *string
		want     any
		present  bool
	}{
		{"both, fold both", FoldBoth, &amount, &eur, map[string]any{"amount": json.Number("3000"), "currency": "EUR"}, true},
		{"amount only, fold both", FoldBoth, &amount, nil, nil, false},
		{"currency only, fold both", FoldBoth, nil, &eur, nil, false},
		{"none, fold both", FoldBoth, nil, nil, nil, false},
		{"both, fold either", FoldEither, &amount, &eur, map[string]any{"amount": json.Number("3000"), "currency": "EUR"}, true},
		{"amount only, fold either", FoldEither, &amount, nil, map[string]any{"amount": json.Number("3000")}, true},
		{"currency only, fold either", FoldEither, nil, &eur, map[string]any{"currency": "EUR"}, true},
		{"none, fold either", FoldEither, nil, nil, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := FieldTable[DealStatusUpdate]{
				Money("value", tt.policy,
					func(DealStatusUpdate) *decimal.Decimal { return tt.amount },
					func(DealStatusUpdate) *string { return tt.currency }),
			}
			got, ok := table.Build(DealStatusUpdate{})["value"]
			assert.Equal(t, tt.present, ok)
			if tt.present {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestLeadCreateV1_FoldsValueIntoJSONNumber(t *testing.T) {
	payload := LeadCreateV1.Build(LeadDraft{
		Title:    "Solar X",
		Amount:   ptr(decimal.NewFromInt(3000)),
		Currency: ptr("EUR"),
		PersonID: ptr(int64(10)),
	})

	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Solar X","value":{"amount":3000,"currency":"EUR"},"person_id":10}`, string(raw))
}

func TestLeadPatchV1_LabelIDs(t *testing.T) {
	tests := []struct {
		name    string
		labels  []string
		want    string
		present bool
	}{
		{"absent labels are omitted", nil, "", false},
		{"empty labels clear the list", []string{}, `[]`, true},
		{"labels are sent as given", []string{"label-aaa", "label-bbb"}, `["label-aaa","label-bbb"]`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := LeadPatchV1.Build(LeadChanges{LabelIDs: tt.labels})

			got, ok := payload["label_ids"]
			require.Equal(t, tt.present, ok)
			if tt.present {
				raw, err := json.Marshal(got)
				require.NoError(t, err)
				assert.JSONEq(t, tt.want, string(raw))
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Note / Activity Tests
// ---------------------------------------------------------------------------

func TestComposeNote(t *testing.T) {
	tests := []struct {
		name      string
		note      string
		projectID string
		want      string
	}{
		{"note and tag", "Panels delivered", "p1", "Panels delivered\n[reonic_project_id:p1]"},
		{"tag only", "", "p1", "[reonic_project_id:p1]"},
		{"note only", "Panels delivered", "", "Panels delivered"},
		{"neither", "", "", ""},
		{"whitespace note trimmed", "  ", "p1", "[reonic_project_id:p1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComposeNote(tt.note, tt.projectID))
		})
	}
}

func TestActivityCreateV2(t *testing.T) {
	t.Run("defaults type to task and omits empty note", func(t *testing.T) {
		payload := ActivityCreateV2.Build(ActivityDraft{Subject: "Call"})
		assert.Equal(t, Payload{"subject": "Call", "type": "task"}, payload)
	})

	t.Run("maps organization id to org_id", func(t *testing.T) {
		payload := ActivityCreateV2.Build(ActivityDraft{
			Subject:         "Visit",
			Type:            ptr("meeting"),
			DealID:          ptr(int64(5001)),
			OrganizationID:  ptr(int64(100)),
			DueDate:         ptr("2026-02-15"),
			ReonicProjectID: ptr("reonic_proj_demo_001"),
		})
		assert.Equal(t, Payload{
			"subject":  "Visit",
			"type":     "meeting",
			"deal_id":  int64(5001),
			"org_id":   int64(100),
			"due_date": "2026-02-15",
			"note":     "[reonic_project_id:reonic_proj_demo_001]",
		}, payload)
	})
}

func TestBuildProjectUpdate(t *testing.T) {
	t.Run("progress note and tag", func(t *testing.T) {
		deal, activity := BuildProjectUpdate(ProjectUpdate{
			DealID:          5001,
			TechnicalStatus: ptr("READY_FOR_INSTALL"),
			ExpectedGoLive:  ptr("2026-03-01"),
			ProgressNote:    ptr("Scaffold booked"),
			ReonicProjectID: ptr("reonic_proj_demo_001"),
		})

		assert.Equal(t, Payload{
			"status":                  "open",
			"probability":             60,
			"expected_close_date":     "2026-03-01",
			"reonic_technical_status": "READY_FOR_INSTALL",
			"reonic_project_id":       "reonic_proj_demo_001",
		}, deal)
		assert.Equal(t, Payload{
			"subject":  "Project update",
			"type":     "task",
			"deal_id":  int64(5001),
			"due_date": "2026-03-01",
			"note":     "Scaffold booked\n[reonic_project_id:reonic_proj_demo_001]",
		}, activity)
	})

	t.Run("falls back to status note", func(t *testing.T) {
		_, activity := BuildProjectUpdate(ProjectUpdate{DealID: 7, TechnicalStatus: ptr("IN_PROGRESS")})
		assert.Equal(t, "Technical status updated to IN_PROGRESS", activity["note"])
	})

	t.Run("omits note when nothing to say", func(t *testing.T) {
		_, activity := BuildProjectUpdate(ProjectUpdate{DealID: 7})
		_, ok := activity["note"]
		assert.False(t, ok)
	})
}

// ---------------------------------------------------------------------------
// Deal Upsert Tables
// ---------------------------------------------------------------------------

func TestDealUpsertTables(t *testing.T) {
	t.Run("create defaults title", func(t *testing.T) {
		payload := DealCreateV2.Build(DealUpsert{ReonicProjectID: "proj_X"})
		assert.Equal(t, Payload{"title": "Project proj_X", "reonic_project_id": "proj_X"}, payload)
	})

	t.Run("update carries only supplied fields and the key", func(t *testing.T) {
		payload := DealUpdateV2.Build(DealUpsert{ReonicProjectID: "proj_X", StageID: ptr(int64(7))})
		assert.Equal(t, Payload{"stage_id": int64(7), "reonic_project_id": "proj_X"}, payload)
	})

	t.Run("tables do not share backing arrays", func(t *testing.T) {
		assert.Equal(t, "title", DealCreateV2.Targets()[0])
		assert.Equal(t, "title", DealUpdateV2.Targets()[0])
		assert.Len(t, DealCreateV2, len(dealUpsertCommon)+1)
	})
}

// ---------------------------------------------------------------------------
// Product / FieldOps Tables
// ---------------------------------------------------------------------------

func TestProductCreateV2_Prices(t *testing.T) {
	product := FieldOpsProduct{SKU: "PRD-001", Name: "Solar Panel A", Price: decimal.NewFromInt(120), Currency: "EUR"}

	raw, err := json.Marshal(ProductCreateV2.Build(product.ProductDraft()))
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"Solar Panel A","code":"PRD-001","prices":[{"price":120,"currency":"EUR"}]}`, string(raw))
}

func TestFieldOpsLeadImport(t *testing.T) {
	lead := FoundLead{
		ID:       "6b2f2dd0-5c3e-4f87-9a29-2f70e3f6f1a3",
		Title:    ptr("solar Lead A"),
		OwnerID:  ptr(int64(1)),
		PersonID: ptr(int64(10)),
		AddTime:  ptr("2025-01-01 10:00:00"),
	}

	assert.Equal(t, Payload{
		"external_id": "6b2f2dd0-5c3e-4f87-9a29-2f70e3f6f1a3",
		"title":       "solar Lead A",
		"source":      "pipedrive",
		"person_id":   int64(10),
		"owner_id":    int64(1),
		"add_time":    "2025-01-01 10:00:00",
	}, FieldOpsLeadImport.Build(lead))
}

func TestFieldOpsRequestCreate(t *testing.T) {
	first := FieldOpsRequestCreate.Build(FoundLead{ID: int64(101), PersonID: ptr(int64(10))})
	second := FieldOpsRequestCreate.Build(FoundLead{ID: int64(102), Title: ptr("Roof")})

	assert.Equal(t, "Imported from Pipedrive", first["message"])
	assert.Equal(t, "pipedrive_lead_id=101 person_id=10 owner_id=n/a", first["note"])
	assert.Equal(t, "Roof", second["message"])
	assert.Equal(t, "Pipedrive", first["leadSourceName"])

	// each build gets its own address map
	first["addressToGeocode"].(map[string]any)["city"] = "Hamburg"
	assert.Equal(t, "Berlin", second["addressToGeocode"].(map[string]any)["city"])
}

func TestFieldOpsProject_StatusUpdate(t *testing.T) {
	projects := DemoFieldOpsProjects()
	require.Len(t, projects, 2)

	raw, err := json.Marshal(DealPatchV2.Build(projects[0].StatusUpdate()))
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"stage_id": 12,
		"status": "open",
		"probability": 60,
		"expected_close_date": "2026-02-15",
		"value": {"amount": 12000, "currency": "EUR"},
		"reonic_technical_status": "READY_FOR_INSTALL",
		"reonic_project_id": "reonic_proj_demo_001"
	}`, string(raw))

	bare := FieldOpsProject{ReonicProjectID: "p", DealID: 1}
	assert.NotContains(t, DealPatchV2.Build(bare.StatusUpdate()), "reonic_technical_status")
}
