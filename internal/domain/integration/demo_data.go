package integration

import (
	"github.com/shopspring/decimal"
)

// DemoFieldOpsProducts is the catalogue synced when a request names none
func DemoFieldOpsProducts() []FieldOpsProduct {
	return []FieldOpsProduct{
		{SKU: "PRD-001", Name: "Solar Panel A", Price: decimal.NewFromInt(120), Currency: "EUR"},
		{SKU: "PRD-002", Name: "Inverter B", Price: decimal.NewFromInt(560), Currency: "EUR"},
	}
}

// DemoFieldOpsProjects is the project list synced when a request names none.
// Deal ids match DemoMappings.
func DemoFieldOpsProjects() []FieldOpsProject {
	project := func(id string, dealID, stageID int64, status string, amount int64, closeDate string) FieldOpsProject {
		value := decimal.NewFromInt(amount)
		currency := "EUR"
		return FieldOpsProject{
			ReonicProjectID:   id,
			DealID:            dealID,
			TechnicalStatus:   status,
			StageID:           &stageID,
			Amount:            &value,
			Currency:          &currency,
			ExpectedCloseDate: &closeDate,
		}
	}
	return []FieldOpsProject{
		project("reonic_proj_demo_001", 5001, 12, "READY_FOR_INSTALL", 12000, "2026-02-15"),
		project("reonic_proj_demo_002", 5002, 14, "IN_PROGRESS", 15500, "2026-03-01"),
	}
}

// StatusUpdate is the deal patch a project batch sync sends: the deal is
// kept open at ProjectUpdateProbability.
func (p FieldOpsProject) StatusUpdate() DealStatusUpdate {
	status := ProjectUpdateDealStatus
	probability := ProjectUpdateProbability
	technical := p.TechnicalStatus
	projectID := p.ReonicProjectID
	update := DealStatusUpdate{
		DealID:            p.DealID,
		StageID:           p.StageID,
		Status:            &status,
		Probability:       &probability,
		Amount:            p.Amount,
		Currency:          p.Currency,
		ExpectedCloseDate: p.ExpectedCloseDate,
		ReonicProjectID:   &projectID,
	}
	if technical != "" {
		update.TechnicalStatus = &technical
	}
	return update
}
