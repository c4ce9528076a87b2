package integration

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/crmbridge/gateway/internal/domain/integration"
)

// PlanWebhook resolves the deal of a project event and plans its downstream
// actions. The event's own deal id wins over the mapping store. An event
// without a resolvable deal or without a technical status plans nothing.
func (s *Service) PlanWebhook(event integration.ProjectEvent) *WebhookResult {
	result := &WebhookResult{
		ReceivedEvent:  event,
		ActionsPlanned: []PlannedAction{},
	}

	switch {
	case event.DealID != nil:
		dealID := *event.DealID
		result.DealID = &dealID
		result.DealIDSource = DealIDFromEvent
	case event.ReonicProjectID != "":
		if dealID, found := s.mappings.Lookup(event.ReonicProjectID); found {
			result.DealID = &dealID
			result.DealIDSource = DealIDFromMapping
		}
	}

	if result.DealID == nil || event.TechnicalStatus == nil || *event.TechnicalStatus == "" {
		return result
	}

	dealID := *result.DealID
	status := integration.WebhookStatusPush(dealID, event)
	activity := integration.WebhookActivityPush(dealID, event)
	result.ActionsPlanned = append(result.ActionsPlanned,
		PlannedAction{
			Action:    ActionPushDealStatus,
			Operation: integration.OpDealUpdate,
			With: map[string]any{
				"deal_id":           dealID,
				"technical_status":  *status.TechnicalStatus,
				"reonic_project_id": event.ReonicProjectID,
			},
		},
		PlannedAction{
			Action:    ActionPushActivity,
			Operation: integration.OpActivityCreate,
			With: map[string]any{
				"subject":           activity.Subject,
				"deal_id":           dealID,
				"note":              *activity.Note,
				"reonic_project_id": event.ReonicProjectID,
			},
		},
	)
	return result
}

// DispatchWebhook plans the actions of a project event and, when webhook
// execution is enabled, runs them. Each action is reported independently.
func (s *Service) DispatchWebhook(ctx context.Context, event integration.ProjectEvent) (*WebhookResult, error) {
	if strings.TrimSpace(event.EventType) == "" {
		return nil, integration.NewValidationError("event_type is required")
	}
	if strings.TrimSpace(event.ReonicProjectID) == "" {
		return nil, integration.NewValidationError("reonic_project_id is required")
	}

	result := s.PlanWebhook(event)
	if s.recorder != nil {
		s.recorder.RecordWebhookActions(event.EventType, len(result.ActionsPlanned))
	}

	s.logger.Info("webhook received",
		zap.String("event_type", event.EventType),
		zap.String("reonic_project_id", event.ReonicProjectID),
		zap.String("deal_id_source", result.DealIDSource),
		zap.Int("actions_planned", len(result.ActionsPlanned)),
		zap.Bool("execute", s.executeWebhooks),
	)

	if !s.executeWebhooks || len(result.ActionsPlanned) == 0 {
		return result, nil
	}
	if err := s.requireSystems(integration.SystemPipedrive); err != nil {
		return nil, err
	}

	dealID := *result.DealID
	status := integration.WebhookStatusPush(dealID, event)
	activity := integration.WebhookActivityPush(dealID, event)
	result.Results = []*CallOutcome{
		s.attempt(ctx, integration.OpDealUpdate, dealParam(dealID), integration.DealPatchV2.Build(status)),
		s.attempt(ctx, integration.OpActivityCreate, nil, integration.ActivityCreateV2.Build(activity)),
	}
	result.Executed = true
	return result, nil
}
