package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/crmbridge/gateway/internal/domain/integration"
)

// ProvenancePrefix marks which gateway operation produced a remote write
const ProvenancePrefix = "crm-gateway/"

// Error kinds reported in CallError.Kind
const (
	KindConfiguration = "configuration"
	KindValidation    = "validation"
	KindRemote        = "remote"
	KindTransport     = "transport"
	KindDecode        = "decode"
	KindInternal      = "internal"
)

// ErrorKind classifies an operation error
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, integration.ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, integration.ErrValidation):
		return KindValidation
	case errors.Is(err, integration.ErrRemote):
		return KindRemote
	case errors.Is(err, integration.ErrTransport):
		return KindTransport
	case errors.Is(err, integration.ErrDecode):
		return KindDecode
	default:
		return KindInternal
	}
}

// ActionRecorder receives the number of actions planned per webhook event
type ActionRecorder interface {
	RecordWebhookActions(eventType string, planned int)
}

// ServiceConfig holds the settings the sync operations depend on
type ServiceConfig struct {
	// Endpoints overrides the default endpoint table
	Endpoints integration.Endpoints
	// RequestIDField is the CRM lead custom field receiving the FieldOps request id
	RequestIDField string
	// ExecuteWebhooks runs planned webhook actions instead of only reporting them
	ExecuteWebhooks bool
}

// Service implements the synchronization operations between the CRM and
// FieldOps. Every operation goes through the same executor: credentials are
// checked, the payload built from a field table, and the call handed to the
// RemoteCaller.
type Service struct {
	caller          integration.RemoteCaller
	mappings        integration.IdentityMappingStore
	endpoints       integration.Endpoints
	requestIDField  string
	executeWebhooks bool
	recorder        ActionRecorder
	logger          *zap.Logger
}

// NewService creates a new sync service. recorder may be nil.
func NewService(
	caller integration.RemoteCaller,
	mappings integration.IdentityMappingStore,
	cfg ServiceConfig,
	logger *zap.Logger,
	recorder ActionRecorder,
) *Service {
	endpoints := cfg.Endpoints
	if endpoints == nil {
		endpoints = integration.DefaultEndpoints()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		caller:          caller,
		mappings:        mappings,
		endpoints:       endpoints,
		requestIDField:  cfg.RequestIDField,
		executeWebhooks: cfg.ExecuteWebhooks,
		recorder:        recorder,
		logger:          logger.Named("sync"),
	}
}

// ---------------------------------------------------------------------------
// Executor
// ---------------------------------------------------------------------------

// requireSystems fails with ErrConfiguration when any system lacks credentials
func (s *Service) requireSystems(systems ...integration.System) error {
	for _, system := range systems {
		if err := s.caller.CheckCredentials(system); err != nil {
			return err
		}
	}
	return nil
}

// call runs one operation. No I/O happens when credentials are missing.
func (s *Service) call(ctx context.Context, op integration.Operation, params, query map[string]string, body any) (*integration.RemoteCallResult, error) {
	ep, ok := s.endpoints[op]
	if !ok {
		return nil, integration.NewConfigurationError("no endpoint configured for %s", op)
	}
	if err := s.caller.CheckCredentials(ep.System); err != nil {
		return nil, err
	}
	return s.caller.Call(ctx, integration.NewRemoteCall(s.endpoints, op, params, query, body))
}

// outcome normalizes a successful call and tags writes with their provenance
func (s *Service) outcome(op integration.Operation, res *integration.RemoteCallResult) *CallOutcome {
	preview := res.Preview
	out := &CallOutcome{
		Operation:  op,
		Request:    &preview,
		StatusCode: res.Status,
		Response:   res.Body,
		DryRun:     res.DryRun,
	}
	switch s.endpoints[op].Method {
	case http.MethodPost:
		out.CreatedFrom = ProvenancePrefix + string(op)
	case http.MethodPatch:
		out.UpdatedFrom = ProvenancePrefix + string(op)
	}
	return out
}

// failure reports a failed call inside a multi-call result
func (s *Service) failure(op integration.Operation, err error) *CallOutcome {
	out := &CallOutcome{
		Operation: op,
		DryRun:    s.caller.DryRun(),
		Error:     &CallError{Kind: ErrorKind(err), Message: err.Error()},
	}
	var remoteErr *integration.RemoteError
	if errors.As(err, &remoteErr) {
		preview := remoteErr.Preview
		out.Request = &preview
		out.StatusCode = remoteErr.Status
		if json.Valid(remoteErr.Body) {
			out.Error.Details = json.RawMessage(remoteErr.Body)
		}
	}
	return out
}

// attempt runs a call whose failure is reported rather than returned
func (s *Service) attempt(ctx context.Context, op integration.Operation, params map[string]string, body any) *CallOutcome {
	res, err := s.call(ctx, op, params, nil, body)
	if err != nil {
		s.logger.Warn("remote call failed",
			zap.String("operation", string(op)),
			zap.String("kind", ErrorKind(err)),
			zap.Error(err),
		)
		return s.failure(op, err)
	}
	return s.outcome(op, res)
}

// single runs a call whose failure is the operation's failure
func (s *Service) single(ctx context.Context, op integration.Operation, params, query map[string]string, body any) (*CallOutcome, error) {
	res, err := s.call(ctx, op, params, query, body)
	if err != nil {
		return nil, err
	}
	return s.outcome(op, res), nil
}

func idParam(id string) map[string]string {
	return map[string]string{"id": url.PathEscape(id)}
}

func dealParam(dealID int64) map[string]string {
	return map[string]string{"id": strconv.FormatInt(dealID, 10)}
}

// ---------------------------------------------------------------------------
// Leads
// ---------------------------------------------------------------------------

// ListLeads lists CRM leads
func (s *Service) ListLeads(ctx context.Context) (*CallOutcome, error) {
	return s.single(ctx, integration.OpLeadList, nil, nil, nil)
}

// GetLead fetches one CRM lead
func (s *Service) GetLead(ctx context.Context, id string) (*CallOutcome, error) {
	if strings.TrimSpace(id) == "" {
		return nil, integration.NewValidationError("lead id is required")
	}
	return s.single(ctx, integration.OpLeadGet, idParam(id), nil, nil)
}

// CreateLead creates a CRM lead
func (s *Service) CreateLead(ctx context.Context, draft integration.LeadDraft) (*CallOutcome, error) {
	if strings.TrimSpace(draft.Title) == "" {
		return nil, integration.NewValidationError("title is required")
	}
	return s.single(ctx, integration.OpLeadCreate, nil, nil, integration.LeadCreateV1.Build(draft))
}

// UpdateLead patches a CRM lead. Changes that build an empty payload are
// rejected without calling the remote.
func (s *Service) UpdateLead(ctx context.Context, id string, changes integration.LeadChanges) (*CallOutcome, error) {
	if strings.TrimSpace(id) == "" {
		return nil, integration.NewValidationError("lead id is required")
	}
	payload := integration.LeadPatchV1.Build(changes)
	if len(payload) == 0 {
		return nil, integration.NewValidationError("no fields to update")
	}
	return s.single(ctx, integration.OpLeadUpdate, idParam(id), nil, payload)
}

// DeleteLead deletes a CRM lead
func (s *Service) DeleteLead(ctx context.Context, id string) (*CallOutcome, error) {
	if strings.TrimSpace(id) == "" {
		return nil, integration.NewValidationError("lead id is required")
	}
	return s.single(ctx, integration.OpLeadDelete, idParam(id), nil, nil)
}

// ---------------------------------------------------------------------------
// Organizations and products
// ---------------------------------------------------------------------------

// CreateOrganization creates a CRM organization
func (s *Service) CreateOrganization(ctx context.Context, draft integration.OrganizationDraft) (*CallOutcome, error) {
	if strings.TrimSpace(draft.Name) == "" {
		return nil, integration.NewValidationError("name is required")
	}
	return s.single(ctx, integration.OpOrganizationCreate, nil, nil, integration.OrganizationCreateV1.Build(draft))
}

// CreateProduct creates a CRM product
func (s *Service) CreateProduct(ctx context.Context, draft integration.ProductDraft) (*CallOutcome, error) {
	if strings.TrimSpace(draft.Name) == "" {
		return nil, integration.NewValidationError("name is required")
	}
	return s.single(ctx, integration.OpProductCreate, nil, nil, integration.ProductCreateV2.Build(draft))
}

// SyncProducts creates one CRM product per FieldOps catalogue item. An empty
// list syncs the demo catalogue. Items are pushed independently.
func (s *Service) SyncProducts(ctx context.Context, products []integration.FieldOpsProduct) (*ProductSyncResult, error) {
	if len(products) == 0 {
		products = integration.DemoFieldOpsProducts()
	}
	if err := s.requireSystems(integration.SystemPipedrive); err != nil {
		return nil, err
	}

	result := &ProductSyncResult{ReonicProducts: products}
	for _, p := range products {
		body := integration.ProductCreateV2.Build(p.ProductDraft())
		result.Results = append(result.Results, s.attempt(ctx, integration.OpProductCreate, nil, body))
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// FieldOps to CRM pushes
// ---------------------------------------------------------------------------

// PushDealStatus patches a CRM deal from FieldOps state
func (s *Service) PushDealStatus(ctx context.Context, update integration.DealStatusUpdate) (*CallOutcome, error) {
	if update.DealID <= 0 {
		return nil, integration.NewValidationError("deal_id is required")
	}
	payload := integration.DealPatchV2.Build(update)
	if len(payload) == 0 {
		return nil, integration.NewValidationError("no fields to update on deal %d", update.DealID)
	}
	return s.single(ctx, integration.OpDealUpdate, dealParam(update.DealID), nil, payload)
}

// PushActivity creates a CRM activity
func (s *Service) PushActivity(ctx context.Context, draft integration.ActivityDraft) (*CallOutcome, error) {
	if strings.TrimSpace(draft.Subject) == "" {
		return nil, integration.NewValidationError("subject is required")
	}
	return s.single(ctx, integration.OpActivityCreate, nil, nil, integration.ActivityCreateV2.Build(draft))
}

// PushProjectUpdate patches the deal and then creates the activity. Both
// calls are attempted whatever the first returns; there is no compensation.
func (s *Service) PushProjectUpdate(ctx context.Context, update integration.ProjectUpdate) (*ProjectUpdateResult, error) {
	if update.DealID <= 0 {
		return nil, integration.NewValidationError("deal_id is required")
	}
	if err := s.requireSystems(integration.SystemPipedrive); err != nil {
		return nil, err
	}

	deal, activity := integration.BuildProjectUpdate(update)
	result := &ProjectUpdateResult{
		DealUpdate:      s.attempt(ctx, integration.OpDealUpdate, dealParam(update.DealID), deal),
		ActivityCreated: s.attempt(ctx, integration.OpActivityCreate, nil, activity),
	}
	if result.DealUpdate.Failed() != result.ActivityCreated.Failed() {
		s.logger.Warn("project update partially applied",
			zap.Int64("deal_id", update.DealID),
			zap.Bool("deal_update_failed", result.DealUpdate.Failed()),
			zap.Bool("activity_failed", result.ActivityCreated.Failed()),
		)
	}
	return result, nil
}

// SyncProjects pushes a status patch for every FieldOps project. An empty
// list syncs the demo projects.
func (s *Service) SyncProjects(ctx context.Context, projects []integration.FieldOpsProject) (*ProjectSyncResult, error) {
	if len(projects) == 0 {
		projects = integration.DemoFieldOpsProjects()
	}
	for _, p := range projects {
		if p.DealID <= 0 {
			return nil, integration.NewValidationError("project %q has no deal_id", p.ReonicProjectID)
		}
	}
	if err := s.requireSystems(integration.SystemPipedrive); err != nil {
		return nil, err
	}

	result := &ProjectSyncResult{ReonicProjects: projects}
	for _, p := range projects {
		body := integration.DealPatchV2.Build(p.StatusUpdate())
		result.Results = append(result.Results, s.attempt(ctx, integration.OpDealUpdate, dealParam(p.DealID), body))
	}
	return result, nil
}

// ---------------------------------------------------------------------------
// CRM to FieldOps pushes
// ---------------------------------------------------------------------------

// searchLeads runs a CRM lead search and extracts the found leads
func (s *Service) searchLeads(ctx context.Context, search integration.LeadSearch) (*CallOutcome, []integration.FoundLead, *string, error) {
	query := map[string]string{
		"term":  search.Term,
		"limit": strconv.Itoa(search.Limit),
		"match": search.Match,
	}
	if search.Cursor != nil {
		query["cursor"] = *search.Cursor
	}

	res, err := s.call(ctx, integration.OpLeadSearch, nil, query, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	found, err := parseFoundLeads(res)
	if err != nil {
		return nil, nil, nil, err
	}
	return s.outcome(integration.OpLeadSearch, res), found, nextCursor(res, search.Cursor), nil
}

// SearchAndImport searches CRM leads and imports the page into FieldOps in
// one bulk call
func (s *Service) SearchAndImport(ctx context.Context, search integration.LeadSearch) (*LeadImportResult, error) {
	if err := validateSearch(search); err != nil {
		return nil, err
	}
	if err := s.requireSystems(integration.SystemPipedrive, integration.SystemReonic); err != nil {
		return nil, err
	}

	searchOutcome, found, cursor, err := s.searchLeads(ctx, search)
	if err != nil {
		return nil, err
	}

	transformed := make([]integration.Payload, len(found))
	for i, lead := range found {
		transformed[i] = integration.FieldOpsLeadImport.Build(lead)
	}

	importOutcome, err := s.single(ctx, integration.OpFieldOpsLeadImport, nil, nil, map[string]any{"leads": transformed})
	if err != nil {
		return nil, err
	}

	s.logger.Info("leads imported",
		zap.String("term", search.Term),
		zap.Int("count", len(transformed)),
		zap.Bool("dry_run", importOutcome.DryRun),
	)

	return &LeadImportResult{
		SearchTerm:  search.Term,
		Search:      searchOutcome,
		Found:       found,
		Transformed: transformed,
		SentCount:   len(transformed),
		Import:      importOutcome,
		NextCursor:  cursor,
	}, nil
}

// PushLeadsAsRequests creates one FieldOps request per found CRM lead and
// writes the request id back onto the lead
func (s *Service) PushLeadsAsRequests(ctx context.Context, search integration.LeadSearch) (*RequestCreationResult, error) {
	if err := validateSearch(search); err != nil {
		return nil, err
	}
	if err := s.requireSystems(integration.SystemPipedrive, integration.SystemReonic); err != nil {
		return nil, err
	}

	searchOutcome, found, cursor, err := s.searchLeads(ctx, search)
	if err != nil {
		return nil, err
	}

	result := &RequestCreationResult{
		SearchTerm:    search.Term,
		Search:        searchOutcome,
		Found:         found,
		Pushes:        make([]RequestPush, 0, len(found)),
		MappingsBuilt: make([]RequestMapping, 0, len(found)),
		NextCursor:    cursor,
	}
	for _, lead := range found {
		push := RequestPush{PipedriveLeadID: lead.ID}

		res, err := s.call(ctx, integration.OpFieldOpsRequestCreate, nil, nil, integration.FieldOpsRequestCreate.Build(lead))
		if err != nil {
			push.Create = s.failure(integration.OpFieldOpsRequestCreate, err)
			result.Pushes = append(result.Pushes, push)
			continue
		}
		push.Create = s.outcome(integration.OpFieldOpsRequestCreate, res)

		requestID := firstString(res, "id", "data.id")
		if requestID != "" && lead.ID != nil {
			leadID := fmt.Sprint(lead.ID)
			push.WriteBack = s.attempt(ctx, integration.OpLeadUpdate, idParam(leadID),
				integration.Payload{s.requestIDField: requestID})
			if !push.WriteBack.Failed() {
				result.MappingsBuilt = append(result.MappingsBuilt, RequestMapping{
					PipedriveLeadID: lead.ID,
					ReonicRequestID: requestID,
				})
			}
		}
		result.Pushes = append(result.Pushes, push)
	}
	return result, nil
}

// SubscribeWebhook subscribes hookURL to a FieldOps event
func (s *Service) SubscribeWebhook(ctx context.Context, event, hookURL string) (*CallOutcome, error) {
	if strings.TrimSpace(event) == "" {
		return nil, integration.NewValidationError("event is required")
	}
	if strings.TrimSpace(hookURL) == "" {
		return nil, integration.NewValidationError("hook_url is required")
	}
	params := map[string]string{"event": url.PathEscape(event)}
	return s.single(ctx, integration.OpFieldOpsWebhookSubscribe, params, nil, map[string]any{"hookUrl": hookURL})
}

// ---------------------------------------------------------------------------
// Identity mapping
// ---------------------------------------------------------------------------

// Lookup reports the deal linked to a FieldOps project
func (s *Service) Lookup(projectID string) MappingView {
	view := MappingView{ReonicProjectID: projectID}
	if dealID, found := s.mappings.Lookup(projectID); found {
		view.PipedriveDealID = &dealID
		view.Found = true
	}
	return view
}

// UpsertDeal updates the deal mapped to the project, or creates one and
// records the mapping. Lookup, remote call and record run under the
// project's lock, so concurrent upserts of one project converge on one deal.
func (s *Service) UpsertDeal(ctx context.Context, upsert integration.DealUpsert) (*UpsertResult, error) {
	projectID := strings.TrimSpace(upsert.ReonicProjectID)
	if projectID == "" {
		return nil, integration.NewValidationError("reonic_project_id is required")
	}
	upsert.ReonicProjectID = projectID
	if err := s.requireSystems(integration.SystemPipedrive); err != nil {
		return nil, err
	}

	unlock := s.mappings.Lock(projectID)
	defer unlock()

	if dealID, found := s.mappings.Lookup(projectID); found {
		outcome, err := s.single(ctx, integration.OpDealUpdate, dealParam(dealID), nil, integration.DealUpdateV2.Build(upsert))
		if err != nil {
			return nil, err
		}
		return &UpsertResult{
			Mode:    UpsertModeUpdate,
			Mapping: MappingView{ReonicProjectID: projectID, PipedriveDealID: &dealID, Found: true},
			Call:    outcome,
		}, nil
	}

	res, err := s.call(ctx, integration.OpDealCreate, nil, nil, integration.DealCreateV2.Build(upsert))
	if err != nil {
		return nil, err
	}

	view := MappingView{ReonicProjectID: projectID}
	stored := false
	if id := res.Get("data.id"); id.Type == gjson.Number && id.Int() > 0 {
		dealID := id.Int()
		view.PipedriveDealID = &dealID
		stored = true
	} else if res.DryRun {
		dealID := s.mappings.NextSyntheticID()
		view.PipedriveDealID = &dealID
		stored = true
	}
	if stored {
		s.mappings.Record(projectID, *view.PipedriveDealID)
	} else {
		s.logger.Warn("deal created without an id, mapping not recorded",
			zap.String("reonic_project_id", projectID))
	}
	view.Stored = &stored

	return &UpsertResult{
		Mode:    UpsertModeCreate,
		Mapping: view,
		Call:    s.outcome(integration.OpDealCreate, res),
	}, nil
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

// DryRun reports whether remote calls are simulated
func (s *Service) DryRun() bool {
	return s.caller.DryRun()
}

// Health reports the call mode and which remotes have credentials
func (s *Service) Health() HealthStatus {
	mode := "live"
	if s.caller.DryRun() {
		mode = "dry_run"
	}
	configured := map[string]bool{}
	for _, system := range []integration.System{integration.SystemPipedrive, integration.SystemReonic} {
		configured[system.String()] = s.caller.CheckCredentials(system) == nil
	}
	return HealthStatus{
		Status:     "healthy",
		Mode:       mode,
		Configured: configured,
		Mappings:   len(s.mappings.Snapshot()),
	}
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func validateSearch(search integration.LeadSearch) error {
	if strings.TrimSpace(search.Term) == "" {
		return integration.NewValidationError("term is required")
	}
	if search.Limit < 1 || search.Limit > 100 {
		return integration.NewValidationError("limit must be between 1 and 100")
	}
	return nil
}

// parseFoundLeads reads the leads of a search response. The v2 search nests
// each lead under data.items[].item; a plain data array is accepted as well.
func parseFoundLeads(res *integration.RemoteCallResult) ([]integration.FoundLead, error) {
	items := res.Get("data.items.#.item")
	if !items.IsArray() || len(items.Array()) == 0 {
		if data := res.Get("data"); data.IsArray() {
			items = data
		}
	}

	found := make([]integration.FoundLead, 0, len(items.Array()))
	for _, item := range items.Array() {
		var lead integration.FoundLead
		dec := json.NewDecoder(bytes.NewReader([]byte(item.Raw)))
		dec.UseNumber()
		if err := dec.Decode(&lead); err != nil {
			return nil, fmt.Errorf("%w: lead search item: %v", integration.ErrDecode, err)
		}
		// v2 items reference related records as objects
		lead.PersonID = nestedID(lead.PersonID, item, "person.id")
		lead.OwnerID = nestedID(lead.OwnerID, item, "owner.id")
		lead.OrganizationID = nestedID(lead.OrganizationID, item, "organization.id")
		found = append(found, lead)
	}
	return found, nil
}

func nestedID(current *int64, item gjson.Result, path string) *int64 {
	if current != nil {
		return current
	}
	if r := item.Get(path); r.Type == gjson.Number {
		id := r.Int()
		return &id
	}
	return nil
}

// nextCursor prefers the remote's cursor. Without one, a caller that sent no
// cursor is told more data exists and a caller that sent one gets null.
func nextCursor(res *integration.RemoteCallResult, requested *string) *string {
	if r := res.Get("additional_data.next_cursor"); r.Exists() {
		if r.Type == gjson.Null || r.String() == "" {
			return nil
		}
		cursor := r.String()
		return &cursor
	}
	if requested == nil {
		cursor := integration.SeedSearchCursor
		return &cursor
	}
	return nil
}

func firstString(res *integration.RemoteCallResult, paths ...string) string {
	for _, path := range paths {
		if r := res.Get(path); r.Exists() && r.Type != gjson.Null && r.String() != "" {
			return r.String()
		}
	}
	return ""
}
