package remote

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crmbridge/gateway/internal/domain/integration"
)

// Simulator answers RemoteCalls in dry-run mode. It keeps a small lead table
// so a created lead can be read, patched and deleted again.
//
// Deal creation returns no id: in dry-run the identity store's synthetic
// scheme mints deal ids.
type Simulator struct {
	mu             sync.Mutex
	leads          map[string]map[string]any
	leadOrder      []string
	nextLeadID     int64
	nextOrgID      int64
	nextProductID  int64
	nextActivityID int64
	now            func() time.Time
}

// NewSimulator creates a simulator seeded with two demo leads
func NewSimulator() *Simulator {
	s := &Simulator{
		leads:          make(map[string]map[string]any),
		nextLeadID:     103,
		nextOrgID:      301,
		nextProductID:  501,
		nextActivityID: 90001,
		now:            time.Now,
	}
	for _, lead := range seedLeads() {
		id := strconv.FormatInt(lead["id"].(int64), 10)
		s.leads[id] = lead
		s.leadOrder = append(s.leadOrder, id)
	}
	return s
}

func seedLeads() []map[string]any {
	return []map[string]any{
		{
			"id":                  int64(101),
			"title":               "Mock Lead A",
			"value":               map[string]any{"amount": 3000, "currency": "EUR"},
			"owner_id":            1,
			"label_ids":           []string{"label-aaa"},
			"person_id":           10,
			"organization_id":     100,
			"expected_close_date": "2025-01-10",
			"visible_to":          "1",
			"was_seen":            true,
			"add_time":            "2025-01-01 10:00:00",
		},
		{
			"id":                  int64(102),
			"title":               "Mock Lead B",
			"value":               map[string]any{"amount": 5000, "currency": "USD"},
			"owner_id":            2,
			"label_ids":           []string{"label-bbb"},
			"person_id":           11,
			"organization_id":     101,
			"expected_close_date": "2025-02-01",
			"visible_to":          "3",
			"was_seen":            false,
			"add_time":            "2025-01-02 15:30:00",
		},
	}
}

// searchHits mirrors the shape of CRM v2 search results
func searchHits(term string) []map[string]any {
	return []map[string]any{
		{
			"id":              "6b2f2dd0-5c3e-4f87-9a29-2f70e3f6f1a3",
			"title":           term + " Lead A",
			"value":           map[string]any{"amount": 3000, "currency": "EUR"},
			"owner_id":        1,
			"person_id":       10,
			"organization_id": 100,
			"add_time":        "2025-01-01 10:00:00",
		},
		{
			"id":              "0f3a8d21-1f7b-4a7e-9f77-2df79c0c11aa",
			"title":           term + " Lead B",
			"value":           map[string]any{"amount": 5000, "currency": "USD"},
			"owner_id":        2,
			"person_id":       11,
			"organization_id": 101,
			"add_time":        "2025-01-02 15:30:00",
		},
	}
}

// Respond returns the status and JSON body a remote would send. The body is
// encoded under the lock because it may alias the lead table.
func (s *Simulator) Respond(call integration.RemoteCall) (int, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, body := s.respond(call)
	raw, err := json.Marshal(body)
	return status, raw, err
}

func (s *Simulator) respond(call integration.RemoteCall) (int, any) {
	body := toMap(call.Body)
	id := call.PathParams["id"]

	switch call.Operation {
	case integration.OpLeadList:
		data := make([]map[string]any, 0, len(s.leadOrder))
		for _, leadID := range s.leadOrder {
			data = append(data, s.leads[leadID])
		}
		return http.StatusOK, map[string]any{"success": true, "data": data}

	case integration.OpLeadGet:
		lead, ok := s.leads[id]
		if !ok {
			return leadNotFound(id)
		}
		return http.StatusOK, map[string]any{"success": true, "data": lead}

	case integration.OpLeadCreate:
		leadID := s.nextLeadID
		s.nextLeadID++
		body["id"] = leadID
		body["add_time"] = s.now().UTC().Format("2006-01-02 15:04:05")
		key := strconv.FormatInt(leadID, 10)
		s.leads[key] = body
		s.leadOrder = append(s.leadOrder, key)
		return http.StatusCreated, map[string]any{"success": true, "data": body}

	case integration.OpLeadUpdate:
		lead, ok := s.leads[id]
		if !ok {
			return leadNotFound(id)
		}
		for k, v := range body {
			lead[k] = v
		}
		return http.StatusOK, map[string]any{"success": true, "data": lead}

	case integration.OpLeadDelete:
		if _, ok := s.leads[id]; !ok {
			return leadNotFound(id)
		}
		delete(s.leads, id)
		for i, leadID := range s.leadOrder {
			if leadID == id {
				s.leadOrder = append(s.leadOrder[:i], s.leadOrder[i+1:]...)
				break
			}
		}
		return http.StatusOK, map[string]any{"success": true, "data": map[string]any{"id": id}}

	case integration.OpLeadSearch:
		hits := searchHits(call.Query["term"])
		if limit, err := strconv.Atoi(call.Query["limit"]); err == nil && limit >= 0 && limit < len(hits) {
			hits = hits[:limit]
		}
		items := make([]map[string]any, len(hits))
		for i, hit := range hits {
			s.remember(hit)
			items[i] = map[string]any{"result_score": 1.0, "item": hit}
		}
		var next any
		if _, ok := call.Query["cursor"]; !ok {
			next = integration.SeedSearchCursor
		}
		return http.StatusOK, map[string]any{
			"success":         true,
			"data":            map[string]any{"items": items},
			"additional_data": map[string]any{"next_cursor": next},
		}

	case integration.OpOrganizationCreate:
		body["id"] = s.nextOrgID
		s.nextOrgID++
		if _, ok := body["visible_to"]; !ok {
			body["visible_to"] = "3"
		}
		return http.StatusCreated, map[string]any{"success": true, "data": body}

	case integration.OpProductCreate:
		body["id"] = s.nextProductID
		s.nextProductID++
		return http.StatusCreated, map[string]any{"success": true, "data": body}

	case integration.OpDealCreate:
		return http.StatusCreated, map[string]any{"success": true, "data": body}

	case integration.OpDealUpdate:
		if dealID, err := strconv.ParseInt(id, 10, 64); err == nil {
			body["id"] = dealID
		}
		return http.StatusOK, map[string]any{"success": true, "data": body}

	case integration.OpActivityCreate:
		body["id"] = s.nextActivityID
		s.nextActivityID++
		return http.StatusCreated, map[string]any{"success": true, "data": body}

	case integration.OpFieldOpsLeadImport:
		leads, _ := body["leads"].([]any)
		return http.StatusOK, map[string]any{"success": true, "imported": len(leads)}

	case integration.OpFieldOpsRequestCreate:
		return http.StatusCreated, map[string]any{"id": uuid.NewString()}

	case integration.OpFieldOpsWebhookSubscribe:
		return http.StatusCreated, map[string]any{
			"id":      uuid.NewString(),
			"event":   call.PathParams["event"],
			"hookUrl": body["hookUrl"],
		}

	default:
		return http.StatusOK, map[string]any{"success": true}
	}
}

// remember adds a search hit to the lead table so later reads and patches
// on its id succeed. Known leads are left untouched.
func (s *Simulator) remember(hit map[string]any) {
	id, _ := hit["id"].(string)
	if _, ok := s.leads[id]; ok || id == "" {
		return
	}
	lead := make(map[string]any, len(hit))
	for k, v := range hit {
		lead[k] = v
	}
	s.leads[id] = lead
	s.leadOrder = append(s.leadOrder, id)
}

func leadNotFound(id string) (int, any) {
	return http.StatusNotFound, map[string]any{
		"success":    false,
		"error":      "Lead not found",
		"error_info": "No lead with id " + id,
	}
}

// toMap normalizes a request body into a fresh map
func toMap(body any) map[string]any {
	out := map[string]any{}
	if body == nil {
		return out
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}
