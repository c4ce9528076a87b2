package cache

import (
	"maps"
	"sync"

	"github.com/crmbridge/gateway/internal/domain/integration"
)

// keyLock is a per-project mutex shared by every goroutine waiting on the key
type keyLock struct {
	mu      sync.Mutex
	waiters int
}

// InMemoryIdentityStore implements IdentityMappingStore using an in-memory map.
// Nothing is persisted; a restart returns to the seed mappings.
type InMemoryIdentityStore struct {
	mu       sync.RWMutex
	mappings map[string]int64
	// highest id ever recorded or reserved, never lowered
	highWater int64

	locksMu sync.Mutex
	locks   map[string]*keyLock
}

// NewInMemoryIdentityStore creates a store holding a copy of seed
func NewInMemoryIdentityStore(seed map[string]int64) *InMemoryIdentityStore {
	s := &InMemoryIdentityStore{
		mappings:  make(map[string]int64, len(seed)),
		highWater: integration.SyntheticDealIDFloor,
		locks:     make(map[string]*keyLock),
	}
	for projectID, dealID := range seed {
		s.mappings[projectID] = dealID
		if dealID > s.highWater {
			s.highWater = dealID
		}
	}
	return s
}

// Lookup returns the deal id recorded for projectID
func (s *InMemoryIdentityStore) Lookup(projectID string) (int64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dealID, ok := s.mappings[projectID]
	return dealID, ok
}

// Record inserts or overwrites the mapping for projectID
func (s *InMemoryIdentityStore) Record(projectID string, dealID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mappings[projectID] = dealID
	if dealID > s.highWater {
		s.highWater = dealID
	}
}

// NextSyntheticID reserves max(known ids, floor) + 1. The reservation is
// kept even if the id is never recorded, so two callers never share an id.
func (s *InMemoryIdentityStore) NextSyntheticID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.highWater++
	return s.highWater
}

// Lock serializes work on one project id. Lock entries are dropped once the
// last holder releases them.
func (s *InMemoryIdentityStore) Lock(projectID string) func() {
	s.locksMu.Lock()
	l, ok := s.locks[projectID]
	if !ok {
		l = &keyLock{}
		s.locks[projectID] = l
	}
	l.waiters++
	s.locksMu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			s.locksMu.Lock()
			l.waiters--
			if l.waiters == 0 {
				delete(s.locks, projectID)
			}
			s.locksMu.Unlock()
		})
	}
}

// Snapshot returns a copy of all mappings
func (s *InMemoryIdentityStore) Snapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.mappings)
}

// Size returns the number of mappings (for testing/monitoring)
func (s *InMemoryIdentityStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mappings)
}

// Ensure InMemoryIdentityStore implements IdentityMappingStore
var _ integration.IdentityMappingStore = (*InMemoryIdentityStore)(nil)
