package cache

import (
	"sync"

	"golang.org/x/oauth2"

	"github.com/crmbridge/gateway/internal/domain/integration"
)

// InMemoryTokenStore implements TokenStore using an in-memory map keyed by provider
type InMemoryTokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*oauth2.Token
}

// NewInMemoryTokenStore creates an empty token store
func NewInMemoryTokenStore() *InMemoryTokenStore {
	return &InMemoryTokenStore{tokens: make(map[string]*oauth2.Token)}
}

// Save stores token for provider, replacing any previous token
func (s *InMemoryTokenStore) Save(provider string, token *oauth2.Token) {
	if token == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[provider] = token
}

// Get returns the token stored for provider
func (s *InMemoryTokenStore) Get(provider string) (*oauth2.Token, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tokens[provider]
	return t, ok
}

// List returns a shallow copy of the token table
func (s *InMemoryTokenStore) List() map[string]*oauth2.Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]*oauth2.Token, len(s.tokens))
	for k, v := range s.tokens {
		out[k] = v
	}
	return out
}

var _ integration.TokenStore = (*InMemoryTokenStore)(nil)
