package integration

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/crmbridge/gateway/internal/domain/integration"
)

// OAuthProvider is the token table key used for CRM tokens
const OAuthProvider = "pipedrive"

// pendingStateTTL bounds how long an authorize redirect stays redeemable
const pendingStateTTL = 10 * time.Minute

// OAuthSettings holds the CRM OAuth app registration
type OAuthSettings struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	Scopes       []string
}

// OAuthService runs the authorization code flow against the CRM. Without
// client credentials the callback only echoes what it received.
type OAuthService struct {
	config  *oauth2.Config
	enabled bool
	tokens  integration.TokenStore
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewOAuthService creates a new OAuth service
func NewOAuthService(settings OAuthSettings, tokens integration.TokenStore, logger *zap.Logger) *OAuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OAuthService{
		config: &oauth2.Config{
			ClientID:     settings.ClientID,
			ClientSecret: settings.ClientSecret,
			RedirectURL:  settings.RedirectURL,
			Scopes:       settings.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   settings.AuthURL,
				TokenURL:  settings.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		enabled: settings.ClientID != "" && settings.ClientSecret != "",
		tokens:  tokens,
		logger:  logger.Named("oauth"),
		now:     time.Now,
		pending: make(map[string]time.Time),
	}
}

// Enabled reports whether codes are exchanged for tokens
func (s *OAuthService) Enabled() bool {
	return s.enabled
}

// AuthorizeURL returns the CRM consent URL with a fresh state value
func (s *OAuthService) AuthorizeURL() (string, error) {
	if s.config.ClientID == "" {
		return "", integration.NewConfigurationError("oauth client id is not set")
	}
	state := uuid.NewString()

	s.mu.Lock()
	s.prune()
	s.pending[state] = s.now().Add(pendingStateTTL)
	s.mu.Unlock()

	return s.config.AuthCodeURL(state), nil
}

// Callback handles the redirect back from the CRM. params holds every query
// parameter of the redirect.
func (s *OAuthService) Callback(ctx context.Context, code string, params map[string]string) (*OAuthCallbackResult, error) {
	if code == "" {
		return nil, integration.NewValidationError("code is required")
	}
	result := &OAuthCallbackResult{Code: code, Params: params}
	if !s.enabled {
		return result, nil
	}

	state := params["state"]
	if state == "" {
		return nil, integration.NewValidationError("state is required")
	}
	if !s.redeem(state) {
		return nil, integration.NewValidationError("unknown or expired oauth state")
	}

	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, exchangeError(err)
	}
	s.tokens.Save(OAuthProvider, token)
	s.logger.Info("oauth token stored",
		zap.String("provider", OAuthProvider),
		zap.Time("expiry", token.Expiry),
	)

	view := maskToken(OAuthProvider, token)
	result.Exchanged = true
	result.Token = &view
	return result, nil
}

// Tokens lists stored tokens with their secrets masked, ordered by provider
func (s *OAuthService) Tokens() []TokenView {
	stored := s.tokens.List()
	providers := make([]string, 0, len(stored))
	for provider := range stored {
		providers = append(providers, provider)
	}
	sort.Strings(providers)

	views := make([]TokenView, 0, len(providers))
	for _, provider := range providers {
		views = append(views, maskToken(provider, stored[provider]))
	}
	return views
}

// redeem consumes a pending state
func (s *OAuthService) redeem(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune()
	if _, ok := s.pending[state]; !ok {
		return false
	}
	delete(s.pending, state)
	return true
}

// prune drops expired states; the caller holds mu
func (s *OAuthService) prune() {
	now := s.now()
	for state, expires := range s.pending {
		if now.After(expires) {
			delete(s.pending, state)
		}
	}
}

func maskToken(provider string, token *oauth2.Token) TokenView {
	view := TokenView{
		Provider:     provider,
		AccessToken:  integration.MaskSecret(token.AccessToken),
		RefreshToken: integration.MaskSecret(token.RefreshToken),
		TokenType:    token.TokenType,
	}
	if !token.Expiry.IsZero() {
		expiry := token.Expiry
		view.Expiry = &expiry
	}
	return view
}

// exchangeError maps a token endpoint failure onto the integration errors
func exchangeError(err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		message := retrieveErr.ErrorDescription
		if message == "" {
			message = retrieveErr.ErrorCode
		}
		if message == "" {
			message = http.StatusText(retrieveErr.Response.StatusCode)
		}
		return &integration.RemoteError{
			System:  integration.SystemPipedrive,
			Status:  retrieveErr.Response.StatusCode,
			Message: message,
			Body:    retrieveErr.Body,
		}
	}
	return fmt.Errorf("%w: oauth token exchange: %v", integration.ErrTransport, err)
}
