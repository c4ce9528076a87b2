package integration

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/crmbridge/gateway/internal/domain/integration"
	"github.com/crmbridge/gateway/internal/infrastructure/cache"
)

// tokenRequest is what the mock token endpoint received
type tokenRequest struct {
	form     url.Values
	user     string
	password string
	basic    bool
}

// createMockTokenServer serves the OAuth token endpoint
func createMockTokenServer(t *testing.T, status int, body string) (*httptest.Server, *tokenRequest) {
	t.Helper()
	captured := &tokenRequest{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err == nil {
			captured.form = r.PostForm
		}
		captured.user, captured.password, captured.basic = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, captured
}

func newOAuthService(tokenURL string, tokens integration.TokenStore) *OAuthService {
	return NewOAuthService(OAuthSettings{
		ClientID:     "client-123",
		ClientSecret: "secret-456",
		RedirectURL:  "http://localhost:8000/callback",
		AuthURL:      "https://oauth.pipedrive.com/oauth/authorize",
		TokenURL:     tokenURL,
	}, tokens, zap.NewNop())
}

func TestOAuthService_AuthorizeURL(t *testing.T) {
	svc := newOAuthService("https://oauth.pipedrive.com/oauth/token", cache.NewInMemoryTokenStore())

	raw, err := svc.AuthorizeURL()
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "oauth.pipedrive.com", u.Host)
	assert.Equal(t, "client-123", u.Query().Get("client_id"))
	assert.Equal(t, "http://localhost:8000/callback", u.Query().Get("redirect_uri"))
	assert.NotEmpty(t, u.Query().Get("state"))

	unconfigured := NewOAuthService(OAuthSettings{}, cache.NewInMemoryTokenStore(), nil)
	_, err = unconfigured.AuthorizeURL()
	assert.ErrorIs(t, err, integration.ErrConfiguration)
}

func TestOAuthService_Callback_Echo(t *testing.T) {
	tokens := cache.NewInMemoryTokenStore()
	svc := NewOAuthService(OAuthSettings{}, tokens, nil)
	assert.False(t, svc.Enabled())

	result, err := svc.Callback(context.Background(), "code-1", map[string]string{"code": "code-1", "state": "xyz"})
	require.NoError(t, err)
	assert.Equal(t, "code-1", result.Code)
	assert.Equal(t, "xyz", result.Params["state"])
	assert.False(t, result.Exchanged)
	assert.Empty(t, tokens.List())

	_, err = svc.Callback(context.Background(), "", nil)
	assert.ErrorIs(t, err, integration.ErrValidation)
}

func TestOAuthService_Callback_Exchange(t *testing.T) {
	server, captured := createMockTokenServer(t, http.StatusOK,
		`{"access_token":"access-abcdef-9999","refresh_token":"refresh-123456-0000","token_type":"Bearer","expires_in":3600}`)
	tokens := cache.NewInMemoryTokenStore()
	svc := newOAuthService(server.URL, tokens)

	authURL, err := svc.AuthorizeURL()
	require.NoError(t, err)
	parsed, _ := url.Parse(authURL)
	state := parsed.Query().Get("state")

	result, err := svc.Callback(context.Background(), "auth-code", map[string]string{"code": "auth-code", "state": state})
	require.NoError(t, err)
	assert.True(t, result.Exchanged)
	require.NotNil(t, result.Token)
	assert.Equal(t, "acce...9999", result.Token.AccessToken)
	assert.Equal(t, "refr...0000", result.Token.RefreshToken)
	assert.NotNil(t, result.Token.Expiry)

	assert.Equal(t, "auth-code", captured.form.Get("code"))
	assert.Equal(t, "authorization_code", captured.form.Get("grant_type"))
	assert.True(t, captured.basic)
	assert.Equal(t, "client-123", captured.user)
	assert.Equal(t, "secret-456", captured.password)

	stored, ok := tokens.Get(OAuthProvider)
	require.True(t, ok)
	assert.Equal(t, "access-abcdef-9999", stored.AccessToken)

	// a state is redeemable once
	_, err = svc.Callback(context.Background(), "auth-code", map[string]string{"state": state})
	assert.ErrorIs(t, err, integration.ErrValidation)
}

func TestOAuthService_Callback_ExpiredState(t *testing.T) {
	server, _ := createMockTokenServer(t, http.StatusOK, `{"access_token":"a","token_type":"Bearer"}`)
	svc := newOAuthService(server.URL, cache.NewInMemoryTokenStore())

	authURL, err := svc.AuthorizeURL()
	require.NoError(t, err)
	parsed, _ := url.Parse(authURL)

	svc.now = func() time.Time { return time.Now().Add(pendingStateTTL + time.Minute) }
	_, err = svc.Callback(context.Background(), "c", map[string]string{"state": parsed.Query().Get("state")})
	assert.ErrorIs(t, err, integration.ErrValidation)
}

func TestOAuthService_Callback_RequiresState(t *testing.T) {
	server, captured := createMockTokenServer(t, http.StatusOK, `{"access_token":"a","token_type":"Bearer"}`)
	tokens := cache.NewInMemoryTokenStore()
	svc := newOAuthService(server.URL, tokens)

	_, err := svc.Callback(context.Background(), "code-1", map[string]string{"code": "code-1"})

	assert.ErrorIs(t, err, integration.ErrValidation)
	assert.Nil(t, captured.form, "token endpoint must not be called")
	assert.Empty(t, tokens.List())
}

func TestOAuthService_Callback_RejectedCode(t *testing.T) {
	server, _ := createMockTokenServer(t, http.StatusBadRequest,
		`{"error":"invalid_grant","error_description":"Authorization code expired"}`)
	svc := newOAuthService(server.URL, cache.NewInMemoryTokenStore())
	authURL, err := svc.AuthorizeURL()
	require.NoError(t, err)
	parsed, _ := url.Parse(authURL)

	_, err = svc.Callback(context.Background(), "stale", map[string]string{"state": parsed.Query().Get("state")})

	var remoteErr *integration.RemoteError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, http.StatusBadRequest, remoteErr.Status)
	assert.Equal(t, "Authorization code expired", remoteErr.Message)
}

func TestOAuthService_Tokens(t *testing.T) {
	tokens := cache.NewInMemoryTokenStore()
	tokens.Save("zeta", &oauth2.Token{AccessToken: "short"})
	tokens.Save(OAuthProvider, &oauth2.Token{AccessToken: "0123456789abcdef", TokenType: "Bearer"})
	svc := NewOAuthService(OAuthSettings{}, tokens, nil)

	views := svc.Tokens()
	require.Len(t, views, 2)
	assert.Equal(t, OAuthProvider, views[0].Provider)
	assert.Equal(t, "0123...cdef", views[0].AccessToken)
	assert.Nil(t, views[0].Expiry)
	assert.Equal(t, "zeta", views[1].Provider)
	assert.Equal(t, "***", views[1].AccessToken)
}
