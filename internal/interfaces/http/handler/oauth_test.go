package handler

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appintegration "github.com/crmbridge/gateway/internal/application/integration"
	"github.com/crmbridge/gateway/internal/infrastructure/cache"
	"github.com/crmbridge/gateway/internal/interfaces/http/dto"
	"github.com/crmbridge/gateway/internal/interfaces/http/middleware"
)

func setupOAuthRouter(settings appintegration.OAuthSettings) *gin.Engine {
	h := NewOAuthHandler(appintegration.NewOAuthService(settings, cache.NewInMemoryTokenStore(), zap.NewNop()))
	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/oauth/authorize", h.Authorize)
	r.GET("/callback", h.Callback)
	r.GET("/tokens", h.Tokens)
	return r
}

func serve(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestOAuthHandler_EchoMode(t *testing.T) {
	r := setupOAuthRouter(appintegration.OAuthSettings{})

	w := serve(r, "/callback?code=abc123&state=xyz&extra=1")

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decodeAs[appintegration.OAuthCallbackResult](t, w)
	assert.Equal(t, "abc123", resp.Data.Code)
	assert.Equal(t, map[string]string{"code": "abc123", "state": "xyz", "extra": "1"}, resp.Data.Params)
	assert.False(t, resp.Data.Exchanged)
	assert.Nil(t, resp.Data.Token)
}

func TestOAuthHandler_CallbackRequiresCode(t *testing.T) {
	r := setupOAuthRouter(appintegration.OAuthSettings{})

	w := serve(r, "/callback")

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	resp := decodeAs[any](t, w)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
}

func TestOAuthHandler_AuthorizeWithoutClient(t *testing.T) {
	r := setupOAuthRouter(appintegration.OAuthSettings{})

	w := serve(r, "/oauth/authorize")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decodeAs[any](t, w)
	assert.Equal(t, dto.ErrCodeConfiguration, resp.Error.Code)
}

func TestOAuthHandler_ExchangeFlow(t *testing.T) {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.Form.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Code expired"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"access-0123456789","refresh_token":"refresh-0123456789","token_type":"Bearer","expires_in":3600}`))
	}))
	defer tokenServer.Close()

	r := setupOAuthRouter(appintegration.OAuthSettings{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8000/callback",
		AuthURL:      "https://oauth.pipedrive.example/oauth/authorize",
		TokenURL:     tokenServer.URL,
	})

	authorize := func(t *testing.T) string {
		t.Helper()
		redirect := serve(r, "/oauth/authorize")
		require.Equal(t, http.StatusFound, redirect.Code)
		location, err := url.Parse(redirect.Header().Get("Location"))
		require.NoError(t, err)
		assert.Equal(t, "client-id", location.Query().Get("client_id"))
		state := location.Query().Get("state")
		require.NotEmpty(t, state)
		return state
	}
	state := authorize(t)

	t.Run("unknown state rejected", func(t *testing.T) {
		w := serve(r, "/callback?code=good-code&state=forged")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("missing state rejected", func(t *testing.T) {
		w := serve(r, "/callback?code=good-code")
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decodeAs[any](t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	})

	t.Run("token endpoint error", func(t *testing.T) {
		w := serve(r, "/callback?code=bad-code&state="+url.QueryEscape(authorize(t)))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeAs[any](t, w)
		assert.Equal(t, dto.ErrCodeRemote, resp.Error.Code)
		assert.Equal(t, "Code expired", resp.Error.Message)
	})

	t.Run("exchange stores token", func(t *testing.T) {
		w := serve(r, "/callback?code=good-code&state="+url.QueryEscape(state))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decodeAs[appintegration.OAuthCallbackResult](t, w)
		assert.True(t, resp.Data.Exchanged)
		require.NotNil(t, resp.Data.Token)
		assert.Equal(t, "acce...6789", resp.Data.Token.AccessToken)
	})

	t.Run("state is single use", func(t *testing.T) {
		w := serve(r, "/callback?code=good-code&state="+url.QueryEscape(state))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	t.Run("tokens are masked", func(t *testing.T) {
		w := serve(r, "/tokens")
		require.Equal(t, http.StatusOK, w.Code)
		resp := decodeAs[[]appintegration.TokenView](t, w)
		require.Len(t, resp.Data, 1)
		assert.Equal(t, appintegration.OAuthProvider, resp.Data[0].Provider)
		assert.Equal(t, "refr...6789", resp.Data[0].RefreshToken)
		assert.NotContains(t, w.Body.String(), "access-0123456789")
	})
}
