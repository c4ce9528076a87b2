package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appintegration "github.com/crmbridge/gateway/internal/application/integration"
)

// OAuthHandler handles the CRM OAuth redirect flow
type OAuthHandler struct {
	BaseHandler
	oauthService *appintegration.OAuthService
}

// NewOAuthHandler creates a new OAuthHandler
func NewOAuthHandler(oauthService *appintegration.OAuthService) *OAuthHandler {
	return &OAuthHandler{oauthService: oauthService}
}

// Authorize redirects the browser to the CRM consent page
func (h *OAuthHandler) Authorize(c *gin.Context) {
	target, err := h.oauthService.AuthorizeURL()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Redirect(http.StatusFound, target)
}

// Callback godoc
// @ID           oauthCallback
// @Summary      OAuth redirect target
// @Description  Exchanges the code for a token when client credentials are configured,
// @Description  otherwise echoes the code and query parameters.
// @Tags         oauth
// @Param        code query string true "Authorization code"
// @Router       /callback [get]
func (h *OAuthHandler) Callback(c *gin.Context) {
	query := c.Request.URL.Query()
	params := make(map[string]string, len(query))
	for key := range query {
		params[key] = query.Get(key)
	}

	result, err := h.oauthService.Callback(c.Request.Context(), c.Query("code"), params)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Tokens lists stored tokens with masked secrets
func (h *OAuthHandler) Tokens(c *gin.Context) {
	h.Success(c, h.oauthService.Tokens())
}
