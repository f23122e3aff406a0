package handlers

import (
	"errors"
	"net/http"

	"github.com/go-authgate/ssogate/internal/config"
	"github.com/go-authgate/ssogate/internal/middleware"
	"github.com/go-authgate/ssogate/internal/obo"
	"github.com/go-authgate/ssogate/internal/token"

	"github.com/gin-gonic/gin"
)

// ExchangeHandler exchanges a validated bearer token for a delegated access
// token. It must be mounted behind the validation gate: the asserted token is
// re-read from the request and its tenant claim is decoded without another
// signature check.
type ExchangeHandler struct {
	cfg *config.Config
	obo *obo.Client
}

func NewExchangeHandler(cfg *config.Config, client *obo.Client) *ExchangeHandler {
	return &ExchangeHandler{cfg: cfg, obo: client}
}

type exchangeRequest struct {
	ClientID string   `json:"clientid"`
	Scopes   []string `json:"scopes"`
}

// ExchangeToken handles the body-driven variant: the caller supplies the
// client id and target scopes in the POST body.
func (h *ExchangeHandler) ExchangeToken(c *gin.Context) {
	var body exchangeRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.exchange(c, body.ClientID, body.Scopes)
}

// ExchangeDefaultToken handles the server-configured variant: client id and
// scopes come from configuration.
func (h *ExchangeHandler) ExchangeDefaultToken(c *gin.Context) {
	h.exchange(c, h.cfg.ClientID, h.cfg.DefaultScopes)
}

func (h *ExchangeHandler) exchange(c *gin.Context, clientID string, scopes []string) {
	asserted := middleware.ExtractToken(c)
	if asserted == "" {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	tenant, err := obo.TenantFromToken(asserted)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result, err := h.obo.Exchange(obo.Request{
		Tenant:       tenant,
		Assertion:    asserted,
		ClientID:     clientID,
		ClientSecret: h.cfg.ClientSecret,
		Scopes:       scopes,
	})
	if err != nil {
		if errors.Is(err, token.ErrConsentRequired) {
			// Expected first-run outcome: the frontend redirects into an
			// interactive consent flow on this marker.
			c.JSON(http.StatusForbidden, gin.H{"error": "consent_required"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": result.AccessToken})
}
