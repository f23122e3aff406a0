// Package obo implements the OAuth2 on-behalf-of grant against a per-tenant
// authority token endpoint.
package obo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/go-authgate/ssogate/internal/token"
)

const (
	// grantTypeJWTBearer is the on-behalf-of assertion grant type
	grantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"

	// requestedTokenUse instructs the provider to treat the assertion as a
	// delegation, not a client credential
	requestedTokenUse = "on_behalf_of"

	// maxResponseBodySize caps token endpoint response reads (1 MB)
	maxResponseBodySize = 1 << 20
)

// oauthError is an OAuth 2.0 error response (RFC 6749 Section 5.2).
type oauthError struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// consentRequired reports whether the provider demands an interactive step
// (first-time consent, or e.g. a mandated MFA challenge) before the
// delegation can succeed.
func (e *oauthError) consentRequired() bool {
	return e.Code == "invalid_grant" || e.Code == "interaction_required"
}

func (e *oauthError) message() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Code
}

// tokenResponse decodes a successful token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Request carries the inputs for one on-behalf-of exchange.
type Request struct {
	Tenant       string
	Assertion    string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Client performs on-behalf-of exchanges. It holds no per-tenant state; the
// token endpoint is derived from the request's tenant on every call and no
// delegated token is ever cached.
type Client struct {
	authorityBase string
	httpClient    *http.Client
}

func NewClient(authorityBase string, timeout time.Duration) *Client {
	return &Client{
		authorityBase: strings.TrimRight(authorityBase, "/"),
		httpClient:    &http.Client{Timeout: timeout},
	}
}

// TenantFromToken decodes the token without verifying it and returns the
// tenant identifier claim. Callers must only pass tokens that already went
// through the validation gate.
func TenantFromToken(raw string) (string, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return "", fmt.Errorf("%w: %v", token.ErrInvalidToken, err)
	}

	tid, ok := claims["tid"].(string)
	if !ok || tid == "" {
		return "", token.ErrMissingTenant
	}
	return tid, nil
}

// Exchange requests a delegated access token for the given assertion. Each
// call issues a fresh token endpoint request; failures are classified into
// token.ErrConsentRequired or token.ErrExchangeFailed and never retried.
//
// The outbound call deliberately runs on a background context: a caller
// disconnect mid-exchange does not cancel the in-flight provider request.
func (c *Client) Exchange(req Request) (*token.ExchangeResult, error) {
	if req.Tenant == "" {
		return nil, token.ErrMissingTenant
	}
	if req.Assertion == "" {
		return nil, token.ErrNoToken
	}

	form := url.Values{}
	form.Set("grant_type", grantTypeJWTBearer)
	form.Set("assertion", req.Assertion)
	form.Set("requested_token_use", requestedTokenUse)
	form.Set("client_id", req.ClientID)
	form.Set("client_secret", req.ClientSecret)
	form.Set("scope", strings.Join(req.Scopes, " "))

	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.authorityBase, req.Tenant)
	httpReq, err := http.NewRequestWithContext(
		context.Background(), http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", token.ErrExchangeFailed, err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", token.ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", token.ErrExchangeFailed, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, classifyError(resp.StatusCode, body)
	}

	var decoded tokenResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", token.ErrExchangeFailed, err)
	}
	if decoded.AccessToken == "" {
		return nil, fmt.Errorf("%w: provider returned empty access_token", token.ErrExchangeFailed)
	}

	result := &token.ExchangeResult{
		AccessToken: decoded.AccessToken,
		TokenType:   decoded.TokenType,
		Scope:       decoded.Scope,
	}
	if decoded.ExpiresIn > 0 {
		result.ExpiresAt = time.Now().Add(time.Duration(decoded.ExpiresIn) * time.Second)
	}
	return result, nil
}

// classifyError maps a token endpoint error response onto the exchange error
// taxonomy.
func classifyError(statusCode int, body []byte) error {
	var oauthErr oauthError
	if err := json.Unmarshal(body, &oauthErr); err != nil || oauthErr.Code == "" {
		return fmt.Errorf("%w: status %d", token.ErrExchangeFailed, statusCode)
	}

	if oauthErr.consentRequired() {
		return fmt.Errorf("%w: %s", token.ErrConsentRequired, oauthErr.message())
	}
	return fmt.Errorf("%w: %s", token.ErrExchangeFailed, oauthErr.message())
}
