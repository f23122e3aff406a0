package token

import "time"

// ExchangeResult represents the outcome of a successful on-behalf-of exchange
type ExchangeResult struct {
	AccessToken string    // The delegated access token
	TokenType   string    // "Bearer"
	ExpiresAt   time.Time // Token expiration time
	Scope       string    // Space-separated scopes granted by the provider
}
