package token

import "errors"

var (
	// ErrNoToken indicates no bearer token was presented
	ErrNoToken = errors.New("no token provided")

	// ErrInvalidToken indicates the token failed signature or claim checks
	ErrInvalidToken = errors.New("invalid token")

	// ErrAudienceMismatch indicates the audience claim does not match the expected value
	ErrAudienceMismatch = errors.New("audience mismatch")

	// ErrKeyFetch indicates the signing key set could not be retrieved
	ErrKeyFetch = errors.New("failed to fetch signing keys")

	// ErrKeyNotFound indicates no key in the key set matches the token's key identifier
	ErrKeyNotFound = errors.New("signing key not found")

	// On-behalf-of exchange errors

	// ErrMissingTenant indicates the asserted token carries no tenant claim
	ErrMissingTenant = errors.New("token has no tenant claim")

	// ErrConsentRequired indicates the delegation grant needs an interactive
	// consent or authentication step before it can succeed
	ErrConsentRequired = errors.New("consent required")

	// ErrExchangeFailed indicates the delegation grant failed for any other reason
	ErrExchangeFailed = errors.New("token exchange failed")
)
