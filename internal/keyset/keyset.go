// Package keyset resolves token signing keys from the identity provider's
// published key set.
package keyset

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"

	"github.com/go-authgate/ssogate/internal/token"
)

// Provider fetches public keys from a key discovery endpoint. The key set is
// fetched per verification call; key rotation is handled by the provider side
// and there is nothing to invalidate here.
type Provider struct {
	discoveryURL string
}

func NewProvider(discoveryURL string) *Provider {
	return &Provider{discoveryURL: discoveryURL}
}

// Keyfunc returns a jwt.Keyfunc that selects the verification key by the
// token header's key identifier.
func (p *Provider) Keyfunc(ctx context.Context) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		kid, ok := t.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("%w: token header missing kid", token.ErrKeyNotFound)
		}

		keySet, err := jwk.Fetch(ctx, p.discoveryURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", token.ErrKeyFetch, err)
		}

		key, found := keySet.LookupKeyID(kid)
		if !found {
			return nil, fmt.Errorf("%w: key ID %s not in key set", token.ErrKeyNotFound, kid)
		}

		var rawKey any
		if err := key.Raw(&rawKey); err != nil {
			return nil, fmt.Errorf("failed to materialize key %s: %w", kid, err)
		}

		return rawKey, nil
	}
}
