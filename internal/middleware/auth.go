package middleware

import (
	"net/http"
	"strings"

	"github.com/go-authgate/ssogate/internal/keyset"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// QueryTokenParam is the query parameter consulted when no Authorization
// header is present.
const QueryTokenParam = "ssoToken"

// ExtractToken returns the bearer token for the request. The Authorization
// header takes priority; the ssoToken query parameter is only consulted when
// the header is absent or not Bearer-formed.
func ExtractToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		return strings.TrimPrefix(header, bearerPrefix)
	}
	return c.Query(QueryTokenParam)
}

// RequireValidToken is a middleware that gates protected routes on a signed
// bearer token with the expected audience. A request with no token at all is
// rejected with 401; a token that fails verification is rejected with 403.
// Response bodies stay empty so verification internals do not leak.
func RequireValidToken(audience string, keys *keyset.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ExtractToken(c)
		if tokenString == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		parsed, err := jwt.Parse(
			tokenString,
			keys.Keyfunc(c.Request.Context()),
			jwt.WithValidMethods([]string{"RS256"}),
			jwt.WithAudience(audience),
			jwt.WithExpirationRequired(),
		)
		if err != nil || !parsed.Valid {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		// Downstream handlers re-read the header themselves; claims are not
		// forwarded through the context.
		c.Next()
	}
}
