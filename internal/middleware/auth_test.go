package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-authgate/ssogate/internal/keyset"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAudience = "api://test-app-id"
	testKeyID    = "test-key-1"
)

func newTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

// newKeyServer serves a JWKS containing the public half of the given key.
func newKeyServer(t *testing.T, key *rsa.PrivateKey, kid string) *httptest.Server {
	t.Helper()

	pub, err := jwk.FromRaw(key.Public())
	require.NoError(t, err)
	require.NoError(t, pub.Set(jwk.KeyIDKey, kid))
	require.NoError(t, pub.Set(jwk.AlgorithmKey, "RS256"))

	set := jwk.NewSet()
	require.NoError(t, set.AddKey(pub))

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(set)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = kid
	signed, err := tok.SignedString(key)
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"aud": testAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
		"tid": "tenant-123",
	}
}

// setupGateRouter mounts a protected route and returns the engine plus a
// counter of how many times the inner handler ran.
func setupGateRouter(discoveryURL string) (*gin.Engine, *int) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	calls := 0
	keys := keyset.NewProvider(discoveryURL)
	r.GET("/protected", RequireValidToken(testAudience, keys), func(c *gin.Context) {
		calls++
		c.String(http.StatusOK, "OK")
	})
	return r, &calls
}

func doRequest(r *gin.Engine, target string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequestWithContext(context.Background(), "GET", target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRequireValidToken_NoToken(t *testing.T) {
	key := newTestKey(t)
	ts := newKeyServer(t, key, testKeyID)
	r, calls := setupGateRouter(ts.URL)

	w := doRequest(r, "/protected", nil)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, *calls)
}

func TestRequireValidToken_ValidHeaderToken(t *testing.T) {
	key := newTestKey(t)
	ts := newKeyServer(t, key, testKeyID)
	r, calls := setupGateRouter(ts.URL)

	tok := signToken(t, key, testKeyID, validClaims())
	w := doRequest(r, "/protected", map[string]string{"Authorization": "Bearer " + tok})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, *calls)
}

func TestRequireValidToken_ValidQueryToken(t *testing.T) {
	key := newTestKey(t)
	ts := newKeyServer(t, key, testKeyID)
	r, calls := setupGateRouter(ts.URL)

	tok := signToken(t, key, testKeyID, validClaims())
	w := doRequest(r, "/protected?ssoToken="+tok, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, *calls)
}

func TestRequireValidToken_BadSignature(t *testing.T) {
	key := newTestKey(t)
	ts := newKeyServer(t, key, testKeyID)
	r, calls := setupGateRouter(ts.URL)

	// Signed with a different key but claiming the published kid
	otherKey := newTestKey(t)
	tok := signToken(t, otherKey, testKeyID, validClaims())
	w := doRequest(r, "/protected", map[string]string{"Authorization": "Bearer " + tok})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, *calls)
}

func TestRequireValidToken_AudienceMismatch(t *testing.T) {
	key := newTestKey(t)
	ts := newKeyServer(t, key, testKeyID)
	r, calls := setupGateRouter(ts.URL)

	claims := validClaims()
	claims["aud"] = "api://some-other-app"
	tok := signToken(t, key, testKeyID, claims)
	w := doRequest(r, "/protected", map[string]string{"Authorization": "Bearer " + tok})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, *calls)
}

func TestRequireValidToken_ExpiredToken(t *testing.T) {
	key := newTestKey(t)
	ts := newKeyServer(t, key, testKeyID)
	r, calls := setupGateRouter(ts.URL)

	claims := validClaims()
	claims["exp"] = time.Now().Add(-time.Hour).Unix()
	tok := signToken(t, key, testKeyID, claims)
	w := doRequest(r, "/protected", map[string]string{"Authorization": "Bearer " + tok})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, *calls)
}

func TestRequireValidToken_UnknownKeyID(t *testing.T) {
	key := newTestKey(t)
	ts := newKeyServer(t, key, testKeyID)
	r, calls := setupGateRouter(ts.URL)

	tok := signToken(t, key, "rotated-away-kid", validClaims())
	w := doRequest(r, "/protected", map[string]string{"Authorization": "Bearer " + tok})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, *calls)
}

func TestRequireValidToken_KeyFetchFailure(t *testing.T) {
	key := newTestKey(t)
	ts := newKeyServer(t, key, testKeyID)
	tok := signToken(t, key, testKeyID, validClaims())

	// Tear the key server down so the fetch fails hard
	discoveryURL := ts.URL
	ts.Close()
	r, calls := setupGateRouter(discoveryURL)

	w := doRequest(r, "/protected", map[string]string{"Authorization": "Bearer " + tok})

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, *calls)
}

func TestRequireValidToken_HeaderBeatsQuery(t *testing.T) {
	key := newTestKey(t)
	ts := newKeyServer(t, key, testKeyID)

	valid := signToken(t, key, testKeyID, validClaims())
	otherKey := newTestKey(t)
	forged := signToken(t, otherKey, testKeyID, validClaims())

	// Forged token in the header, valid token in the query: the header wins,
	// so the request is rejected.
	r, calls := setupGateRouter(ts.URL)
	w := doRequest(r, "/protected?ssoToken="+valid, map[string]string{"Authorization": "Bearer " + forged})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, *calls)

	// Valid token in the header, forged token in the query: admitted.
	r2, calls2 := setupGateRouter(ts.URL)
	w2 := doRequest(r2, "/protected?ssoToken="+forged, map[string]string{"Authorization": "Bearer " + valid})
	assert.Equal(t, http.StatusOK, w2.Code)
	assert.Equal(t, 1, *calls2)
}

func TestExtractToken(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{name: "bearer header", header: "Bearer abc", want: "abc"},
		{name: "query only", query: "xyz", want: "xyz"},
		{name: "header wins over query", header: "Bearer abc", query: "xyz", want: "abc"},
		{name: "non-bearer header falls back to query", header: "Basic dXNlcg==", query: "xyz", want: "xyz"},
		{name: "nothing", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			target := "/x"
			if tt.query != "" {
				target += "?ssoToken=" + tt.query
			}
			req, _ := http.NewRequestWithContext(context.Background(), "GET", target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			c.Request = req

			assert.Equal(t, tt.want, ExtractToken(c))
		})
	}
}
