package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"taxcore/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return tok
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	auth := middleware.NewAuth(secret)
	r := gin.New()
	r.GET("/rules", auth.RequireRole(middleware.RoleAdmin, middleware.RoleAccountant), func(c *gin.Context) {
		c.String(http.StatusOK, middleware.UserID(c))
	})
	return r
}

func TestRequireRole(t *testing.T) {
	exp := time.Now().Add(time.Hour).Unix()
	tests := []struct {
		name   string
		header string
		cookie string
		status int
		body   string
	}{
		{"missing", "", "", http.StatusUnauthorized, ""},
		{"bad scheme", "Token abc", "", http.StatusUnauthorized, ""},
		{"wrong key", "Bearer " + sign(t, "other", jwt.MapClaims{"sub": "u1", "role": "admin", "exp": exp}), "", http.StatusUnauthorized, ""},
		{"expired", "Bearer " + sign(t, secret, jwt.MapClaims{"sub": "u1", "role": "admin", "exp": time.Now().Add(-time.Hour).Unix()}), "", http.StatusUnauthorized, ""},
		{"no role", "Bearer " + sign(t, secret, jwt.MapClaims{"sub": "u1", "exp": exp}), "", http.StatusForbidden, ""},
		{"role not allowed", "Bearer " + sign(t, secret, jwt.MapClaims{"sub": "u1", "role": "viewer", "exp": exp}), "", http.StatusForbidden, ""},
		{"header", "Bearer " + sign(t, secret, jwt.MapClaims{"sub": "u1", "role": "admin", "exp": exp}), "", http.StatusOK, "u1"},
		{"cookie", "", sign(t, secret, jwt.MapClaims{"sub": "u2", "role": "accountant", "exp": exp}), http.StatusOK, "u2"},
	}

	r := newRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/rules", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestParseToken_RejectsNonHMAC(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "u1", "role": "admin"})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = middleware.NewAuth(secret).ParseToken(raw)
	assert.Error(t, err)
}
