package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	iauth "github.com/charlesng35/otpauth/internal/auth"
	"github.com/charlesng35/otpauth/pkg/response"
)

func newSecureRouter(t *testing.T, jwtSvc *iauth.JWTService) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/secure", Auth(jwtSvc), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  c.GetString(CtxUserIDKey),
			"is_admin": c.GetBool(CtxIsAdminKey),
		})
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret:         "secret",
		Issuer:         "test-suite",
		AccessTokenTTL: time.Minute,
	})
	require.NoError(t, err)

	token, err := jwtSvc.GenerateAccessToken(iauth.AccessTokenInput{
		UserID:  "user-123",
		IsAdmin: true,
	})
	require.NoError(t, err)

	r := newSecureRouter(t, jwtSvc)

	// Missing Authorization header -> 401
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/secure", nil)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Equal(t, "Bearer", w.Header().Get("WWW-Authenticate"))

	var body response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "UNAUTHORIZED", body.Code)

	// Valid token -> downstream handler executes
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/secure", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	require.Equal(t, "user-123", payload["user_id"])
	require.Equal(t, true, payload["is_admin"])
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	jwtSvc, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret: "secret",
		Clock:  func() time.Time { return now },
	})
	require.NoError(t, err)

	other, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret: "another-secret",
		Clock:  func() time.Time { return now },
	})
	require.NoError(t, err)

	foreign, err := other.GenerateAccessToken(iauth.AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	stale, err := iauth.NewJWTService(iauth.JWTConfig{
		Secret: "secret",
		Clock:  func() time.Time { return now.Add(-time.Hour) },
	})
	require.NoError(t, err)
	expired, err := stale.GenerateAccessToken(iauth.AccessTokenInput{UserID: "user-1"})
	require.NoError(t, err)

	r := newSecureRouter(t, jwtSvc)

	for name, header := range map[string]string{
		"basic scheme":  "Basic dXNlcjpwYXNz",
		"empty bearer":  "Bearer ",
		"garbage":       "Bearer not-a-jwt",
		"wrong secret":  "Bearer " + foreign,
		"expired token": "Bearer " + expired,
	} {
		t.Run(name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/secure", nil)
			req.Header.Set("Authorization", header)
			r.ServeHTTP(w, req)
			require.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}
