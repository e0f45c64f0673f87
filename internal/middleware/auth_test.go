package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"moodboard-backend/internal/config"
	"moodboard-backend/internal/middleware"
)

const secret = "test-secret-key-for-jwt-signing-must-be-long-enough"

func newRouter(cfg *config.Config, seen map[string]any) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.AuthMiddleware(cfg))
	router.GET("/test", func(c *gin.Context) {
		seen[middleware.UserIDKey] = c.GetString(middleware.UserIDKey)
		seen[middleware.PlanTierKey] = c.GetString(middleware.PlanTierKey)
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func serve(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", "/test", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	router := newRouter(&config.Config{SupabaseJWTSecret: secret}, map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, serve(router, "").Code)
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	router := newRouter(&config.Config{SupabaseJWTSecret: secret}, map[string]any{})

	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer invalid-token").Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "Token abc").Code)
}

func TestAuthMiddleware_WrongSecret(t *testing.T) {
	router := newRouter(&config.Config{SupabaseJWTSecret: secret}, map[string]any{})
	token := sign(t, jwt.SigningMethodHS256, []byte("another-secret"), jwt.MapClaims{"sub": "user-123"})

	w := serve(router, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "signature is invalid")
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	router := newRouter(&config.Config{SupabaseJWTSecret: secret}, map[string]any{})
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"sub": "user-123",
		"exp": time.Now().Add(-time.Hour).Unix(),
	})

	w := serve(router, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "expired")
}

func TestAuthMiddleware_MissingSubject(t *testing.T) {
	router := newRouter(&config.Config{SupabaseJWTSecret: secret}, map[string]any{})
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"role": "authenticated"})

	assert.Equal(t, http.StatusUnauthorized, serve(router, "Bearer "+token).Code)
}

func TestAuthMiddleware_ValidTokenDefaultsPlan(t *testing.T) {
	seen := map[string]any{}
	router := newRouter(&config.Config{SupabaseJWTSecret: secret, DefaultPlanTier: "free"}, seen)
	token := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"sub": "user-123"})

	w := serve(router, "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "user-123", seen[middleware.UserIDKey])
	assert.Equal(t, "free", seen[middleware.PlanTierKey])
}

func TestAuthMiddleware_PlanFromClaims(t *testing.T) {
	tests := []struct {
		name   string
		claims jwt.MapClaims
		want   string
	}{
		{"top level", jwt.MapClaims{"sub": "u", "plan": "premium"}, "premium"},
		{"app metadata", jwt.MapClaims{"sub": "u", "app_metadata": map[string]any{"plan": "Premium"}}, "premium"},
		{"unknown tier", jwt.MapClaims{"sub": "u", "plan": "platinum"}, "free"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen := map[string]any{}
			router := newRouter(&config.Config{SupabaseJWTSecret: secret, DefaultPlanTier: "free"}, seen)

			w := serve(router, "Bearer "+sign(t, jwt.SigningMethodHS256, []byte(secret), tt.claims))

			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.want, seen[middleware.PlanTierKey])
		})
	}
}
