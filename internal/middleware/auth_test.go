package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"catspot/internal/config"
	"catspot/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-secret-key-12345678901234567890123456789012"
	testUserID = "5b0c3a4e-8f2d-4a61-9e57-0d1f2c3b4a59"
)

func generateToken(t *testing.T, sub, aud string, exp time.Duration) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub": sub,
		"aud": aud,
		"exp": time.Now().Add(exp).Unix(),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func viewerEcho(c *fiber.Ctx) error {
	v := ViewerFrom(c)
	id, ok := models.ViewerID(v)
	ctxID, _ := models.ViewerID(models.ViewerFromContext(c.UserContext()))
	return c.JSON(fiber.Map{"authenticated": ok, "id": id, "ctx_id": ctxID})
}

func TestAuthRequired(t *testing.T) {
	InitMiddleware(&config.Config{JWTSecret: testSecret, JWTAudience: "authenticated"})
	app := fiber.New()
	app.Get("/test", AuthRequired, viewerEcho)

	tests := []struct {
		name           string
		authHeader     string
		expectedStatus int
	}{
		{"happy path", "Bearer " + generateToken(t, testUserID, "authenticated", time.Hour), http.StatusOK},
		{"missing header", "", http.StatusUnauthorized},
		{"invalid format", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"malformed token", "Bearer malformed.token.here", http.StatusUnauthorized},
		{"expired token", "Bearer " + generateToken(t, testUserID, "authenticated", -time.Hour), http.StatusUnauthorized},
		{"wrong audience", "Bearer " + generateToken(t, testUserID, "anon", time.Hour), http.StatusUnauthorized},
		{"subject is not a uuid", "Bearer " + generateToken(t, "123", "authenticated", time.Hour), http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}

			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusOK {
				var body map[string]interface{}
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, true, body["authenticated"])
				assert.Equal(t, testUserID, body["id"])
				assert.Equal(t, testUserID, body["ctx_id"])
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	InitMiddleware(&config.Config{JWTSecret: testSecret, JWTAudience: "authenticated"})
	app := fiber.New()
	app.Get("/test", OptionalAuth, viewerEcho)

	tests := []struct {
		name          string
		authHeader    string
		authenticated bool
	}{
		{"no header is anonymous", "", false},
		{"valid token", "Bearer " + generateToken(t, testUserID, "authenticated", time.Hour), true},
		{"invalid token falls back to anonymous", "Bearer nope", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var body map[string]interface{}
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, tt.authenticated, body["authenticated"])
		})
	}
}
