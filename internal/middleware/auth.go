// Package middleware provides authentication, logging, tracing and rate limiting for the HTTP layer.
package middleware

import (
	"context"
	"errors"
	"strings"

	"catspot/internal/config"
	"catspot/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	viewerLocal   = "viewer"
	viewerIDLocal = "viewerID"
)

// ViewerLocal is the fiber locals key holding the resolved models.Viewer.
// Websocket handlers read it from the upgraded connection.
const ViewerLocal = viewerLocal

var (
	errMissingSubject = errors.New("token has no subject")
	errBadSubject     = errors.New("token subject is not a user id")
)

var cfg *config.Config

// InitMiddleware initializes authentication middleware with the given config.
func InitMiddleware(c *config.Config) {
	cfg = c
}

// ParseViewer verifies a session token issued by the auth provider and returns
// the authenticated viewer it names.
func ParseViewer(tokenString string) (models.Authenticated, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if cfg.JWTAudience != "" {
		opts = append(opts, jwt.WithAudience(cfg.JWTAudience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(cfg.JWTSecret), nil
	}, opts...)
	if err != nil || !token.Valid {
		return models.Authenticated{}, err
	}

	sub, err := token.Claims.GetSubject()
	if err != nil || sub == "" {
		return models.Authenticated{}, errMissingSubject
	}
	if _, err := uuid.Parse(sub); err != nil {
		return models.Authenticated{}, errBadSubject
	}

	return models.Authenticated{ID: sub}, nil
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}

// SetViewer records the viewer on the fiber locals and on the user context.
func SetViewer(c *fiber.Ctx, v models.Viewer) {
	c.Locals(viewerLocal, v)
	ctx := models.WithViewer(c.UserContext(), v)
	if id, ok := models.ViewerID(v); ok {
		c.Locals(viewerIDLocal, id)
		ctx = context.WithValue(ctx, ViewerIDKey, id)
	}
	c.SetUserContext(ctx)
}

// ViewerFrom returns the viewer resolved for this request.
func ViewerFrom(c *fiber.Ctx) models.Viewer {
	if v, ok := c.Locals(viewerLocal).(models.Viewer); ok {
		return v
	}
	return models.Anonymous{}
}

// OptionalAuth resolves the viewer when a valid bearer token is present and
// falls back to an anonymous viewer otherwise.
func OptionalAuth(c *fiber.Ctx) error {
	var viewer models.Viewer = models.Anonymous{}
	if tokenString, ok := bearerToken(c); ok {
		if v, err := ParseViewer(tokenString); err == nil {
			viewer = v
		} else {
			Logger.DebugContext(c.UserContext(), "ignoring invalid bearer token", "error", err)
		}
	}
	SetViewer(c, viewer)
	return c.Next()
}

// AuthRequired is a middleware that enforces authentication for protected routes.
func AuthRequired(c *fiber.Ctx) error {
	if c.Get("Authorization") == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authorization header required",
		})
	}

	tokenString, ok := bearerToken(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid authorization header format",
		})
	}

	viewer, err := ParseViewer(tokenString)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid or expired token",
		})
	}

	SetViewer(c, viewer)
	return c.Next()
}
