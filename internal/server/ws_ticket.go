package server

import (
	"context"
	"errors"
	"log/slog"

	"catspot/internal/middleware"
	"catspot/internal/models"
	"catspot/internal/notice"
	"catspot/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	wsTicketPrefix = "ws_ticket:"
	localeLocal    = "locale"
)

var errInvalidTicket = errors.New("invalid or expired websocket ticket")

// IssueWSTicket handles POST /api/ws/ticket. Browsers cannot set headers on
// websocket upgrades, so the viewer trades its bearer token for a single-use
// ticket that goes in the query string.
// @Summary Issue websocket ticket
// @Tags realtime
// @Produce json
// @Success 200 {object} object{ticket=string,expires_in=int}
// @Failure 503 {object} models.ErrorResponse
// @Security BearerAuth
// @Router /ws/ticket [post]
func (s *Server) IssueWSTicket(c *fiber.Ctx) error {
	viewerID, ok := models.ViewerID(middleware.ViewerFrom(c))
	if !ok {
		return models.RespondWithError(c, fiber.StatusUnauthorized,
			models.NewUnauthorizedError("Authorization required"))
	}
	if s.redis == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(models.ErrorResponse{
			Error: "Live updates are unavailable",
		})
	}

	ticket := uuid.NewString()
	if err := s.redis.Set(c.UserContext(), wsTicketPrefix+ticket, viewerID, wsTicketTTL).Err(); err != nil {
		observability.RedisErrorRate.WithLabelValues("ws_ticket").Inc()
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return c.JSON(fiber.Map{
		"ticket":     ticket,
		"expires_in": int(wsTicketTTL.Seconds()),
	})
}

// consumeWSTicket resolves a ticket to its viewer and deletes it. No ticket
// means an anonymous connection.
func (s *Server) consumeWSTicket(ctx context.Context, ticket string) (models.Viewer, error) {
	if ticket == "" {
		return models.Anonymous{}, nil
	}
	if s.redis == nil {
		return nil, errInvalidTicket
	}
	viewerID, err := s.redis.GetDel(ctx, wsTicketPrefix+ticket).Result()
	if errors.Is(err, redis.Nil) || (err == nil && viewerID == "") {
		return nil, errInvalidTicket
	}
	if err != nil {
		observability.RedisErrorRate.WithLabelValues("ws_ticket").Inc()
		return nil, err
	}
	return models.Authenticated{ID: viewerID}, nil
}

// WebSocketUpgrade guards the /api/ws routes: it rejects plain HTTP, resolves
// the viewer from the ticket and records the caller's language.
func (s *Server) WebSocketUpgrade() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		viewer, err := s.consumeWSTicket(c.UserContext(), c.Query("ticket"))
		if err != nil {
			if !errors.Is(err, errInvalidTicket) {
				observability.GlobalLogger.WarnContext(c.UserContext(), "ws ticket lookup failed",
					slog.String("error", err.Error()),
				)
			}
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired WebSocket ticket"))
		}

		middleware.SetViewer(c, viewer)
		c.Locals(localeLocal, notice.Match(c.Get(fiber.HeaderAcceptLanguage)))
		return c.Next()
	}
}
