package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"farmlink/internal/middleware"
	"farmlink/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// FeedWebsocketHandler handles GET /ws/feed. Browsers pass the bearer token
// in the "token" query parameter. Every connection receives all public feed
// events.
func (s *Server) FeedWebsocketHandler() fiber.Handler {
	ws := websocket.New(func(conn *websocket.Conn) {
		accountID, _ := conn.Locals(middleware.LocalAccountID).(uint)

		client, err := s.hub.Register(accountID, conn)
		if err != nil {
			middleware.Logger.Warn("feed websocket rejected", "account_id", accountID, "error", err)
			msg, _ := json.Marshal(fiber.Map{"type": "error", "error": err.Error()})
			_ = conn.WriteMessage(websocket.TextMessage, msg)
			_ = conn.Close()
			return
		}

		hello, _ := json.Marshal(fiber.Map{
			"type":   "connected",
			"online": s.hub.OnlineCount(context.Background()),
			"at":     time.Now().UTC(),
		})
		client.TrySend(hello)

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return respondError(c, &models.AppError{
				Code:    models.CodeValidation,
				Message: "WebSocket upgrade required",
				Status:  http.StatusUpgradeRequired,
			})
		}
		if s.hub == nil {
			return respondError(c, &models.AppError{
				Code:    models.CodeInternal,
				Message: "Realtime feed unavailable",
				Status:  http.StatusServiceUnavailable,
			})
		}
		return ws(c)
	}
}
