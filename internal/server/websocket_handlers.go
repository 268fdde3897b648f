package server

import (
	"errors"
	"log/slog"
	"time"

	"happythoughts/internal/featureflags"
	"happythoughts/internal/middleware"
	"happythoughts/internal/models"
	"happythoughts/internal/realtime"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// WebsocketHandler streams thought events to the client. The stream is
// read-only; anything the client sends is discarded.
// @Summary Thought event stream
// @Description Upgrades to a websocket that receives {type, thought} JSON events.
// @Tags realtime
// @Success 101 {string} string "Switching Protocols"
// @Failure 404 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Router /ws [get]
func (s *Server) WebsocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		client, err := s.hub.Register(conn)
		if err != nil {
			code := websocket.CloseTryAgainLater
			if errors.Is(err, realtime.ErrHubClosed) {
				code = websocket.CloseGoingAway
			}
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, err.Error()), time.Now().Add(time.Second))
			_ = conn.Close()
			middleware.Logger.Warn("websocket rejected", slog.String("error", err.Error()))
			return
		}

		go client.WritePump()
		client.ReadPump()
	})

	return func(c *fiber.Ctx) error {
		if !s.featureFlags.Enabled(featureflags.Realtime, c.IP()) {
			return models.Respond(c, models.NewNotFoundError("Not found"))
		}
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return upgrade(c)
	}
}
