package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-breathe/pkg/hub"
)

// registerStateRoute mounts the state broadcast socket
func (s *Server) registerStateRoute(app *fiber.App) {
	app.Use("/ws/state", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/state", websocket.New(s.handleStateWS))
}

// handleStateWS hands the connection to the state hub
func (s *Server) handleStateWS(c *websocket.Conn) {
	hub.NewClient(s.stateHub, c).Run()
}
