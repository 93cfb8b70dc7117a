package handler

import (
	"chemviz-dashboard/internal/pkg/logger"
	"chemviz-dashboard/internal/pkg/serverutils"
	internalWS "chemviz-dashboard/internal/websocket"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ViewStateHandler streams view state snapshots to connected viewers.
type ViewStateHandler struct {
	hub    *internalWS.Hub
	logger logger.ILogger
}

func NewViewStateHandler(hub *internalWS.Hub, log logger.ILogger) *ViewStateHandler {
	return &ViewStateHandler{hub: hub, logger: log}
}

// ServeWs upgrades an authenticated request. Browsers pass the viewer token
// as ?token= since they cannot set headers on a websocket handshake.
func (h *ViewStateHandler) ServeWs(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}

	username, _ := c.Locals(serverutils.LocalsUsername).(string)
	return websocket.New(func(conn *websocket.Conn) {
		h.logger.Info("ViewStateHandler", "Viewer connected", map[string]interface{}{"username": username})
		internalWS.ServeWs(h.hub, conn, username)
		h.logger.Info("ViewStateHandler", "Viewer disconnected", map[string]interface{}{"username": username})
	})(c)
}

func (h *ViewStateHandler) RegisterRoutes(router fiber.Router, jwtMiddleware fiber.Handler) {
	router.Get("/ws", jwtMiddleware, h.ServeWs)
}
