package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs registers the connection with hub and pumps until it closes.
func ServeWs(hub *Hub, c *websocket.Conn, username string) {
	client := &Client{
		Hub:      hub,
		Conn:     c,
		ID:       uuid.New(),
		Username: username,
		Send:     make(chan []byte, sendBuffer),
	}
	if !client.Hub.join(client) {
		_ = c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}
