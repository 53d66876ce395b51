package api

import (
	"oficina/internal/realtime" // Websocket hub

	"github.com/gin-gonic/gin" // Gin web framework
)

// WebsocketHandler upgrades the caller to a live notification stream
func WebsocketHandler(hub *realtime.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		hub.Serve(c, currentUser(c).UserID)
	}
}
