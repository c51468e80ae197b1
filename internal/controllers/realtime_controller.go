package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"linkpulse-be/internal/logging"
	"linkpulse-be/internal/middleware"
	"linkpulse-be/internal/realtime"
)

// RealtimeController upgrades dashboard connections onto the owner's live
// click channel.
type RealtimeController struct {
	hub      *realtime.Hub
	upgrader *websocket.Upgrader
}

func NewRealtimeController(hub *realtime.Hub, upgrader *websocket.Upgrader) *RealtimeController {
	return &RealtimeController{hub: hub, upgrader: upgrader}
}

// Connect handles GET /ws
func (rc *RealtimeController) Connect(c *gin.Context) {
	userID := middleware.GetUserID(c)

	// Upgrade writes its own error response on failure.
	conn, err := rc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	client := realtime.NewClient(rc.hub, conn)
	if err := rc.hub.Join(userID, client); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}

	go client.Run()
}
