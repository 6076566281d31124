package handlers

import (
	"net/http"

	"fusionx_backend/internal/hub"
	"fusionx_backend/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser origins are filtered by the CORS layer; the websocket
	// endpoint itself serves kiosk displays and the public tracker.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades connections into shift event rooms.
type WSHandler struct {
	hub *hub.Hub
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(h *hub.Hub) *WSHandler {
	return &WSHandler{hub: h}
}

// Subscribe upgrades the connection and joins the shift's event room.
// Callers presenting a valid staff token receive the full kitchen display
// stream; anonymous callers receive customer tracker events only.
func (s *WSHandler) Subscribe(c *gin.Context) {
	shiftID, ok := parseIDParam(c, "shiftId")
	if !ok {
		return
	}

	// Kiosk browsers cannot set an Authorization header on a websocket
	// handshake, so the token also rides the query string.
	staff := false
	token := c.Query("token")
	if token == "" {
		if id := staffIDFromContext(c); id != nil {
			staff = true
		}
	} else if _, err := utils.ValidateToken(token); err == nil {
		staff = true
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.LogError(err, "Subscribe: websocket upgrade failed")
		return
	}

	client := hub.NewClient(s.hub, conn, shiftID, staff)
	client.Run()
}
