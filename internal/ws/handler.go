package ws

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"guess_dapp/internal/game"
)

// HandleWS upgrades the request and subscribes it to the state stream.
// snapshot supplies the state sent on connect.
func HandleWS(hub *Hub, snapshot func() game.Snapshot, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("ws upgrade error", "error", err)
			return
		}

		client := NewClient(conn, hub)
		hub.Register(client, snapshot())
		go client.Run()
	}
}
