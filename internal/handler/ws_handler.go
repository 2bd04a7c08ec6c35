package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"nearby/internal/app/proximity"
	"nearby/internal/pkg/errs"
	"nearby/internal/pkg/logx"
	"nearby/internal/pkg/resp"
)

// HandleWebSocket upgrades the request and runs the session until the peer leaves.
// Clients identify themselves later through message payloads, so no query parameters are read.
func HandleWebSocket(upgrader websocket.Upgrader, deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !websocket.IsWebSocketUpgrade(r) {
			resp.RespondError(w, errs.NewError(errs.ErrInvalidParams))
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		session := proximity.NewSession(deps.Hub, conn, deps.Config.SendBuffer)

		logx.Debug("WebSocket connection established", "conn_id", session.ID())

		session.Serve()
	}
}
