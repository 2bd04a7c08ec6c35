/*
Package handler provides the HTTP routing for the proximity server.

The router applies CORS, request ids, real-ip resolution, request logging and panic
recovery, then serves the health, stats and metrics endpoints and the websocket upgrade.
*/
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"nearby/internal/pkg/logx"
	"nearby/internal/pkg/metrics"
	"nearby/internal/pkg/resp"
)

const serviceName = "Nearby Presence Server"

// Router sets up the main HTTP routing table for the application.
// Websocket upgrades on / and /ws are throttled per client IP by deps.Limiter.
func Router(deps *AppDeps) http.Handler {
	r := chi.NewRouter()

	allowedOrigins := make(map[string]struct{})
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	wsUpgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}

	corsAllowedOrigins := []string{}
	if deps.Config.IsDevelopment() {
		corsAllowedOrigins = []string{"*"}
	} else if len(deps.Config.AllowedOrigins) > 0 {
		corsAllowedOrigins = deps.Config.AllowedOrigins
	}

	c := cors.New(cors.Options{
		AllowedOrigins: corsAllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	})
	r.Use(c.Handler)

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logx.RequestLogger())
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, map[string]string{
			"status":  "ok",
			"service": serviceName,
			"server":  deps.Config.ServerID,
		})
	})

	r.Get("/api/stats", HandleStats(deps))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	ws := deps.Limiter.Middleware(HandleWebSocket(wsUpgrader, deps))
	r.Method(http.MethodGet, "/", ws)
	r.Method(http.MethodGet, "/ws", ws)

	return r
}

// HandleStats reports the hub's current counts.
func HandleStats(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, deps.Hub.Stats())
	}
}
