package handler

import (
	"github.com/prometheus/client_golang/prometheus"

	"nearby/internal/app/proximity"
	"nearby/internal/configs"
	"nearby/internal/pkg/limiter"
)

// AppDeps bundles what the router needs to serve requests.
type AppDeps struct {
	Hub      *proximity.Hub
	Config   *configs.AppConfig
	Limiter  *limiter.IPRateLimiter
	Gatherer prometheus.Gatherer
}
