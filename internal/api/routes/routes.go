package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fortiban/fortiban/internal/api/handlers"
	"github.com/fortiban/fortiban/internal/api/middleware"
	"github.com/fortiban/fortiban/internal/auth"
)

// Prefix is the versioned base path of every API route.
const Prefix = "/forti_api/v1"

// Deps carries everything the routes need. Gatherer may be nil to skip /metrics.
type Deps struct {
	Registry  *auth.Registry
	Banner    handlers.Banner
	Blocklist handlers.Blocklist
	Probe     handlers.ProbeResults
	Location  string
	Gatherer  prometheus.Gatherer
}

// Register wires up API routes. The api-key gate is attached per route so
// that the open ones stay visibly ungated.
func Register(router *gin.Engine, deps Deps) {
	gate := middleware.APIKeyAuth(deps.Registry)

	authCheck := handlers.NewAuthCheckHandler(deps.Location)
	banHandler := handlers.NewBanHandler(deps.Banner)
	blocklistHandler := handlers.NewBlocklistHandler(deps.Blocklist)
	healthHandler := handlers.NewHealthHandler(deps.Location, deps.Probe)

	api := router.Group(Prefix)

	api.GET("/auth", gate, authCheck.Check)
	api.POST("/autoban", gate, banHandler.Autoban)
	api.POST("/blocklist/add", gate, blocklistHandler.Add)

	// Read by firewall threat feeds that cannot send headers.
	api.GET("/blocklist/list", blocklistHandler.List)
	api.GET("/health", healthHandler.Get)

	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
}
