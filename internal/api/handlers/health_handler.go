package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fortiban/fortiban/internal/services"
	"github.com/fortiban/fortiban/internal/version"
)

// ProbeResults exposes the latest upstream checks.
type ProbeResults interface {
	Results() map[string]services.ProbeResult
}

// HealthHandler responds with basic service metadata for uptime checks.
type HealthHandler struct {
	location string
	probe    ProbeResults
}

func NewHealthHandler(location string, probe ProbeResults) *HealthHandler {
	return &HealthHandler{location: location, probe: probe}
}

func (h *HealthHandler) Get(c *gin.Context) {
	upstreams := map[string]services.ProbeResult{}
	if h.probe != nil {
		upstreams = h.probe.Results()
	}
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"service":    version.Name,
		"version":    version.Version,
		"git_commit": version.GitCommit,
		"build_time": version.BuildTime,
		"location":   h.location,
		"upstreams":  upstreams,
	})
}
