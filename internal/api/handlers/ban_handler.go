package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fortiban/fortiban/internal/api/middleware"
	"github.com/fortiban/fortiban/internal/fortigate"
)

// Banner pushes an address into the firewall address group.
type Banner interface {
	Ban(ctx context.Context, ip, actor string) error
}

// BanHandler serves the firewall autoban webhook.
//
// Deprecated: the blocklist endpoints replace direct address group updates.
type BanHandler struct {
	service Banner
}

func NewBanHandler(service Banner) *BanHandler {
	return &BanHandler{service: service}
}

// Autoban adds the alert's offending IP to the firewall address group.
func (h *BanHandler) Autoban(c *gin.Context) {
	alert, ok := bindAlert(c)
	if !ok {
		return
	}
	ip, ok := extractIP(c, alert, true)
	if !ok {
		return
	}

	if err := h.service.Ban(c.Request.Context(), ip, middleware.Principal(c)); err != nil {
		entry := requestLogger(c).WithError(err).WithField("ip", ip)
		if errors.Is(err, fortigate.ErrAmbiguousGroup) {
			entry.Error("address group lookup was ambiguous, group not updated")
		} else {
			entry.Error("failed to communicate with the firewall")
		}
		c.JSON(http.StatusInternalServerError, gin.H{"status": http.StatusInternalServerError, "message": "Failed to communicate with the firewall"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status_code": http.StatusOK, "message": "Successfully updated address group"})
}
