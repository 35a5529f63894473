package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fortiban/fortiban/internal/api/middleware"
)

// Blocklist records and lists blocked addresses.
type Blocklist interface {
	Record(ctx context.Context, ip, actor string) error
	List(ctx context.Context) ([]string, error)
}

// BlocklistHandler serves the cache-backed blocklist.
type BlocklistHandler struct {
	service Blocklist
}

func NewBlocklistHandler(service Blocklist) *BlocklistHandler {
	return &BlocklistHandler{service: service}
}

// Add records the alert's offending IP. Graylog test notifications are
// acknowledged with 201 before any other field is looked at.
func (h *BlocklistHandler) Add(c *gin.Context) {
	alert, ok := bindAlert(c)
	if !ok {
		return
	}
	if alert.isTest() {
		requestLogger(c).Info("test notification received")
		c.Status(http.StatusCreated)
		return
	}
	ip, ok := extractIP(c, alert, false)
	if !ok {
		return
	}

	if err := h.service.Record(c.Request.Context(), ip, middleware.Principal(c)); err != nil {
		requestLogger(c).WithError(err).WithField("ip", ip).Error("failed to update blocklist")
		c.JSON(http.StatusInternalServerError, gin.H{"status": http.StatusInternalServerError, "message": "Failed to update blocklist"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status_code": http.StatusOK, "message": "Added " + ip + " to blocklist"})
}

// List renders every blocked address, one per line, in the plain text format
// firewall threat feeds consume. ?format=json returns a JSON document instead.
func (h *BlocklistHandler) List(c *gin.Context) {
	ips, err := h.service.List(c.Request.Context())
	if err != nil {
		requestLogger(c).WithError(err).Error("failed to list blocklist")
		c.JSON(http.StatusInternalServerError, gin.H{"status": http.StatusInternalServerError, "message": "Failed to read blocklist"})
		return
	}

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, gin.H{"count": len(ips), "ips": ips})
		return
	}

	var b strings.Builder
	for _, ip := range ips {
		b.WriteString(ip)
		b.WriteByte('\n')
	}
	c.String(http.StatusOK, b.String())
}
