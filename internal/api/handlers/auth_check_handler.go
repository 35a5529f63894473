package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fortiban/fortiban/internal/api/middleware"
)

// AuthCheckHandler confirms that the caller passed the API gate.
type AuthCheckHandler struct {
	location string
}

func NewAuthCheckHandler(location string) *AuthCheckHandler {
	return &AuthCheckHandler{location: location}
}

func (h *AuthCheckHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status_code": http.StatusOK,
		"message":     "apicheck passed",
		"user":        middleware.Principal(c),
		"location":    h.location,
	})
}
