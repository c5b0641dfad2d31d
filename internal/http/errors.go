package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"easystudy-account/internal/service"
)

// writeError maps service failures to status codes. Unexpected errors are
// logged and reported without detail.
func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMalformedInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDuplicateEmail):
		c.JSON(http.StatusConflict, gin.H{"error": service.ErrDuplicateEmail.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrInvalidCredentials.Error()})
	case errors.Is(err, service.ErrUnauthorized):
		c.Header("WWW-Authenticate", "Bearer")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrNotFound.Error()})
	default:
		h.log.WithError(err).WithField("path", c.FullPath()).Error("request error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
