package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kottzoltan/aivio/pkg/apperr"
	"github.com/kottzoltan/aivio/pkg/logger"
	"go.uber.org/zap"
)

// writeError maps the error taxonomy to HTTP statuses. Upstream detail never
// reaches the client; it goes to the log only.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperr.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.IsUpstream(err):
		logger.Error("upstream failure", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service failed"})
	default:
		logger.Error("internal failure", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
