package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ventas-cli/internal/agent"
	"ventas-cli/internal/nlsql"
	"ventas-cli/internal/service"
	"ventas-cli/internal/store"
)

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, nlsql.ErrUnsafeQuery), errors.Is(err, service.ErrNotSelect):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrDatasetNotFound), errors.Is(err, agent.ErrAgentNotReady):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(c *gin.Context, err error) {
	c.JSON(StatusFor(err), gin.H{"error": err.Error()})
}

// RequireDataset short-circuits every request with 503 while err is set.
// The web server passes the bootstrap error so it can start without data.
func RequireDataset(err error) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err != nil {
			c.AbortWithStatusJSON(StatusFor(err), gin.H{"error": err.Error()})
			return
		}
		c.Next()
	}
}
