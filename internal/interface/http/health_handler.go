package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-auth-service/pkg/response"
)

// Pinger is anything that can report reachability of a backing store.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	Store  Pinger
	Logger *logrus.Logger
}

func NewHealthHandler(store Pinger, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{Store: store, Logger: logger}
}

// Root GET /
func (h *HealthHandler) Root(c *gin.Context) {
	c.String(http.StatusOK, "API is working")
}

// Health GET /api/health
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.Store.Ping(ctx); err != nil {
		h.Logger.WithError(err).Warn("health check: store unreachable")
		response.Error[any](c, http.StatusServiceUnavailable, "unavailable", "store unreachable", nil)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"store": "ok"}, "healthy", nil)
}
