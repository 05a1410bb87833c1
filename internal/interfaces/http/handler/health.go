package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/opentoworkprojects/bill-sub001/internal/domain/shared"
	"github.com/opentoworkprojects/bill-sub001/internal/infrastructure/logger"
	"github.com/opentoworkprojects/bill-sub001/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether the order store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves the unauthenticated liveness and readiness probes
type HealthHandler struct {
	store Pinger
	cache shared.ProjectionCache
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(store Pinger, cache shared.ProjectionCache) *HealthHandler {
	return &HealthHandler{store: store, cache: cache}
}

// RegisterRoutes registers the probes on the engine root
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
	rg.GET("/ready", h.Ready)
}

// Health reports store and cache connectivity. A disconnected cache only
// degrades the service; an unreachable store makes it unhealthy.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	resp := dto.HealthResponse{Status: "healthy", Checks: map[string]string{"store": "ok", "cache": "ok"}}
	code := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		logger.L(ctx).Warn("Health check: store unreachable", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Checks["store"] = "unreachable"
		code = http.StatusServiceUnavailable
	}
	if !h.cache.IsConnected(ctx) {
		resp.Checks["cache"] = "disconnected"
		if code == http.StatusOK {
			resp.Status = "degraded"
		}
	}
	c.JSON(code, resp)
}

// Ready reports that the process accepts traffic
func (h *HealthHandler) Ready(c *gin.Context) {
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ready"})
}
