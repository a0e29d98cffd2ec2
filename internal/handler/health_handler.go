package handler

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sony/gobreaker/v2"

	"github.com/GTDGit/storefront_api/internal/gateway"
	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

var startTime = time.Now()

// BreakerState reports the circuit breaker in front of the Store Gateway.
type BreakerState interface {
	State() gobreaker.State
}

// HealthHandler provides health endpoint.
type HealthHandler struct {
	gw      gateway.Gateway
	breaker BreakerState
	catalog *service.CatalogService
	outbox  *service.OutboxService
}

// NewHealthHandler creates a new HealthHandler. breaker may be nil.
func NewHealthHandler(gw gateway.Gateway, breaker BreakerState, catalog *service.CatalogService, outbox *service.OutboxService) *HealthHandler {
	return &HealthHandler{gw: gw, breaker: breaker, catalog: catalog, outbox: outbox}
}

// GetHealth responds with service, store and sync status. The service stays
// healthy while the store is unreachable; it serves the local projection.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	storeStatus := "connected"
	if err := h.gw.Ping(ctx); err != nil {
		storeStatus = "disconnected"
	}
	breaker := "none"
	if h.breaker != nil {
		breaker = h.breaker.State().String()
	}

	sync := gin.H{}
	if st, err := h.outbox.Status(ctx); err == nil {
		sync["pending"] = st.Pending
		sync["failed"] = st.Failed
	} else {
		sync["error"] = "unavailable"
	}

	utils.Success(c, 200, "Service is healthy", gin.H{
		"status":  "healthy",
		"version": "1.0.0",
		"uptime":  int(time.Since(startTime).Seconds()),
		"demo":    h.catalog.IsDemo(),
		"store": gin.H{
			"status":  storeStatus,
			"breaker": breaker,
		},
		"sync": sync,
	})
}
