package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// SyncHandler exposes the outbox of pending store writes.
type SyncHandler struct {
	outbox *service.OutboxService
}

func NewSyncHandler(outbox *service.OutboxService) *SyncHandler {
	return &SyncHandler{outbox: outbox}
}

// GetStatus handles GET /v1/admin/sync
func (h *SyncHandler) GetStatus(c *gin.Context) {
	st, err := h.outbox.Status(c.Request.Context())
	if err != nil {
		utils.FromError(c, err, "Failed to retrieve sync status")
		return
	}
	utils.Success(c, 200, "Sync status retrieved", st)
}

// Drain handles POST /v1/admin/sync/drain
func (h *SyncHandler) Drain(c *gin.Context) {
	res, err := h.outbox.Drain(c.Request.Context())
	if err != nil {
		utils.FromError(c, err, "Failed to drain sync queue")
		return
	}
	utils.Success(c, 200, "Sync queue drained", res)
}

// Retry handles POST /v1/admin/sync/:id/retry
func (h *SyncHandler) Retry(c *gin.Context) {
	entry, err := h.outbox.Retry(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.FromError(c, err, "Failed to retry sync entry")
		return
	}
	utils.Success(c, 200, "Sync entry requeued", entry)
}

// Discard handles DELETE /v1/admin/sync/:id
func (h *SyncHandler) Discard(c *gin.Context) {
	id := c.Param("id")
	if err := h.outbox.Discard(c.Request.Context(), id); err != nil {
		utils.FromError(c, err, "Failed to discard sync entry")
		return
	}
	utils.Success(c, 200, "Sync entry discarded", gin.H{"id": id})
}
