package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// AssistantHandler is the read-only boundary used by the shop assistant.
type AssistantHandler struct {
	assistant *service.AssistantService
}

func NewAssistantHandler(assistant *service.AssistantService) *AssistantHandler {
	return &AssistantHandler{assistant: assistant}
}

// Catalog handles GET /v1/assistant/catalog?q=
func (h *AssistantHandler) Catalog(c *gin.Context) {
	products := h.assistant.Catalog(c.Query("q"))
	utils.Success(c, 200, "Assistant catalog retrieved", gin.H{
		"products": products,
		"context":  service.AssistantContext(products),
	})
}

// Links handles POST /v1/assistant/links
func (h *AssistantHandler) Links(c *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	utils.Success(c, 200, "Product links extracted", h.assistant.ExtractProductLinks(req.Text))
}
