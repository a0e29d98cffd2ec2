package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// DiscountHandler serves admin discount code management.
type DiscountHandler struct {
	catalog *service.CatalogService
}

func NewDiscountHandler(catalog *service.CatalogService) *DiscountHandler {
	return &DiscountHandler{catalog: catalog}
}

// ListDiscounts handles GET /v1/admin/discounts
func (h *DiscountHandler) ListDiscounts(c *gin.Context) {
	utils.Success(c, 200, "Discounts retrieved", h.catalog.Discounts())
}

// CreateDiscount handles POST /v1/admin/discounts
func (h *DiscountHandler) CreateDiscount(c *gin.Context) {
	var req service.DiscountInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	d, err := h.catalog.CreateDiscount(c.Request.Context(), &req)
	if d == nil {
		utils.FromError(c, err, "Failed to create discount")
		return
	}
	utils.Success(c, 201, savedMessage(c, err, "Discount created successfully"), d)
}

// UpdateDiscount handles PUT /v1/admin/discounts/:id
func (h *DiscountHandler) UpdateDiscount(c *gin.Context) {
	var req service.DiscountInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	d, err := h.catalog.UpdateDiscount(c.Request.Context(), c.Param("id"), &req)
	if d == nil {
		utils.FromError(c, err, "Failed to update discount")
		return
	}
	utils.Success(c, 200, savedMessage(c, err, "Discount updated successfully"), d)
}

// ToggleDiscount handles POST /v1/admin/discounts/:id/toggle
func (h *DiscountHandler) ToggleDiscount(c *gin.Context) {
	d, err := h.catalog.ToggleDiscount(c.Request.Context(), c.Param("id"))
	if d == nil {
		utils.FromError(c, err, "Failed to toggle discount")
		return
	}
	utils.Success(c, 200, savedMessage(c, err, "Discount toggled"), d)
}

// DeleteDiscount handles DELETE /v1/admin/discounts/:id
func (h *DiscountHandler) DeleteDiscount(c *gin.Context) {
	id := c.Param("id")
	err := h.catalog.DeleteDiscount(c.Request.Context(), id)
	if err != nil && utils.Kind(err) != nil {
		utils.FromError(c, err, "Failed to delete discount")
		return
	}
	utils.Success(c, 200, savedMessage(c, err, "Discount deleted successfully"), gin.H{"id": id})
}
