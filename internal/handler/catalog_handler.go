package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// CatalogHandler serves products, brands, devices, slides and store settings.
type CatalogHandler struct {
	catalog *service.CatalogService
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(catalog *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

// ListProducts handles GET /v1/products
func (h *CatalogHandler) ListProducts(c *gin.Context) {
	var filter service.ProductFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Invalid query parameters")
		return
	}
	products := h.catalog.Products(filter)
	utils.Success(c, 200, "Products retrieved", gin.H{
		"products": products,
		"isDemo":   h.catalog.IsDemo(),
	})
}

// GetProduct handles GET /v1/products/:id
func (h *CatalogHandler) GetProduct(c *gin.Context) {
	product, err := h.catalog.Product(c.Param("id"))
	if err != nil {
		utils.FromError(c, err, "Failed to retrieve product")
		return
	}
	available, _ := h.catalog.AvailableVariants(product.ID)
	if available == nil {
		available = []models.Variant{}
	}
	utils.Success(c, 200, "Product retrieved", gin.H{
		"product":           product,
		"availableVariants": available,
	})
}

// CreateProduct handles POST /v1/admin/products
func (h *CatalogHandler) CreateProduct(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	product, err := h.catalog.CreateProduct(c.Request.Context(), &req)
	if product == nil {
		utils.FromError(c, err, "Failed to create product")
		return
	}
	utils.Success(c, 201, savedMessage(c, err, "Product created successfully"), product)
}

// UpdateProduct handles PUT /v1/admin/products/:id
func (h *CatalogHandler) UpdateProduct(c *gin.Context) {
	var req service.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	product, err := h.catalog.UpdateProduct(c.Request.Context(), c.Param("id"), &req)
	if product == nil {
		utils.FromError(c, err, "Failed to update product")
		return
	}
	utils.Success(c, 200, savedMessage(c, err, "Product updated successfully"), product)
}

// DeleteProduct handles DELETE /v1/admin/products/:id
func (h *CatalogHandler) DeleteProduct(c *gin.Context) {
	h.deleteEntry(c, h.catalog.DeleteProduct, "Product deleted successfully")
}

// ListBrands handles GET /v1/brands
func (h *CatalogHandler) ListBrands(c *gin.Context) {
	utils.Success(c, 200, "Brands retrieved", h.catalog.Brands())
}

// CreateBrand handles POST /v1/admin/brands
func (h *CatalogHandler) CreateBrand(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
		Logo string `json:"logo"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	brand, err := h.catalog.CreateBrand(c.Request.Context(), req.Name, req.Logo)
	if brand == nil {
		utils.FromError(c, err, "Failed to create brand")
		return
	}
	utils.Success(c, 201, savedMessage(c, err, "Brand created successfully"), brand)
}

// DeleteBrand handles DELETE /v1/admin/brands/:id
func (h *CatalogHandler) DeleteBrand(c *gin.Context) {
	h.deleteEntry(c, h.catalog.DeleteBrand, "Brand deleted successfully")
}

// ListDevices handles GET /v1/devices
func (h *CatalogHandler) ListDevices(c *gin.Context) {
	utils.Success(c, 200, "Devices retrieved", h.catalog.Devices())
}

// CreateDevice handles POST /v1/admin/devices
func (h *CatalogHandler) CreateDevice(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	device, err := h.catalog.CreateDevice(c.Request.Context(), req.Name)
	if device == nil {
		utils.FromError(c, err, "Failed to create device")
		return
	}
	utils.Success(c, 201, savedMessage(c, err, "Device created successfully"), device)
}

// DeleteDevice handles DELETE /v1/admin/devices/:id
func (h *CatalogHandler) DeleteDevice(c *gin.Context) {
	h.deleteEntry(c, h.catalog.DeleteDevice, "Device deleted successfully")
}

// LowStock handles GET /v1/admin/products/low-stock?threshold=
func (h *CatalogHandler) LowStock(c *gin.Context) {
	threshold := service.DefaultLowStockThreshold
	if raw := c.Query("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			utils.Error(c, 400, "INVALID_REQUEST", "threshold must be a positive integer")
			return
		}
		threshold = n
	}
	utils.Success(c, 200, "Low stock products retrieved", gin.H{
		"threshold": threshold,
		"products":  h.catalog.LowStock(threshold),
	})
}

// ListSlides handles GET /v1/slides
func (h *CatalogHandler) ListSlides(c *gin.Context) {
	utils.Success(c, 200, "Slides retrieved", h.catalog.Slides())
}

// CreateSlide handles POST /v1/admin/slides
func (h *CatalogHandler) CreateSlide(c *gin.Context) {
	var req service.SlideInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	slide, err := h.catalog.CreateSlide(c.Request.Context(), &req)
	if slide == nil {
		utils.FromError(c, err, "Failed to create slide")
		return
	}
	utils.Success(c, 201, savedMessage(c, err, "Slide created successfully"), slide)
}

// UpdateSlide handles PUT /v1/admin/slides/:id
func (h *CatalogHandler) UpdateSlide(c *gin.Context) {
	var req service.SlideInput
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	slide, err := h.catalog.UpdateSlide(c.Request.Context(), c.Param("id"), &req)
	if slide == nil {
		utils.FromError(c, err, "Failed to update slide")
		return
	}
	utils.Success(c, 200, savedMessage(c, err, "Slide updated successfully"), slide)
}

// DeleteSlide handles DELETE /v1/admin/slides/:id
func (h *CatalogHandler) DeleteSlide(c *gin.Context) {
	h.deleteEntry(c, h.catalog.DeleteSlide, "Slide deleted successfully")
}

// GetSettings handles GET /v1/settings
func (h *CatalogHandler) GetSettings(c *gin.Context) {
	utils.Success(c, 200, "Settings retrieved", h.catalog.Settings())
}

// UpdateSettings handles PUT /v1/admin/settings. Omitted fields are kept.
func (h *CatalogHandler) UpdateSettings(c *gin.Context) {
	var req struct {
		ShippingFee *int64  `json:"shippingFee"`
		Logo        *string `json:"logo"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if req.ShippingFee == nil && req.Logo == nil {
		utils.Error(c, 400, "INVALID_REQUEST", "Nothing to update")
		return
	}

	ctx := c.Request.Context()
	settings := h.catalog.Settings()
	var syncErr error
	if req.ShippingFee != nil {
		st, err := h.catalog.UpdateShippingFee(ctx, *req.ShippingFee)
		if err != nil && utils.Kind(err) != nil {
			utils.FromError(c, err, "Failed to update settings")
			return
		}
		settings, syncErr = st, err
	}
	if req.Logo != nil {
		st, err := h.catalog.UpdateLogo(ctx, *req.Logo)
		if err != nil && utils.Kind(err) != nil {
			utils.FromError(c, err, "Failed to update settings")
			return
		}
		settings = st
		if err != nil {
			syncErr = err
		}
	}
	utils.Success(c, 200, savedMessage(c, syncErr, "Settings updated successfully"), settings)
}

// deleteEntry runs a catalog delete. Errors without a kind come from the
// outbox after the local delete succeeded.
func (h *CatalogHandler) deleteEntry(c *gin.Context, del func(ctx context.Context, id string) error, message string) {
	id := c.Param("id")
	err := del(c.Request.Context(), id)
	if err != nil && utils.Kind(err) != nil {
		utils.FromError(c, err, "Failed to delete")
		return
	}
	utils.Success(c, 200, savedMessage(c, err, message), gin.H{"id": id})
}
