package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/GTDGit/storefront_api/internal/middleware"
)

// Handlers groups all HTTP handlers used by the server.
type Handlers struct {
	Health    *HealthHandler
	Catalog   *CatalogHandler
	Cart      *CartHandler
	Discount  *DiscountHandler
	Order     *OrderHandler
	Import    *ImportHandler
	Sync      *SyncHandler
	SSE       *SSEHandler
	Assistant *AssistantHandler
}

// SetupRoutes registers all routes.
func SetupRoutes(router *gin.Engine, h *Handlers, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", h.Health.GetHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Storefront (public)
	v1 := router.Group("/v1")
	{
		v1.GET("/products", h.Catalog.ListProducts)
		v1.GET("/products/:id", h.Catalog.GetProduct)
		v1.GET("/brands", h.Catalog.ListBrands)
		v1.GET("/devices", h.Catalog.ListDevices)
		v1.GET("/slides", h.Catalog.ListSlides)
		v1.GET("/settings", h.Catalog.GetSettings)
		v1.GET("/orders", h.Order.OrdersByPhone)

		v1.POST("/carts", h.Cart.CreateCart)
		v1.GET("/carts/:id", h.Cart.GetCart)
		v1.DELETE("/carts/:id", h.Cart.ClearCart)
		v1.POST("/carts/:id/items", h.Cart.AddItem)
		v1.PATCH("/carts/:id/items", h.Cart.UpdateItem)
		v1.DELETE("/carts/:id/items", h.Cart.RemoveItem)
		v1.POST("/carts/:id/discount", h.Cart.ApplyDiscount)
		v1.DELETE("/carts/:id/discount", h.Cart.RemoveDiscount)
		v1.POST("/carts/:id/checkout", h.Cart.Checkout)

		v1.GET("/assistant/catalog", h.Assistant.Catalog)
		v1.POST("/assistant/links", h.Assistant.Links)
	}

	// SSE authenticates with a query token
	router.GET("/v1/admin/events", h.SSE.Stream)

	admin := router.Group("/v1/admin")
	admin.Use(jwtMiddleware.Handle())
	{
		// Products
		admin.GET("/products/low-stock", h.Catalog.LowStock)
		admin.POST("/products", h.Catalog.CreateProduct)
		admin.PUT("/products/:id", h.Catalog.UpdateProduct)
		admin.DELETE("/products/:id", h.Catalog.DeleteProduct)
		admin.POST("/products/import", h.Import.Import)
		admin.GET("/products/import/template", h.Import.Template)

		// Brands and devices
		admin.POST("/brands", h.Catalog.CreateBrand)
		admin.DELETE("/brands/:id", h.Catalog.DeleteBrand)
		admin.POST("/devices", h.Catalog.CreateDevice)
		admin.DELETE("/devices/:id", h.Catalog.DeleteDevice)

		// Carousel
		admin.POST("/slides", h.Catalog.CreateSlide)
		admin.PUT("/slides/:id", h.Catalog.UpdateSlide)
		admin.DELETE("/slides/:id", h.Catalog.DeleteSlide)

		// Discounts
		admin.GET("/discounts", h.Discount.ListDiscounts)
		admin.POST("/discounts", h.Discount.CreateDiscount)
		admin.PUT("/discounts/:id", h.Discount.UpdateDiscount)
		admin.DELETE("/discounts/:id", h.Discount.DeleteDiscount)
		admin.POST("/discounts/:id/toggle", h.Discount.ToggleDiscount)

		// Orders
		admin.GET("/orders", h.Order.ListOrders)
		admin.GET("/orders/:id", h.Order.GetOrder)
		admin.POST("/orders/:id/advance", h.Order.AdvanceOrder)
		admin.PUT("/orders/:id/status", h.Order.SetOrderStatus)

		// Settings
		admin.PUT("/settings", h.Catalog.UpdateSettings)

		// Store sync
		admin.GET("/sync", h.Sync.GetStatus)
		admin.POST("/sync/drain", h.Sync.Drain)
		admin.POST("/sync/:id/retry", h.Sync.Retry)
		admin.DELETE("/sync/:id", h.Sync.Discard)
	}
}
