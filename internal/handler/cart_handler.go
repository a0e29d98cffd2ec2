package handler

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// CartHandler serves shopper cart sessions and checkout.
type CartHandler struct {
	carts  *service.CartService
	orders *service.OrderService
}

// NewCartHandler constructs a CartHandler.
func NewCartHandler(carts *service.CartService, orders *service.OrderService) *CartHandler {
	return &CartHandler{carts: carts, orders: orders}
}

type cartLineRequest struct {
	ProductID string `json:"productId" binding:"required"`
	VariantID string `json:"variantId"`
}

func (r cartLineRequest) key() models.CartKey {
	return models.CartKey{ProductID: strings.TrimSpace(r.ProductID), VariantID: strings.TrimSpace(r.VariantID)}
}

// CreateCart handles POST /v1/carts
func (h *CartHandler) CreateCart(c *gin.Context) {
	cart, err := h.carts.Create(c.Request.Context())
	if err != nil {
		utils.FromError(c, err, "Failed to create cart")
		return
	}
	utils.Success(c, 201, "Cart created", cart)
}

// GetCart handles GET /v1/carts/:id
func (h *CartHandler) GetCart(c *gin.Context) {
	cart, err := h.carts.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.FromError(c, err, "Failed to retrieve cart")
		return
	}
	utils.Success(c, 200, "Cart retrieved", cart)
}

// AddItem handles POST /v1/carts/:id/items
func (h *CartHandler) AddItem(c *gin.Context) {
	var req cartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	key := req.key()
	cart, err := h.carts.Add(c.Request.Context(), c.Param("id"), key.ProductID, key.VariantID)
	if err != nil {
		utils.FromError(c, err, "Failed to add item")
		return
	}
	utils.Success(c, 200, "Item added", cart)
}

// UpdateItem handles PATCH /v1/carts/:id/items
func (h *CartHandler) UpdateItem(c *gin.Context) {
	var req struct {
		cartLineRequest
		Delta int `json:"delta" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cart, err := h.carts.UpdateQuantity(c.Request.Context(), c.Param("id"), req.key(), req.Delta)
	if err != nil {
		utils.FromError(c, err, "Failed to update item")
		return
	}
	utils.Success(c, 200, "Item updated", cart)
}

// RemoveItem handles DELETE /v1/carts/:id/items?productId=&variantId=
// The line may also be named as key=productId:variantId. With all=true
// every line of the product is removed.
func (h *CartHandler) RemoveItem(c *gin.Context) {
	key := models.CartKey{
		ProductID: strings.TrimSpace(c.Query("productId")),
		VariantID: strings.TrimSpace(c.Query("variantId")),
	}
	if raw := strings.TrimSpace(c.Query("key")); raw != "" {
		key = models.ParseCartKey(raw)
	}
	if key.ProductID == "" {
		utils.Error(c, 400, "INVALID_REQUEST", "productId is required")
		return
	}

	var (
		cart *service.CartView
		err  error
	)
	if c.Query("all") == "true" {
		cart, err = h.carts.RemoveProduct(c.Request.Context(), c.Param("id"), key.ProductID)
	} else {
		cart, err = h.carts.Remove(c.Request.Context(), c.Param("id"), key)
	}
	if err != nil {
		utils.FromError(c, err, "Failed to remove item")
		return
	}
	utils.Success(c, 200, "Item removed", cart)
}

// ClearCart handles DELETE /v1/carts/:id
func (h *CartHandler) ClearCart(c *gin.Context) {
	cart, err := h.carts.Clear(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.FromError(c, err, "Failed to clear cart")
		return
	}
	utils.Success(c, 200, "Cart cleared", cart)
}

// ApplyDiscount handles POST /v1/carts/:id/discount
func (h *CartHandler) ApplyDiscount(c *gin.Context) {
	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	cart, err := h.carts.ApplyDiscount(c.Request.Context(), c.Param("id"), req.Code)
	if err != nil {
		utils.FromError(c, err, "Failed to apply discount")
		return
	}
	utils.Success(c, 200, "Discount applied", cart)
}

// RemoveDiscount handles DELETE /v1/carts/:id/discount
func (h *CartHandler) RemoveDiscount(c *gin.Context) {
	cart, err := h.carts.RemoveDiscount(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.FromError(c, err, "Failed to remove discount")
		return
	}
	utils.Success(c, 200, "Discount removed", cart)
}

// Checkout handles POST /v1/carts/:id/checkout. An Idempotency-Key header
// makes resubmissions return the first order.
func (h *CartHandler) Checkout(c *gin.Context) {
	var customer models.CustomerInfo
	if err := c.ShouldBindJSON(&customer); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.orders.PlaceOrder(c.Request.Context(), c.Param("id"), customer, c.GetHeader("Idempotency-Key"))
	if err != nil {
		if errors.Is(err, utils.ErrOrderNotPlaced) {
			status := utils.HTTPStatus(err)
			if status == 500 {
				status = 502
			}
			utils.Error(c, status, utils.Code(err), "Your order was not placed. Please try again.")
			return
		}
		utils.FromError(c, err, "Your order was not placed")
		return
	}

	status := 201
	if result.Replayed {
		status = 200
	}
	utils.Success(c, status, result.Message, result)
}
