package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GTDGit/storefront_api/internal/models"
	"github.com/GTDGit/storefront_api/internal/service"
	"github.com/GTDGit/storefront_api/internal/utils"
)

// OrderHandler serves admin order management.
type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// ListOrders handles GET /v1/admin/orders?status=&page=&limit=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	orders, err := h.orders.Orders(c.Request.Context())
	if err != nil {
		utils.FromError(c, err, "Failed to retrieve orders")
		return
	}
	if status := models.OrderStatus(c.Query("status")); status != "" {
		filtered := orders[:0]
		for _, o := range orders {
			if o.Status == status {
				filtered = append(filtered, o)
			}
		}
		orders = filtered
	}
	page, limit := pageParams(c)
	items, pagination := utils.Paginate(orders, page, limit)
	utils.SuccessWithPagination(c, 200, "Orders retrieved", items, pagination)
}

// OrdersByPhone handles GET /v1/orders?phone=
func (h *OrderHandler) OrdersByPhone(c *gin.Context) {
	orders, err := h.orders.OrdersByPhone(c.Request.Context(), c.Query("phone"))
	if err != nil {
		utils.FromError(c, err, "Failed to retrieve orders")
		return
	}
	utils.Success(c, 200, "Orders retrieved", orders)
}

const maxPageLimit = 200

// pageParams reads page and limit, falling back to the first page of
// utils.DefaultPageLimit on missing or invalid values.
func pageParams(c *gin.Context) (int, int) {
	page, err := strconv.Atoi(c.Query("page"))
	if err != nil || page < 1 {
		page = 1
	}
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit < 1 {
		limit = utils.DefaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// GetOrder handles GET /v1/admin/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orders.Order(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.FromError(c, err, "Failed to retrieve order")
		return
	}
	utils.Success(c, 200, "Order retrieved", order)
}

// AdvanceOrder handles POST /v1/admin/orders/:id/advance
func (h *OrderHandler) AdvanceOrder(c *gin.Context) {
	order, err := h.orders.AdvanceStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.FromError(c, err, "Failed to advance order")
		return
	}
	utils.Success(c, 200, "Order status updated", order)
}

// SetOrderStatus handles PUT /v1/admin/orders/:id/status
func (h *OrderHandler) SetOrderStatus(c *gin.Context) {
	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	order, err := h.orders.SetStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		utils.FromError(c, err, "Failed to update order status")
		return
	}
	utils.Success(c, 200, "Order status updated", order)
}
