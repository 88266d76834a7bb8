package app

import (
	"github.com/ak/oms/internal/app/middleware"
	"github.com/ak/oms/internal/domain/duplicates"
	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/domain/services"
	apperrors "github.com/ak/oms/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

// ==================== Order handlers ====================

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type UpdatePaymentRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required"`
}

func (a *Application) listOrders(c *gin.Context) {
	page, limit := getPagination(c)
	filter := repositories.OrderFilter{
		Query: c.Query("q"),
		Page:  page,
		Limit: limit,
	}

	var err error
	if s := c.Query("status"); s != "" {
		if filter.Status, err = models.ParseOrderStatus(s); err != nil {
			errorResponse(c, apperrors.InvalidInput(err.Error()))
			return
		}
	}
	if s := c.Query("payment_status"); s != "" {
		if filter.PaymentStatus, err = models.ParsePaymentStatus(s); err != nil {
			errorResponse(c, apperrors.InvalidInput(err.Error()))
			return
		}
	}
	if s := c.Query("delivery_method"); s != "" {
		if filter.DeliveryMethod, err = models.ParseDeliveryMethod(s); err != nil {
			errorResponse(c, apperrors.InvalidInput(err.Error()))
			return
		}
	}

	window, ok := a.getWindow(c)
	if !ok {
		return
	}
	filter.From, filter.To = window.From, window.To

	orders, total, err := a.services.Orders.List(c.Request.Context(), filter)
	if err != nil {
		errorResponse(c, apperrors.DatabaseError(err))
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}

	paginatedResponse(c, orders, page, limit, total)
}

func (a *Application) createOrder(c *gin.Context) {
	var req services.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, apperrors.InvalidInput(err.Error()))
		return
	}

	order, err := a.services.Orders.Create(c.Request.Context(), req, middleware.GetAdminID(c))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	createdResponse(c, order)
}

func (a *Application) getOrder(c *gin.Context) {
	order, err := a.services.Orders.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	successResponse(c, order)
}

func (a *Application) updateOrderStatus(c *gin.Context) {
	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, apperrors.InvalidInput(err.Error()))
		return
	}
	status, err := models.ParseOrderStatus(req.Status)
	if err != nil {
		errorResponse(c, apperrors.InvalidInput(err.Error()))
		return
	}

	order, err := a.services.Orders.UpdateStatus(c.Request.Context(), c.Param("id"), status)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	successResponse(c, order)
}

func (a *Application) updateOrderPayment(c *gin.Context) {
	var req UpdatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, apperrors.InvalidInput(err.Error()))
		return
	}
	payment, err := models.ParsePaymentStatus(req.PaymentStatus)
	if err != nil {
		errorResponse(c, apperrors.InvalidInput(err.Error()))
		return
	}

	order, err := a.services.Orders.UpdatePayment(c.Request.Context(), c.Param("id"), payment)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	successResponse(c, order)
}

func (a *Application) deleteOrder(c *gin.Context) {
	if err := a.services.Orders.Delete(c.Request.Context(), c.Param("id")); err != nil {
		a.handleServiceError(c, err)
		return
	}

	successResponse(c, gin.H{"message": "Order deleted"})
}

// findDuplicates groups orders from a fresh source read by normalized phone
func (a *Application) findDuplicates(c *gin.Context) {
	window, ok := a.getWindow(c)
	if !ok {
		return
	}

	groups, err := a.services.Orders.FindDuplicates(c.Request.Context(), window)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}
	if groups == nil {
		groups = []models.DuplicateGroup{}
	}

	successResponse(c, gin.H{
		"groups":      groups,
		"group_count": len(groups),
		"order_count": duplicates.OrderCount(groups),
	})
}

func (a *Application) refreshOrders(c *gin.Context) {
	a.services.Orders.Invalidate()
	successResponse(c, gin.H{"message": "Order cache cleared"})
}

// ==================== Customer handlers ====================

func (a *Application) listCustomers(c *gin.Context) {
	page, limit := getPagination(c)

	customers, total, err := a.services.Customers.List(c.Request.Context(), c.Query("q"), page, limit)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	paginatedResponse(c, customers, page, limit, total)
}
