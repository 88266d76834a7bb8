package app

import (
	"github.com/ak/oms/internal/app/middleware"
	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/services"
	apperrors "github.com/ak/oms/internal/pkg/errors"
	"github.com/gin-gonic/gin"
)

// ==================== Product handlers ====================

func (a *Application) listProducts(c *gin.Context) {
	page, limit := getPagination(c)
	activeOnly := c.Query("include_inactive") != "true"

	products, total, err := a.services.Products.List(c.Request.Context(), activeOnly, page, limit)
	if err != nil {
		errorResponse(c, apperrors.DatabaseError(err))
		return
	}
	if products == nil {
		products = []*models.Product{}
	}

	paginatedResponse(c, products, page, limit, total)
}

func (a *Application) createProduct(c *gin.Context) {
	var req services.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, apperrors.InvalidInput(err.Error()))
		return
	}

	product, err := a.services.Products.Create(c.Request.Context(), req)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	createdResponse(c, product)
}

func (a *Application) getProduct(c *gin.Context) {
	product, err := a.services.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	successResponse(c, product)
}

func (a *Application) updateProduct(c *gin.Context) {
	var req services.ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, apperrors.InvalidInput(err.Error()))
		return
	}

	product, err := a.services.Products.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	successResponse(c, product)
}

func (a *Application) deleteProduct(c *gin.Context) {
	if err := a.services.Products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		a.handleServiceError(c, err)
		return
	}

	successResponse(c, gin.H{"message": "Product deactivated"})
}

func (a *Application) adjustStock(c *gin.Context) {
	var req services.StockAdjustment
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, apperrors.InvalidInput(err.Error()))
		return
	}

	product, err := a.services.Products.AdjustStock(c.Request.Context(), c.Param("id"), req, middleware.GetAdminID(c))
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	successResponse(c, gin.H{
		"product":   product,
		"low_stock": product.IsLowStock(),
	})
}
