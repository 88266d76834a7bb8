package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ak/oms/internal/app/middleware"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/domain/services"
	apperrors "github.com/ak/oms/internal/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIResponse is the standard API response format
type APIResponse struct {
	Success   bool                `json:"success"`
	Data      interface{}         `json:"data,omitempty"`
	Error     *apperrors.APIError `json:"error,omitempty"`
	Meta      *APIMeta            `json:"meta,omitempty"`
	Timestamp string              `json:"timestamp"`
}

type APIMeta struct {
	Page       int   `json:"page,omitempty"`
	PerPage    int   `json:"per_page,omitempty"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func successResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func createdResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func paginatedResponse(c *gin.Context, data interface{}, page, perPage int, total int64) {
	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	c.JSON(http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
		Meta: &APIMeta{
			Page:       page,
			PerPage:    perPage,
			Total:      total,
			TotalPages: totalPages,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func errorResponse(c *gin.Context, err *apperrors.APIError) {
	c.JSON(err.HTTPStatus, APIResponse{
		Success:   false,
		Error:     err,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// handleServiceError maps service errors onto API errors. Anything it does not
// recognise is logged and reported as a 500.
func (a *Application) handleServiceError(c *gin.Context, err error) {
	var apiErr *apperrors.APIError
	switch {
	case errors.Is(err, services.ErrValidation):
		apiErr = apperrors.Validation(strings.TrimPrefix(err.Error(), services.ErrValidation.Error()+": "))
	case errors.Is(err, services.ErrOrderNotFound):
		apiErr = apperrors.NotFound("Order")
	case errors.Is(err, services.ErrProductNotFound):
		apiErr = apperrors.NotFound("Product")
	case errors.Is(err, services.ErrAdminNotFound):
		apiErr = apperrors.NotFound("Admin")
	case errors.Is(err, services.ErrOrderExists),
		errors.Is(err, services.ErrProductExists),
		errors.Is(err, services.ErrAdminExists):
		apiErr = apperrors.New(apperrors.ErrAlreadyExists, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrInvalidTransition):
		apiErr = apperrors.InvalidTransition(err.Error())
	case errors.Is(err, services.ErrInsufficientStock):
		apiErr = apperrors.InsufficientStock("not enough stock for this adjustment")
	case errors.Is(err, services.ErrInvalidCredentials):
		apiErr = apperrors.New(apperrors.ErrInvalidCredentials, "invalid username or password", http.StatusUnauthorized)
	case errors.Is(err, services.ErrAccountRevoked):
		apiErr = apperrors.New(apperrors.ErrAccountRevoked, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, services.ErrSourceUnavailable):
		apiErr = apperrors.SourceError(err)
	case errors.Is(err, services.ErrIdentityProvider):
		apiErr = apperrors.KeycloakError(err)
	default:
		a.logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.Error(err),
		)
		apiErr = apperrors.Internal("internal error")
	}
	errorResponse(c, apiErr)
}

func getPagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return page, limit
}

// parseTimeParam accepts RFC 3339 or a bare date in loc. A bare date used as
// an upper bound covers the whole day.
func parseTimeParam(value string, loc *time.Location, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return &t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD or RFC 3339, got %q", value)
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &t, nil
}

// getWindow reads the from/to query parameters. It writes the error response
// itself and reports false when they are malformed.
func (a *Application) getWindow(c *gin.Context) (repositories.TimeWindow, bool) {
	loc := a.config.Location()
	from, err := parseTimeParam(c.Query("from"), loc, false)
	if err != nil {
		errorResponse(c, apperrors.InvalidInput("from: "+err.Error()))
		return repositories.TimeWindow{}, false
	}
	to, err := parseTimeParam(c.Query("to"), loc, true)
	if err != nil {
		errorResponse(c, apperrors.InvalidInput("to: "+err.Error()))
		return repositories.TimeWindow{}, false
	}
	if from != nil && to != nil && to.Before(*from) {
		errorResponse(c, apperrors.InvalidInput("to is before from"))
		return repositories.TimeWindow{}, false
	}
	return repositories.TimeWindow{From: from, To: to}, true
}

// Health and info endpoints

func (a *Application) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *Application) readinessCheck(c *gin.Context) {
	if a.store != nil {
		if err := a.store.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "not ready",
				"reason":    "database unavailable",
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *Application) apiInfo(c *gin.Context) {
	successResponse(c, gin.H{
		"name":          a.config.App.Name,
		"description":   "Order management dashboard API",
		"order_source":  a.config.Source.Driver,
		"identity":      identityMode(a.config.Keycloak.URL),
		"csv_encoding":  a.config.Export.CSVEncoding,
		"delivery_days": deliveryDays(a.config.ExcludedDeliveryDays()),
	})
}

func identityMode(keycloakURL string) string {
	if keycloakURL != "" {
		return "keycloak"
	}
	return "local"
}

// deliveryDays lists the weekdays home delivery runs on
func deliveryDays(excluded []time.Weekday) []string {
	days := make([]string, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		skip := false
		for _, e := range excluded {
			if e == d {
				skip = true
				break
			}
		}
		if !skip {
			days = append(days, strings.ToLower(d.String()))
		}
	}
	return days
}
