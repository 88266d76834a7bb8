package services

import (
	"errors"

	"github.com/ak/oms/internal/domain/repositories"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrProductNotFound    = errors.New("product not found")
	ErrAdminNotFound      = errors.New("admin not found")
	ErrProductExists      = errors.New("product with this sku already exists")
	ErrOrderExists        = errors.New("order with this number already exists")
	ErrAdminExists        = errors.New("admin with this username already exists")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAccountRevoked     = errors.New("account is disabled or no longer exists")
	ErrSourceUnavailable  = errors.New("order source unavailable")
	ErrIdentityProvider   = errors.New("identity provider unavailable")

	// ErrValidation wraps every input problem; the message after the colon is
	// safe to show to the operator.
	ErrValidation = errors.New("validation failed")

	ErrInsufficientStock = repositories.ErrInsufficientStock
)
