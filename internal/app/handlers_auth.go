package app

import (
	"time"

	"github.com/ak/oms/internal/app/middleware"
	"github.com/ak/oms/internal/domain/models"
	apperrors "github.com/ak/oms/internal/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ==================== Auth handlers ====================

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type TokenResponse struct {
	Token     string        `json:"token"`
	TokenType string        `json:"token_type"`
	ExpiresAt time.Time     `json:"expires_at"`
	Admin     *models.Admin `json:"admin,omitempty"`
}

func (a *Application) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, apperrors.InvalidInput(err.Error()))
		return
	}

	admin, err := a.services.Auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	a.issueToken(c, admin)
}

func (a *Application) me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		errorResponse(c, apperrors.Unauthorized("missing token claims"))
		return
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	successResponse(c, gin.H{
		"admin_id":            claims.AdminID,
		"username":            claims.Username,
		"role":                claims.Role,
		"expires_at":          expiresAt,
		"refresh_recommended": middleware.NeedsRefresh(a.jwt, claims, time.Now()),
	})
}

// refreshToken reissues a token for the still-valid one on the request. The
// account is reloaded so disabled admins and role changes take effect.
func (a *Application) refreshToken(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		errorResponse(c, apperrors.Unauthorized("missing token claims"))
		return
	}

	admin, err := a.services.Auth.Reload(c.Request.Context(), &models.Admin{
		ID:       claims.AdminID,
		Username: claims.Username,
		Role:     models.AdminRole(claims.Role),
	})
	if err != nil {
		a.handleServiceError(c, err)
		return
	}

	a.issueToken(c, admin)
}

func (a *Application) issueToken(c *gin.Context, admin *models.Admin) {
	token, expiresAt, err := middleware.GenerateToken(a.jwt, admin)
	if err != nil {
		a.logger.Error("Failed to sign token", zap.String("admin_id", admin.ID), zap.Error(err))
		errorResponse(c, apperrors.Internal("failed to issue token"))
		return
	}

	resp := TokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expiresAt,
	}
	// Only a full login carries the admin record
	if admin.Name != "" {
		resp.Admin = admin
	}
	successResponse(c, resp)
}
