package middleware

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/ak/oms/internal/domain/models"
	apperrors "github.com/ak/oms/internal/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims represents the JWT token claims
type AdminClaims struct {
	AdminID  string `json:"admin_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTConfig holds JWT middleware configuration
type JWTConfig struct {
	Secret           string
	Issuer           string
	AccessTokenTTL   time.Duration
	RefreshThreshold time.Duration
}

const (
	claimsKey  = "claims"
	adminIDKey = "admin_id"
	roleKey    = "role"
)

// JWTMiddleware creates a JWT authentication middleware
func JWTMiddleware(config JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abort(c, apperrors.Unauthorized("missing authorization header"))
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			abort(c, apperrors.Unauthorized("invalid authorization header format"))
			return
		}

		claims, err := ValidateToken(parts[1], config.Secret)
		if err != nil {
			code := apperrors.ErrTokenInvalid
			if errors.Is(err, errTokenExpired) {
				code = apperrors.ErrTokenExpired
			}
			abort(c, apperrors.New(code, err.Error(), http.StatusUnauthorized))
			return
		}

		if claims.Issuer != config.Issuer {
			abort(c, apperrors.New(apperrors.ErrTokenInvalid, "invalid token issuer", http.StatusUnauthorized))
			return
		}

		c.Set(claimsKey, claims)
		c.Set(adminIDKey, claims.AdminID)
		c.Set(roleKey, claims.Role)

		c.Next()
	}
}

// GenerateToken signs an access token for admin and returns it with its expiry
func GenerateToken(config JWTConfig, admin *models.Admin) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(config.AccessTokenTTL)
	claims := AdminClaims{
		AdminID:  admin.ID,
		Username: admin.Username,
		Role:     string(admin.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    config.Issuer,
			Subject:   admin.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(config.Secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

var errTokenExpired = errors.New("token has expired")

// ValidateToken validates a JWT token and returns the claims
func ValidateToken(tokenString, secret string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, errTokenExpired
		}
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(*AdminClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	return claims, nil
}

// NeedsRefresh reports whether claims expire within the refresh threshold
func NeedsRefresh(config JWTConfig, claims *AdminClaims, now time.Time) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Sub(now) <= config.RefreshThreshold
}

// RequireRole creates a middleware that checks the operator role
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		if role == "" {
			abort(c, apperrors.Forbidden("no role found in token"))
			return
		}

		if !slices.Contains(roles, role) {
			abort(c, apperrors.New(apperrors.ErrInsufficientRole, "insufficient permissions", http.StatusForbidden))
			return
		}

		c.Next()
	}
}

// GetAdminID extracts the operator ID from context
func GetAdminID(c *gin.Context) string {
	return c.GetString(adminIDKey)
}

func GetRole(c *gin.Context) string {
	return c.GetString(roleKey)
}

// GetClaims extracts JWT claims from context
func GetClaims(c *gin.Context) *AdminClaims {
	if claims, exists := c.Get(claimsKey); exists {
		if adminClaims, ok := claims.(*AdminClaims); ok {
			return adminClaims
		}
	}
	return nil
}

func abort(c *gin.Context, err *apperrors.APIError) {
	c.AbortWithStatusJSON(err.HTTPStatus, apperrors.NewErrorResponse(err))
}
