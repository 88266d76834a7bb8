package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// AuthService authenticates dashboard operators. Token issuing lives with
// the HTTP layer.
type AuthService interface {
	Authenticate(ctx context.Context, username, password string) (*models.Admin, error)
	GetAdmin(ctx context.Context, id string) (*models.Admin, error)
	// Reload re-reads the account behind a token before it is renewed
	Reload(ctx context.Context, current *models.Admin) (*models.Admin, error)
	CreateAdmin(ctx context.Context, req CreateAdminRequest) (*models.Admin, error)
}

type CreateAdminRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

const minPasswordLength = 8

const keycloakIDPrefix = "kc:"

type authService struct {
	adminRepo repositories.AdminRepository
	keycloak  KeycloakService // nil means local accounts only
	logger    *logger.Logger
	now       func() time.Time
}

func NewAuthService(adminRepo repositories.AdminRepository, keycloak KeycloakService, log *logger.Logger) AuthService {
	return &authService{
		adminRepo: adminRepo,
		keycloak:  keycloak,
		logger:    log.WithComponent("auth-service"),
		now:       time.Now,
	}
}

func (s *authService) Authenticate(ctx context.Context, username, password string) (*models.Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	if s.keycloak != nil {
		return s.authenticateKeycloak(ctx, username, password)
	}
	return s.authenticateLocal(ctx, username, password)
}

func (s *authService) authenticateLocal(ctx context.Context, username, password string) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	if admin == nil || !admin.Active {
		// same answer for unknown and disabled accounts
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		s.logger.Warn("Failed login", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	s.touch(ctx, admin)
	return admin, nil
}

func (s *authService) authenticateKeycloak(ctx context.Context, username, password string) (*models.Admin, error) {
	identity, err := s.keycloak.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Warn("Failed login", zap.String("username", username), zap.String("provider", "keycloak"))
		}
		return nil, err
	}

	// A local record, when present, pins the id and role and can disable access
	local, err := s.adminRepo.GetByUsername(ctx, identity.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	if local != nil {
		if !local.Active {
			return nil, ErrInvalidCredentials
		}
		s.touch(ctx, local)
		return local, nil
	}

	name := identity.Name
	if name == "" {
		name = identity.Username
	}
	return &models.Admin{
		ID:       keycloakIDPrefix + identity.Subject,
		Username: identity.Username,
		Name:     name,
		Role:     models.AdminRole(roleFromIdentity(identity)),
		Active:   true,
	}, nil
}

func (s *authService) touch(ctx context.Context, admin *models.Admin) {
	now := s.now()
	admin.LastLoginAt = &now
	if err := s.adminRepo.TouchLogin(ctx, admin.ID, now); err != nil {
		s.logger.Warn("Failed to record login time", zap.String("admin_id", admin.ID), zap.Error(err))
	}
}

func (s *authService) GetAdmin(ctx context.Context, id string) (*models.Admin, error) {
	admin, err := s.adminRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if admin == nil {
		return nil, ErrAdminNotFound
	}
	return admin, nil
}

func (s *authService) Reload(ctx context.Context, current *models.Admin) (*models.Admin, error) {
	if id, ok := strings.CutPrefix(current.ID, keycloakIDPrefix); ok && id != "" {
		// Keycloak accounts without a local record keep their token role
		local, err := s.adminRepo.GetByUsername(ctx, current.Username)
		if err != nil {
			return nil, fmt.Errorf("failed to load admin: %w", err)
		}
		if local == nil {
			return current, nil
		}
		if !local.Active {
			return nil, ErrAccountRevoked
		}
		return local, nil
	}

	admin, err := s.adminRepo.GetByID(ctx, current.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin: %w", err)
	}
	if admin == nil || !admin.Active {
		s.logger.Warn("Token refresh refused", zap.String("admin_id", current.ID))
		return nil, ErrAccountRevoked
	}
	return admin, nil
}

func (s *authService) CreateAdmin(ctx context.Context, req CreateAdminRequest) (*models.Admin, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: username is required", ErrValidation)
	}
	if len(req.Password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrValidation, minPasswordLength)
	}

	role := models.AdminRoleStaff
	if req.Role != "" {
		role = models.AdminRole(strings.ToLower(req.Role))
		if !role.Valid() {
			return nil, fmt.Errorf("%w: unknown role %q", ErrValidation, req.Role)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = username
	}

	admin := &models.Admin{
		Username:     username,
		PasswordHash: string(hash),
		Name:         name,
		Role:         role,
		Active:       true,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		if errors.Is(err, repositories.ErrDuplicateKey) {
			return nil, ErrAdminExists
		}
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info("Admin created", zap.String("username", username), zap.String("role", string(role)))
	return admin, nil
}
