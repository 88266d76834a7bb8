package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Nerzal/gocloak/v13"
	"github.com/ak/oms/internal/infrastructure/config"
)

// KeycloakIdentity is what an external login tells us about an operator
type KeycloakIdentity struct {
	Subject  string
	Username string
	Name     string
	Roles    []string
}

// KeycloakService checks operator credentials against a Keycloak realm
type KeycloakService interface {
	Authenticate(ctx context.Context, username, password string) (*KeycloakIdentity, error)
}

type keycloakService struct {
	client *gocloak.GoCloak
	config config.KeycloakConfig
}

// NewKeycloakService creates a new Keycloak service
func NewKeycloakService(cfg config.KeycloakConfig) (KeycloakService, error) {
	if cfg.URL == "" || cfg.Realm == "" || cfg.ClientID == "" {
		return nil, fmt.Errorf("keycloak url, realm and client_id are required")
	}
	return &keycloakService{
		client: gocloak.NewClient(cfg.URL),
		config: cfg,
	}, nil
}

func (s *keycloakService) Authenticate(ctx context.Context, username, password string) (*KeycloakIdentity, error) {
	token, err := s.client.Login(ctx, s.config.ClientID, s.config.ClientSecret, s.config.Realm, username, password)
	if err != nil {
		var apiErr *gocloak.APIError
		if errors.As(err, &apiErr) && apiErr.Code == 401 {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: %v", ErrIdentityProvider, err)
	}

	info, err := s.client.GetUserInfo(ctx, token.AccessToken, s.config.Realm)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to get user info: %v", ErrIdentityProvider, err)
	}

	identity := &KeycloakIdentity{Username: username}
	if info.Sub != nil {
		identity.Subject = *info.Sub
	}
	if info.PreferredUsername != nil {
		identity.Username = *info.PreferredUsername
	}
	if info.Name != nil {
		identity.Name = *info.Name
	}

	_, claims, err := s.client.DecodeAccessToken(ctx, token.AccessToken, s.config.Realm)
	if err == nil && claims != nil {
		identity.Roles = realmRoles(*claims)
	}

	return identity, nil
}

// realmRoles reads realm_access.roles from decoded token claims
func realmRoles(claims map[string]any) []string {
	access, ok := claims["realm_access"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := access["roles"].([]any)
	if !ok {
		return nil
	}

	var roles []string
	for _, r := range raw {
		if name, ok := r.(string); ok {
			roles = append(roles, name)
		}
	}
	return roles
}

// roleFromIdentity maps Keycloak realm roles onto dashboard roles
func roleFromIdentity(identity *KeycloakIdentity) string {
	if slices.Contains(identity.Roles, "oms-admin") || slices.Contains(identity.Roles, "admin") {
		return "admin"
	}
	return "staff"
}
