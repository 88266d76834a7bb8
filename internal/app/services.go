package app

import (
	"github.com/ak/oms/internal/domain/phone"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/domain/services"
	"github.com/ak/oms/internal/infrastructure/config"
	"github.com/ak/oms/internal/infrastructure/export"
	infrarepos "github.com/ak/oms/internal/infrastructure/repositories"
	"github.com/ak/oms/internal/pkg/logger"
	"github.com/ak/oms/internal/pkg/metrics"
	"go.uber.org/zap"
)

// Services is everything the handlers and CLI commands call into
type Services struct {
	Orders    services.OrderService
	Customers services.CustomerService
	Products  services.ProductService
	Auth      services.AuthService
	Exports   services.ExportService
}

// NewServices wires the domain services over the MongoDB repositories and the
// configured order source.
func NewServices(cfg *config.Config, log *logger.Logger, repos *infrarepos.Provider, source repositories.OrderSource, m *metrics.Registry) *Services {
	loc := cfg.Location()

	orders := services.NewOrderService(repos.Order, source, phone.NewNormalizer(PhonePolicy(cfg.Phone)), services.OrderPolicy{
		ExcludedDeliveryDays: cfg.ExcludedDeliveryDays(),
		PhoneRegion:          cfg.Phone.DefaultRegion,
		CacheTTL:             cfg.Source.CacheTTL,
		Location:             loc,
	}, m, log)

	// Keycloak is optional; without it operators log in with local accounts
	var keycloakSvc services.KeycloakService
	if cfg.Keycloak.URL != "" {
		var err error
		keycloakSvc, err = services.NewKeycloakService(cfg.Keycloak)
		if err != nil {
			log.Warn("Keycloak login unavailable, falling back to local accounts", zap.Error(err))
		}
	}

	return &Services{
		Orders:    orders,
		Customers: services.NewCustomerService(orders),
		Products:  services.NewProductService(repos.Product, m, log),
		Auth:      services.NewAuthService(repos.Admin, keycloakSvc, log),
		Exports: services.NewExportService(orders, services.ExportSettings{
			CSVEncoding: cfg.Export.CSVEncoding,
			Sender: export.Sender{
				Name:    cfg.Export.SenderName,
				Phone:   cfg.Export.SenderPhone,
				Address: cfg.Export.SenderAddress,
			},
			Location: loc,
		}, log),
	}
}

// PhonePolicy converts configured country rules. An empty list falls back to
// the default policy.
func PhonePolicy(cfg config.PhoneConfig) phone.Policy {
	if len(cfg.CountryRules) == 0 {
		return phone.DefaultPolicy()
	}
	policy := phone.Policy{Rules: make([]phone.CountryRule, 0, len(cfg.CountryRules))}
	for _, r := range cfg.CountryRules {
		policy.Rules = append(policy.Rules, phone.CountryRule{
			Prefix:           r.Prefix,
			SubscriberLength: r.SubscriberLength,
			LocalPrefix:      r.LocalPrefix,
		})
	}
	return policy
}
