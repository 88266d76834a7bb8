// Package sources provides the order sources used for whole-list
// computations: duplicate detection, the customer view and exports.
package sources

import (
	"fmt"

	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/infrastructure/config"
	"github.com/ak/oms/internal/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Deps carries the connections a source may need. Pool is only required for
// the supabase driver.
type Deps struct {
	Orders repositories.OrderSource
	Pool   *pgxpool.Pool
	Logger *logger.Logger
}

// New builds the source selected by cfg.Source.Driver
func New(cfg *config.Config, deps Deps) (repositories.OrderSource, error) {
	switch cfg.Source.Driver {
	case "", "mongodb":
		if deps.Orders == nil {
			return nil, fmt.Errorf("mongodb source requires the order store")
		}
		return deps.Orders, nil
	case "supabase":
		if deps.Pool == nil {
			return nil, fmt.Errorf("supabase source requires postgres.url")
		}
		return NewSupabaseSource(deps.Pool, cfg.Postgres.OrdersTable, cfg.Location(), deps.Logger), nil
	case "sheets":
		if cfg.Sheets.CSVURL == "" {
			return nil, fmt.Errorf("sheets source requires sheets.csv_url")
		}
		return NewSheetsSource(cfg.Sheets.CSVURL, cfg.Sheets.Timeout, cfg.Location(), deps.Logger), nil
	default:
		return nil, fmt.Errorf("unknown order source driver %q", cfg.Source.Driver)
	}
}
