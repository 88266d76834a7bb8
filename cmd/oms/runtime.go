package main

import (
	"context"
	"fmt"
	"time"

	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/infrastructure/config"
	"github.com/ak/oms/internal/infrastructure/database"
	infrarepos "github.com/ak/oms/internal/infrastructure/repositories"
	"github.com/ak/oms/internal/infrastructure/sources"
	"github.com/ak/oms/internal/pkg/logger"
	"github.com/ak/oms/internal/pkg/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// runtime is the set of live connections a command works with
type runtime struct {
	log     *logger.Logger
	mongodb *database.MongoDB // nil when the command runs without the store
	pool    *pgxpool.Pool
	repos   *infrarepos.Provider
	source  repositories.OrderSource
	metrics *metrics.Registry
}

func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.SetGlobal(log)
	return cfg, log, nil
}

// connect opens the primary store and the configured order source. The store
// is skipped when needStore is false and the source lives elsewhere.
func connect(ctx context.Context, cfg *config.Config, log *logger.Logger, needStore bool) (*runtime, error) {
	rt := &runtime{log: log, metrics: metrics.NewRegistry()}

	driver := cfg.Source.Driver
	if needStore || driver == "" || driver == "mongodb" {
		mongodb, err := database.NewMongoDB(cfg.MongoDB, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create MongoDB client: %w", err)
		}
		if err := mongodb.Connect(ctx); err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		rt.mongodb = mongodb
		rt.repos = infrarepos.NewProvider(mongodb)
	}

	if driver == "supabase" {
		pool, err := database.ConnectPostgres(ctx, cfg.Postgres)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to connect to Supabase: %w", err)
		}
		rt.pool = pool
		log.Info("Connected to Supabase", zap.String("table", cfg.Postgres.OrdersTable))
	}

	deps := sources.Deps{Pool: rt.pool, Logger: log}
	if rt.repos != nil {
		deps.Orders = rt.repos.Order
	}
	source, err := sources.New(cfg, deps)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("failed to configure order source: %w", err)
	}
	rt.source = source

	return rt, nil
}

func (rt *runtime) Close() {
	if rt.pool != nil {
		rt.pool.Close()
	}
	if rt.mongodb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := rt.mongodb.Close(ctx); err != nil {
			rt.log.Error("Failed to close MongoDB connection", zap.Error(err))
		}
	}
}
