package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ak/oms/internal/infrastructure/config"
	"github.com/ak/oms/internal/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// MongoDB wraps the MongoDB client and database
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	config   config.MongoDBConfig
	logger   *logger.Logger
}

// NewMongoDB creates a new MongoDB connection
func NewMongoDB(cfg config.MongoDBConfig, log *logger.Logger) (*MongoDB, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongodb uri is required")
	}
	return &MongoDB{
		config: cfg,
		logger: log.WithComponent("mongodb"),
	}, nil
}

// Connect establishes connection to MongoDB
func (m *MongoDB) Connect(ctx context.Context) error {
	clientOpts := options.Client().
		ApplyURI(m.config.URI).
		SetMaxPoolSize(m.config.MaxPoolSize).
		SetMinPoolSize(m.config.MinPoolSize).
		SetConnectTimeout(m.config.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	m.client = client
	m.database = client.Database(m.config.Database)
	m.logger.Info("Connected to MongoDB", zap.String("database", m.config.Database))

	if err := m.createIndexes(ctx); err != nil {
		m.logger.Warn("Failed to create some indexes", zap.Error(err))
	}

	return nil
}

// Close closes the MongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	if m.client != nil {
		return m.client.Disconnect(ctx)
	}
	return nil
}

// Database returns the database instance
func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

// Collection returns a collection by name
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// Collections
const (
	CollectionOrders         = "orders"
	CollectionProducts       = "products"
	CollectionStockMovements = "stock_movements"
	CollectionAdmins         = "admins"
)

// createIndexes creates necessary indexes for all collections
func (m *MongoDB) createIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		CollectionOrders: {
			{Keys: bson.D{{Key: "order_number", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "phone_digits", Value: 1}}},
			{Keys: bson.D{{Key: "delivery_method", Value: 1}, {Key: "delivery_date", Value: 1}}},
		},
		CollectionProducts: {
			{Keys: bson.D{{Key: "sku", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "active", Value: 1}, {Key: "name", Value: 1}}},
		},
		CollectionStockMovements: {
			{Keys: bson.D{{Key: "product_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "created_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(86400 * 365)}, // TTL: 1 year
		},
		CollectionAdmins: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for collection, idxModels := range indexes {
		coll := m.database.Collection(collection)
		for _, idx := range idxModels {
			_, err := coll.Indexes().CreateOne(ctx, idx)
			if err != nil {
				m.logger.Warn("Failed to create index",
					zap.String("collection", collection),
					zap.Error(err))
			}
		}
	}

	return nil
}

// Health checks if MongoDB is healthy
func (m *MongoDB) Health(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("mongodb not connected")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return m.client.Ping(ctx, readpref.Primary())
}

// Ping is an alias of Health used by readiness checks
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.Health(ctx)
}
