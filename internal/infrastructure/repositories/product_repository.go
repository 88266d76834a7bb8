package repositories

import (
	"context"
	"time"

	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/infrastructure/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type productRepository struct {
	collection *mongo.Collection
	movements  *mongo.Collection
}

func NewProductRepository(db *database.MongoDB) repositories.ProductRepository {
	return &productRepository{
		collection: db.Collection(database.CollectionProducts),
		movements:  db.Collection(database.CollectionStockMovements),
	}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = primitive.NewObjectID().Hex()
	}
	product.CreatedAt = time.Now()
	product.UpdatedAt = time.Now()
	product.Active = true

	_, err := r.collection.InsertOne(ctx, product)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicateKey
	}
	return err
}

func (r *productRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *productRepository) GetBySKU(ctx context.Context, sku string) (*models.Product, error) {
	return r.findOne(ctx, bson.M{"sku": sku})
}

func (r *productRepository) findOne(ctx context.Context, query bson.M) (*models.Product, error) {
	var product models.Product
	err := r.collection.FindOne(ctx, query).Decode(&product)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &product, nil
}

// Update replaces descriptive fields. Stock only changes through AdjustStock.
func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": product.ID},
		bson.M{"$set": bson.M{
			"sku":        product.SKU,
			"name":       product.Name,
			"price":      product.Price,
			"low_stock":  product.LowStock,
			"active":     product.Active,
			"updated_at": product.UpdatedAt,
		}},
	)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicateKey
	}
	return err
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"active": false, "updated_at": time.Now()}},
	)
	return err
}

func (r *productRepository) List(ctx context.Context, activeOnly bool, page, limit int) ([]*models.Product, int64, error) {
	query := bson.M{}
	if activeOnly {
		query["active"] = true
	}

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	skip := (page - 1) * limit

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var products []*models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func (r *productRepository) AdjustStock(ctx context.Context, id string, delta int) (*models.Product, error) {
	query := bson.M{"_id": id}
	if delta < 0 {
		query["stock"] = bson.M{"$gte": -delta}
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var product models.Product
	err := r.collection.FindOneAndUpdate(ctx, query,
		bson.M{
			"$inc": bson.M{"stock": delta},
			"$set": bson.M{"updated_at": time.Now()},
		},
		opts,
	).Decode(&product)
	if err == nil {
		return &product, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	// Either the product is missing or the guard rejected the decrement
	existing, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	if existing == nil {
		return nil, nil
	}
	return nil, repositories.ErrInsufficientStock
}

func (r *productRepository) RecordMovement(ctx context.Context, movement *models.StockMovement) error {
	if movement.ID == "" {
		movement.ID = primitive.NewObjectID().Hex()
	}
	movement.CreatedAt = time.Now()
	_, err := r.movements.InsertOne(ctx, movement)
	return err
}
