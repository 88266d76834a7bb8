package repositories

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/ak/oms/internal/domain/models"
	"github.com/ak/oms/internal/domain/phone"
	"github.com/ak/oms/internal/domain/repositories"
	"github.com/ak/oms/internal/infrastructure/database"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// orderDocument adds the digits-only phone used by search
type orderDocument struct {
	models.Order `bson:",inline"`
	PhoneDigits  string `bson:"phone_digits"`
}

type orderRepository struct {
	collection *mongo.Collection
}

// OrderStore is the MongoDB order repository. It doubles as the "mongodb"
// order source.
type OrderStore interface {
	repositories.OrderRepository
	repositories.OrderSource
}

func NewOrderRepository(db *database.MongoDB) OrderStore {
	return &orderRepository{
		collection: db.Collection(database.CollectionOrders),
	}
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	now := time.Now()
	if order.ID == "" {
		order.ID = primitive.NewObjectID().Hex()
	}
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}
	if order.PaymentStatus == "" {
		order.PaymentStatus = models.PaymentStatusUnpaid
	}

	_, err := r.collection.InsertOne(ctx, toDocument(order))
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicateKey
	}
	return err
}

func (r *orderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var doc orderDocument
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &doc.Order, nil
}

func (r *orderRepository) Update(ctx context.Context, order *models.Order) error {
	order.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": order.ID}, toDocument(order))
	return err
}

func (r *orderRepository) Delete(ctx context.Context, id string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *orderRepository) List(ctx context.Context, filter repositories.OrderFilter) ([]*models.Order, int64, error) {
	query := buildOrderQuery(filter)

	total, err := r.collection.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}

	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	skip := (page - 1) * limit

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	orders, err := r.find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (r *orderRepository) Name() string { return "mongodb" }

// FetchOrders returns every order inside window, oldest first
func (r *orderRepository) FetchOrders(ctx context.Context, window repositories.TimeWindow) ([]*models.Order, error) {
	query := bson.M{}
	if created := timeRange(window.From, window.To); created != nil {
		query["created_at"] = created
	}

	opts := options.Find().SetSort(bson.D{
		{Key: "created_at", Value: 1},
		{Key: "_id", Value: 1},
	})
	return r.find(ctx, query, opts)
}

func (r *orderRepository) find(ctx context.Context, query bson.M, opts *options.FindOptions) ([]*models.Order, error) {
	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []orderDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	orders := make([]*models.Order, len(docs))
	for i := range docs {
		orders[i] = &docs[i].Order
	}
	return orders, nil
}

func toDocument(order *models.Order) orderDocument {
	return orderDocument{Order: *order, PhoneDigits: phone.Digits(order.CustomerPhone)}
}

func buildOrderQuery(filter repositories.OrderFilter) bson.M {
	query := bson.M{}

	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.PaymentStatus != "" {
		query["payment_status"] = filter.PaymentStatus
	}
	if filter.DeliveryMethod != "" {
		query["delivery_method"] = filter.DeliveryMethod
	}
	if created := timeRange(filter.From, filter.To); created != nil {
		query["created_at"] = created
	}

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q), Options: "i"}
		or := bson.A{
			bson.M{"order_number": pattern},
			bson.M{"customer_name": pattern},
		}
		if digits := phone.Digits(q); digits != "" {
			or = append(or, bson.M{"phone_digits": primitive.Regex{Pattern: regexp.QuoteMeta(digits)}})
		}
		query["$or"] = or
	}

	return query
}

func timeRange(from, to *time.Time) bson.M {
	if from == nil && to == nil {
		return nil
	}
	r := bson.M{}
	if from != nil {
		r["$gte"] = *from
	}
	if to != nil {
		r["$lte"] = *to
	}
	return r
}
