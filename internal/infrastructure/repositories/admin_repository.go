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
)

type adminRepository struct {
	collection *mongo.Collection
}

func NewAdminRepository(db *database.MongoDB) repositories.AdminRepository {
	return &adminRepository{
		collection: db.Collection(database.CollectionAdmins),
	}
}

func (r *adminRepository) Create(ctx context.Context, admin *models.Admin) error {
	if admin.ID == "" {
		admin.ID = primitive.NewObjectID().Hex()
	}
	admin.CreatedAt = time.Now()
	admin.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, admin)
	if mongo.IsDuplicateKeyError(err) {
		return repositories.ErrDuplicateKey
	}
	return err
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*models.Admin, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *adminRepository) GetByUsername(ctx context.Context, username string) (*models.Admin, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *adminRepository) findOne(ctx context.Context, query bson.M) (*models.Admin, error) {
	var admin models.Admin
	err := r.collection.FindOne(ctx, query).Decode(&admin)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &admin, nil
}

func (r *adminRepository) TouchLogin(ctx context.Context, id string, at time.Time) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"last_login_at": at}},
	)
	return err
}
