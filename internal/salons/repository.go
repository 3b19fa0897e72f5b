package salons

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Repository interface {
	Create(ctx context.Context, salon Salon) error
	GetByID(ctx context.Context, id string) (Salon, error)
	UpdateSettings(ctx context.Context, id string, set bson.M) (Salon, error)
}

type MongoRepository struct {
	col *mongo.Collection
}

func NewRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) Create(ctx context.Context, salon Salon) error {
	_, err := r.col.InsertOne(ctx, salon)
	return err
}

func (r *MongoRepository) GetByID(ctx context.Context, id string) (Salon, error) {
	var salon Salon
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&salon); err != nil {
		return Salon{}, err
	}
	return salon, nil
}

func (r *MongoRepository) UpdateSettings(ctx context.Context, id string, set bson.M) (Salon, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated Salon
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		return Salon{}, err
	}
	return updated, nil
}
