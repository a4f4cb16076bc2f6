package hold

import (
	"context"
	"errors"
	"time"

	"innkeeper/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoRepo implements Repository backed by the holds collection.
type MongoRepo struct {
	coll *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{coll: db.Collection("holds")}
}

func (r *MongoRepo) Create(ctx context.Context, h *models.Hold) error {
	_, err := r.coll.InsertOne(ctx, h)
	return err
}

func (r *MongoRepo) GetByID(ctx context.Context, id string) (*models.Hold, error) {
	var h models.Hold
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&h)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *MongoRepo) Resolve(ctx context.Context, id string, to models.HoldStatus) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": models.HoldActive},
		bson.M{"$set": bson.M{"status": to}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		n, err := r.coll.CountDocuments(ctx, bson.M{"id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrAlreadyResolved
	}
	return nil
}

func (r *MongoRepo) ListExpired(ctx context.Context, now time.Time) ([]models.Hold, error) {
	cur, err := r.coll.Find(ctx, bson.M{
		"status":     models.HoldActive,
		"expires_at": bson.M{"$lte": now},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var holds []models.Hold
	if err := cur.All(ctx, &holds); err != nil {
		return nil, err
	}
	return holds, nil
}
