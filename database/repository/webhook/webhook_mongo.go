package webhook

import (
	"context"
	"errors"

	"innkeeper/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRepo implements Repository backed by the webhook collections.
type MongoRepo struct {
	endpoints   *mongo.Collection
	deadLetters *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{
		endpoints:   db.Collection("webhook_endpoints"),
		deadLetters: db.Collection("webhook_dead_letters"),
	}
}

func (r *MongoRepo) UpsertEndpoint(ctx context.Context, ep *models.WebhookEndpoint) error {
	_, err := r.endpoints.UpdateOne(ctx,
		bson.M{"venue_id": ep.VenueID},
		bson.M{"$set": ep},
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *MongoRepo) GetEndpoint(ctx context.Context, venueID string) (*models.WebhookEndpoint, error) {
	var ep models.WebhookEndpoint
	err := r.endpoints.FindOne(ctx, bson.M{"venue_id": venueID}).Decode(&ep)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrEndpointNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

func (r *MongoRepo) SaveDeadLetter(ctx context.Context, dl *models.DeadLetter) error {
	_, err := r.deadLetters.InsertOne(ctx, dl)
	return err
}

func (r *MongoRepo) ListDeadLetters(ctx context.Context, stayID string) ([]models.DeadLetter, error) {
	cur, err := r.deadLetters.Find(ctx, bson.M{"event.stay_id": stayID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.DeadLetter
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
