package stay

import (
	"context"
	"errors"

	"innkeeper/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoRepo implements Repository backed by the stays collection.
type MongoRepo struct {
	coll *mongo.Collection
}

func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{coll: db.Collection("stays")}
}

func (r *MongoRepo) Create(ctx context.Context, s *models.Stay) error {
	_, err := r.coll.InsertOne(ctx, s)
	return err
}

func (r *MongoRepo) GetByID(ctx context.Context, id string) (*models.Stay, error) {
	var s models.Stay
	err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&s)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *MongoRepo) ApplyTransition(ctx context.Context, id string, from models.StayStatus, entry models.StayHistoryEntry, set map[string]interface{}) error {
	setDoc := bson.M{
		"status":     entry.ToStatus,
		"updated_at": entry.Timestamp,
	}
	for k, v := range set {
		setDoc[k] = v
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": from},
		bson.M{
			"$set":  setDoc,
			"$push": bson.M{"history": entry},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing stay from a lost race.
		n, err := r.coll.CountDocuments(ctx, bson.M{"id": id})
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrNotFound
		}
		return ErrStaleStatus
	}
	return nil
}

func (r *MongoRepo) AppendEvent(ctx context.Context, id string, current models.StayStatus, entry models.StayHistoryEntry, set map[string]interface{}) error {
	setDoc := bson.M{"updated_at": entry.Timestamp}
	for k, v := range set {
		setDoc[k] = v
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": current},
		bson.M{
			"$set":  setDoc,
			"$push": bson.M{"history": entry},
		},
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
		return ErrStaleStatus
	}
	return nil
}

func (r *MongoRepo) ListWithPaymentsDue(ctx context.Context, onOrBefore string) ([]models.Stay, error) {
	filter := bson.M{
		"status": bson.M{"$in": []models.StayStatus{models.StatusBooked, models.StatusConfirmed}},
		"folio.payment_schedule": bson.M{"$elemMatch": bson.M{
			"status":   models.PaymentItemPending,
			"due_date": bson.M{"$lte": onOrBefore, "$ne": ""},
		}},
	}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var stays []models.Stay
	if err := cur.All(ctx, &stays); err != nil {
		return nil, err
	}
	return stays, nil
}
