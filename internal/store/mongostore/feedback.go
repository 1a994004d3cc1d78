package mongostore

import (
	"context"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/store"
)

type FeedbackStore struct {
	coll *mongo.Collection
}

func NewFeedbackStore(db *mongo.Database) *FeedbackStore {
	return &FeedbackStore{coll: db.Collection(FeedbackCollection)}
}

// buildFeedbackFilter turns a listing query into a Mongo filter.
func buildFeedbackFilter(q store.FeedbackQuery) bson.M {
	filter := bson.M{}

	if s := strings.TrimSpace(q.Search); s != "" {
		pattern := regexp.QuoteMeta(s)
		filter["$or"] = bson.A{
			bson.M{"callId": bson.M{"$regex": pattern, "$options": "i"}},
			bson.M{"citizenMobile": bson.M{"$regex": pattern}},
			bson.M{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	if st := strings.TrimSpace(q.Status); st != "" && st != "all" {
		filter["status"] = st
	}
	if d := strings.TrimSpace(q.Department); d != "" && d != "all" {
		filter["department"] = d
	}
	return filter
}

func (s *FeedbackStore) List(ctx context.Context, q store.FeedbackQuery) ([]models.Feedback, error) {
	opts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	cursor, err := s.coll.Find(ctx, buildFeedbackFilter(q), opts)
	if err != nil {
		return nil, translate("list feedback", err)
	}
	defer cursor.Close(ctx)

	out := []models.Feedback{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate("decode feedback", err)
	}
	return out, nil
}

func (s *FeedbackStore) Get(ctx context.Context, id string) (*models.Feedback, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	var f models.Feedback
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&f); err != nil {
		return nil, translate("get feedback", err)
	}
	return &f, nil
}

func (s *FeedbackStore) Create(ctx context.Context, f *models.Feedback) error {
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now

	res, err := s.coll.InsertOne(ctx, f)
	if err != nil {
		return translate("insert feedback", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		f.ID = oid
	}
	return nil
}

func (s *FeedbackStore) UpdateStatus(ctx context.Context, id string, status models.FeedbackStatus) (*models.Feedback, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}

	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var f models.Feedback
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&f); err != nil {
		return nil, translate("update feedback status", err)
	}
	return &f, nil
}
