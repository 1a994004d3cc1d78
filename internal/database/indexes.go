package database

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Indexes lists the indexes each collection needs, keyed by collection name.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		"feedbacks": {
			{Keys: bson.D{{Key: "callId", Value: 1}}, Options: options.Index().SetUnique(true).SetName("callId_unique")},
			{Keys: bson.D{{Key: "citizenMobile", Value: 1}}, Options: options.Index().SetName("citizenMobile")},
			{Keys: bson.D{{Key: "submittedAt", Value: -1}}, Options: options.Index().SetName("submittedAt_desc")},
			{Keys: bson.D{{Key: "status", Value: 1}}, Options: options.Index().SetName("status")},
		},
		"users": {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
			{Keys: bson.D{{Key: "type", Value: 1}}, Options: options.Index().SetName("type")},
			{Keys: bson.D{{Key: "active", Value: 1}}, Options: options.Index().SetName("active")},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("createdAt_desc")},
		},
		"departments": {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true).SetName("name_unique")},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true).SetName("email_unique")},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("createdAt_desc")},
		},
	}
}

// EnsureIndexes creates any missing indexes. Existing indexes with the same
// name and keys are left alone by the server.
func EnsureIndexes(ctx context.Context, db *mongo.Database, log *zap.Logger) error {
	for coll, models := range Indexes() {
		names, err := db.Collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
		log.Info("indexes ensured", zap.String("collection", coll), zap.Strings("indexes", names))
	}
	return nil
}
