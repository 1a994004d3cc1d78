package database

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const DefaultDatabase = "cg_portal_feedback"

var Client *mongo.Client
var DB *mongo.Database

// Connect opens the MongoDB client. dbName overrides the database named in
// the URI path; when both are empty DefaultDatabase is used.
func Connect(mongoURI, dbName string, log *zap.Logger) error {
	// Use longer timeout for Atlas connections
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	log.Info("connecting to MongoDB", zap.String("uri", MaskURI(mongoURI)))
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return err
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return err
	}

	if dbName == "" {
		dbName = DatabaseFromURI(mongoURI)
	}

	Client = client
	DB = client.Database(dbName)

	log.Info("connected to MongoDB", zap.String("database", dbName))
	return nil
}

// DatabaseFromURI extracts the database name from the URI path.
// Format: mongodb://.../database_name?...
func DatabaseFromURI(mongoURI string) string {
	u, err := url.Parse(mongoURI)
	if err != nil {
		return DefaultDatabase
	}
	name := strings.Trim(u.Path, "/")
	if name == "" {
		return DefaultDatabase
	}
	return name
}

// MaskURI hides the password in a connection string for logging.
func MaskURI(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "xxxxx")
	}
	return u.String()
}

func Disconnect() error {
	if Client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return Client.Disconnect(ctx)
}
