// Package mongostore implements the store contracts on MongoDB.
package mongostore

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cgportal/feedback-backend/internal/store"
)

const (
	FeedbackCollection    = "feedbacks"
	UserCollection        = "users"
	LegacyAdminCollection = "adminC"
	DepartmentCollection  = "departments"
)

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, store.ErrInvalidID
	}
	return oid, nil
}

// translate maps driver errors onto the store sentinels.
func translate(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return store.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", op, store.ErrDuplicate)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
