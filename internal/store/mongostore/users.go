package mongostore

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/store"
)

type UserStore struct {
	users  *mongo.Collection
	legacy *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{
		users:  db.Collection(UserCollection),
		legacy: db.Collection(LegacyAdminCollection),
	}
}

// typeVariants also matches the capitalised spellings older records carry.
func typeVariants(types []models.UserType) bson.A {
	out := bson.A{}
	for _, t := range types {
		lower := strings.ToLower(string(t))
		out = append(out, lower)
		if lower != "" {
			out = append(out, strings.ToUpper(lower[:1])+lower[1:])
		}
	}
	return out
}

func (s *UserStore) List(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.users.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, translate("list users", err)
	}
	defer cursor.Close(ctx)

	out := []models.User{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate("decode users", err)
	}
	for i := range out {
		out[i].Type, _ = models.ParseUserType(string(out[i].Type))
	}
	return out, nil
}

func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, s.users, bson.M{"_id": oid})
}

func (s *UserStore) FindByUsername(ctx context.Context, username string, types ...models.UserType) (*models.User, error) {
	filter := bson.M{"username": username}
	if len(types) > 0 {
		filter["type"] = bson.M{"$in": typeVariants(types)}
	}
	return s.findOne(ctx, s.users, filter)
}

func (s *UserStore) FindLegacyAdmin(ctx context.Context, username string) (*models.User, error) {
	u, err := s.findOne(ctx, s.legacy, bson.M{"username": username})
	if err != nil {
		return nil, err
	}
	// adminC rows carry only credentials
	u.Type = models.UserTypeAdmin
	u.Active = true
	return u, nil
}

func (s *UserStore) findOne(ctx context.Context, coll *mongo.Collection, filter bson.M) (*models.User, error) {
	var u models.User
	if err := coll.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate("find user", err)
	}
	u.Type, _ = models.ParseUserType(string(u.Type))
	return &u, nil
}

func (s *UserStore) UsernameTaken(ctx context.Context, username, excludeID string) (bool, error) {
	filter := bson.M{"username": username}
	if excludeID != "" {
		if oid, err := objectID(excludeID); err == nil {
			filter["_id"] = bson.M{"$ne": oid}
		}
	}
	n, err := s.users.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, translate("check username", err)
	}
	return n > 0, nil
}

func (s *UserStore) Create(ctx context.Context, u *models.User) error {
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.ID = primitive.NilObjectID

	res, err := s.users.InsertOne(ctx, u)
	if err != nil {
		return translate("insert user", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		u.ID = oid
	}
	return nil
}

// Update applies the mutable fields and refreshes u from the stored document.
func (s *UserStore) Update(ctx context.Context, u *models.User) error {
	set := bson.M{
		"username":  u.Username,
		"type":      u.Type,
		"active":    u.Active,
		"updatedAt": time.Now().UTC(),
	}
	if u.Password != "" {
		set["password"] = u.Password
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.User
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": u.ID}, bson.M{"$set": set}, opts).Decode(&updated); err != nil {
		return translate("update user", err)
	}
	updated.Type, _ = models.ParseUserType(string(updated.Type))
	*u = updated
	return nil
}

func (s *UserStore) SetActive(ctx context.Context, id string, active bool) (*models.User, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	update := bson.M{"$set": bson.M{"active": active, "updatedAt": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var u models.User
	if err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts).Decode(&u); err != nil {
		return nil, translate("set user active", err)
	}
	u.Type, _ = models.ParseUserType(string(u.Type))
	return &u, nil
}

func (s *UserStore) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.users.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return translate("delete user", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *UserStore) CountActiveAdmins(ctx context.Context) (int64, error) {
	filter := bson.M{"type": bson.M{"$in": typeVariants([]models.UserType{models.UserTypeAdmin})}, "active": true}
	n, err := s.users.CountDocuments(ctx, filter)
	if err != nil {
		return 0, translate("count admins", err)
	}
	return n, nil
}

func (s *UserStore) Upsert(ctx context.Context, u *models.User) (bool, error) {
	existing, err := s.FindByUsername(ctx, u.Username)
	if errors.Is(err, store.ErrNotFound) {
		return true, s.Create(ctx, u)
	}
	if err != nil {
		return false, err
	}
	u.ID = existing.ID
	u.CreatedAt = existing.CreatedAt
	return false, s.Update(ctx, u)
}
