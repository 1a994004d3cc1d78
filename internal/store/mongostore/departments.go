package mongostore

import (
	"context"
	"errors"
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

type DepartmentStore struct {
	coll *mongo.Collection
}

func NewDepartmentStore(db *mongo.Database) *DepartmentStore {
	return &DepartmentStore{coll: db.Collection(DepartmentCollection)}
}

// exactFold matches value as a whole string, ignoring case.
func exactFold(value string) bson.M {
	return bson.M{"$regex": "^" + regexp.QuoteMeta(value) + "$", "$options": "i"}
}

func (s *DepartmentStore) List(ctx context.Context) ([]models.Department, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, translate("list departments", err)
	}
	defer cursor.Close(ctx)

	out := []models.Department{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, translate("decode departments", err)
	}
	return out, nil
}

func (s *DepartmentStore) Get(ctx context.Context, id string) (*models.Department, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *DepartmentStore) FindByName(ctx context.Context, name string) (*models.Department, error) {
	return s.findOne(ctx, bson.M{"name": name})
}

func (s *DepartmentStore) findOne(ctx context.Context, filter bson.M) (*models.Department, error) {
	var d models.Department
	if err := s.coll.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, translate("find department", err)
	}
	return &d, nil
}

func (s *DepartmentStore) NameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	return s.taken(ctx, "name", name, excludeID)
}

func (s *DepartmentStore) EmailTaken(ctx context.Context, email, excludeID string) (bool, error) {
	if strings.TrimSpace(email) == "" {
		return false, nil
	}
	return s.taken(ctx, "email", email, excludeID)
}

func (s *DepartmentStore) taken(ctx context.Context, field, value, excludeID string) (bool, error) {
	filter := bson.M{field: exactFold(value)}
	if excludeID != "" {
		if oid, err := objectID(excludeID); err == nil {
			filter["_id"] = bson.M{"$ne": oid}
		}
	}
	n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, translate("check department "+field, err)
	}
	return n > 0, nil
}

func (s *DepartmentStore) Create(ctx context.Context, d *models.Department) error {
	now := time.Now().UTC()
	d.CreatedAt, d.UpdatedAt = now, now
	d.ID = primitive.NilObjectID

	res, err := s.coll.InsertOne(ctx, d)
	if err != nil {
		return translate("insert department", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		d.ID = oid
	}
	return nil
}

// Update rewrites the mutable fields. Callers merge omitted contact fields
// beforehand; an empty one here is a deliberate clear and is unset so the
// sparse email index never sees "".
func (s *DepartmentStore) Update(ctx context.Context, d *models.Department) error {
	d.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":        d.Name,
		"description": d.Description,
		"updatedAt":   d.UpdatedAt,
	}
	unset := bson.M{}
	if d.Email != "" {
		set["email"] = d.Email
	} else {
		unset["email"] = ""
	}
	if d.ContactNo != "" {
		set["contactNo"] = d.ContactNo
	} else {
		unset["contactNo"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.Department
	if err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": d.ID}, update, opts).Decode(&updated); err != nil {
		return translate("update department", err)
	}
	*d = updated
	return nil
}

func (s *DepartmentStore) Delete(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return translate("delete department", err)
	}
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *DepartmentStore) Upsert(ctx context.Context, d *models.Department) (bool, error) {
	existing, err := s.FindByName(ctx, d.Name)
	if errors.Is(err, store.ErrNotFound) {
		return true, s.Create(ctx, d)
	}
	if err != nil {
		return false, err
	}
	d.ID = existing.ID
	// seed entries without contact details keep what an admin entered
	if d.Email == "" {
		d.Email = existing.Email
	}
	if d.ContactNo == "" {
		d.ContactNo = existing.ContactNo
	}
	return false, s.Update(ctx, d)
}
