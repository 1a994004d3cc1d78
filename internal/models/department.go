package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Department struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Email       string             `bson:"email,omitempty" json:"email,omitempty"`
	ContactNo   string             `bson:"contactNo,omitempty" json:"contactNo,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (d Department) MarshalJSON() ([]byte, error) {
	type department Department
	return json.Marshal(struct {
		department
		LegacyID string `json:"_id"`
	}{department(d), d.ID.Hex()})
}

// DepartmentNames returns the names in list order.
func DepartmentNames(depts []Department) []string {
	names := make([]string, 0, len(depts))
	for _, d := range depts {
		names = append(names, d.Name)
	}
	return names
}
