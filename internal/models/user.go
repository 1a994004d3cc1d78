package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type UserType string

const (
	UserTypeAdmin     UserType = "admin"
	UserTypeExecutive UserType = "executive"
	UserTypeManager   UserType = "manager"
)

var UserTypes = []UserType{UserTypeAdmin, UserTypeExecutive, UserTypeManager}

// ParseUserType normalises case ("Executive" appears in older records).
func ParseUserType(s string) (UserType, bool) {
	t := UserType(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range UserTypes {
		if t == v {
			return t, true
		}
	}
	return t, false
}

// BackOffice reports whether the type may use the admin dashboard.
func (t UserType) BackOffice() bool {
	return t == UserTypeAdmin || t == UserTypeManager
}

type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username  string             `bson:"username" json:"username"`
	Password  string             `bson:"password" json:"-"` // Never returned in JSON
	Type      UserType           `bson:"type" json:"type"`
	Active    bool               `bson:"active" json:"active"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
