package models

import (
	"encoding/json"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Satisfaction is the outcome an executive records for a citizen call.
type Satisfaction string

const (
	SatisfactionSatisfied       Satisfaction = "satisfied"
	SatisfactionNotSatisfied    Satisfaction = "not-satisfied"
	SatisfactionMobileMissing   Satisfaction = "mobile-missing"
	SatisfactionNumberIncorrect Satisfaction = "number-incorrect"
	SatisfactionCallNotPicked   Satisfaction = "call-not-picked"
	SatisfactionPersonNotExist  Satisfaction = "person-not-exist"
)

// Satisfactions lists every accepted outcome in display order.
var Satisfactions = []Satisfaction{
	SatisfactionSatisfied,
	SatisfactionNotSatisfied,
	SatisfactionMobileMissing,
	SatisfactionNumberIncorrect,
	SatisfactionCallNotPicked,
	SatisfactionPersonNotExist,
}

// OtherIssues are the outcomes where the citizen could not be reached.
var OtherIssues = []Satisfaction{
	SatisfactionMobileMissing,
	SatisfactionNumberIncorrect,
	SatisfactionCallNotPicked,
	SatisfactionPersonNotExist,
}

func (s Satisfaction) Valid() bool {
	for _, v := range Satisfactions {
		if s == v {
			return true
		}
	}
	return false
}

// IsOtherIssue reports whether s is one of the non-contact outcomes.
func (s Satisfaction) IsOtherIssue() bool {
	for _, v := range OtherIssues {
		if s == v {
			return true
		}
	}
	return false
}

type FeedbackStatus string

const (
	StatusPending  FeedbackStatus = "pending"
	StatusResolved FeedbackStatus = "resolved"
)

func (s FeedbackStatus) Valid() bool {
	return s == StatusPending || s == StatusResolved
}

// DefaultStatus is resolved for satisfied callers and pending otherwise.
func DefaultStatus(s Satisfaction) FeedbackStatus {
	if s == SatisfactionSatisfied {
		return StatusResolved
	}
	return StatusPending
}

// Feedback is a citizen-call outcome. Keys are camelCase to stay compatible
// with documents written by the existing portal.
type Feedback struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CallID        string             `bson:"callId" json:"callId"`
	CitizenMobile string             `bson:"citizenMobile" json:"citizenMobile"`
	CitizenName   string             `bson:"citizenName" json:"citizenName"`
	QueryType     string             `bson:"queryType" json:"queryType"`
	Department    string             `bson:"department" json:"department"`
	Satisfaction  Satisfaction       `bson:"satisfaction" json:"satisfaction"`
	Description   string             `bson:"description" json:"description"`
	SubmittedBy   string             `bson:"submittedBy" json:"submittedBy"`
	SubmittedAt   time.Time          `bson:"submittedAt" json:"submittedAt"`
	Status        FeedbackStatus     `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// MarshalJSON adds the legacy "_id" key alongside "id"; dashboard clients read either.
func (f Feedback) MarshalJSON() ([]byte, error) {
	type feedback Feedback
	return json.Marshal(struct {
		feedback
		LegacyID string `json:"_id"`
	}{feedback(f), f.ID.Hex()})
}
