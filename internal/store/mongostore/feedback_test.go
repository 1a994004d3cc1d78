package mongostore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/cgportal/feedback-backend/internal/models"
	"github.com/cgportal/feedback-backend/internal/store"
)

func TestBuildFeedbackFilterEmpty(t *testing.T) {
	assert.Empty(t, buildFeedbackFilter(store.FeedbackQuery{}))
	assert.Empty(t, buildFeedbackFilter(store.FeedbackQuery{Status: "all", Department: "all"}))
}

func TestBuildFeedbackFilterSearchEscapesRegex(t *testing.T) {
	filter := buildFeedbackFilter(store.FeedbackQuery{Search: " CG.01 "})

	or, ok := filter["$or"].(bson.A)
	require.True(t, ok)
	require.Len(t, or, 3)

	callID := or[0].(bson.M)["callId"].(bson.M)
	assert.Equal(t, `CG\.01`, callID["$regex"])
	assert.Equal(t, "i", callID["$options"])
}

func TestBuildFeedbackFilterStatusAndDepartment(t *testing.T) {
	filter := buildFeedbackFilter(store.FeedbackQuery{Status: "pending", Department: "Health Department"})
	assert.Equal(t, "pending", filter["status"])
	assert.Equal(t, "Health Department", filter["department"])
	assert.NotContains(t, filter, "$or")
}

func TestTypeVariants(t *testing.T) {
	got := typeVariants([]models.UserType{models.UserTypeExecutive})
	assert.Equal(t, bson.A{"executive", "Executive"}, got)
}

func TestExactFold(t *testing.T) {
	m := exactFold("Tax (Dept)")
	assert.Equal(t, `^Tax \(Dept\)$`, m["$regex"])
	assert.Equal(t, "i", m["$options"])
}

func TestTranslate(t *testing.T) {
	assert.NoError(t, translate("op", nil))
	assert.ErrorIs(t, translate("op", mongo.ErrNoDocuments), store.ErrNotFound)

	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "E11000 duplicate key"}}}
	assert.ErrorIs(t, translate("insert", dup), store.ErrDuplicate)

	other := errors.New("boom")
	err := translate("insert", other)
	assert.ErrorIs(t, err, other)
	assert.Contains(t, err.Error(), "insert")
}

func TestObjectID(t *testing.T) {
	_, err := objectID("nope")
	assert.ErrorIs(t, err, store.ErrInvalidID)

	oid, err := objectID("507f1f77bcf86cd799439011")
	require.NoError(t, err)
	assert.Equal(t, "507f1f77bcf86cd799439011", oid.Hex())
}
