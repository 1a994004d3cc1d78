package validation

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cgportal/feedback-backend/internal/models"
)

func requireMessage(t *testing.T, err error, want string) {
	t.Helper()
	require.Error(t, err)
	var verr *Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, want, verr.Message)
}

func validFeedback() FeedbackInput {
	return FeedbackInput{
		Satisfaction:  "satisfied",
		CallID:        "CG-1001",
		CitizenMobile: "9876543210",
		CitizenName:   "Asha",
		Department:    "Health Department",
	}
}

func TestFeedbackInputValid(t *testing.T) {
	in := validFeedback()
	assert.NoError(t, Struct(in))
}

func TestFeedbackInputSatisfactionReportedFirst(t *testing.T) {
	in := FeedbackInput{Satisfaction: "happy"}
	requireMessage(t, Struct(in),
		"satisfaction must be one of: satisfied, not-satisfied, mobile-missing, number-incorrect, call-not-picked, person-not-exist. Received: happy")
}

func TestFeedbackInputCallIDBounds(t *testing.T) {
	in := validFeedback()
	in.CallID = ""
	requireMessage(t, Struct(in), "callId is required")

	in.CallID = "ab"
	requireMessage(t, Struct(in), "callId must be between 3 and 50 characters")

	in.CallID = LooseString(strings.Repeat("x", 51))
	requireMessage(t, Struct(in), "callId must be between 3 and 50 characters")

	in.CallID = LooseString(strings.Repeat("x", 50))
	assert.NoError(t, Struct(in))
}

func TestFeedbackInputMobile(t *testing.T) {
	in := validFeedback()
	in.CitizenMobile = "98765-4321"
	requireMessage(t, Struct(in), "citizenMobile must contain digits only")

	in.CitizenMobile = "98765432101"
	requireMessage(t, Struct(in), "citizenMobile must be at most 10 digits")

	in.CitizenMobile = ""
	assert.NoError(t, Struct(in))
}

func TestFeedbackInputDescriptionUsesGenericMessage(t *testing.T) {
	in := validFeedback()
	in.Description = LooseString(strings.Repeat("d", 2001))
	requireMessage(t, Struct(in), "description must be at most 2000 characters")
}

func TestFeedbackInputStatus(t *testing.T) {
	in := validFeedback()
	in.Status = "closed"
	requireMessage(t, Struct(in), "status must be one of: pending, resolved")
}

func TestLooseStringAcceptsNumbers(t *testing.T) {
	var in FeedbackInput
	body := `{"callId": 1234567, "citizenMobile": 9876543210, "satisfaction": "satisfied", "citizenName": null}`
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	assert.Equal(t, LooseString("1234567"), in.CallID)
	assert.Equal(t, LooseString("9876543210"), in.CitizenMobile)
	assert.Equal(t, LooseString(""), in.CitizenName)

	assert.Error(t, json.Unmarshal([]byte(`{"callId": true}`), &in))
}

func TestFeedbackInputBuildsRecord(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	in := validFeedback()
	in.Normalize()
	f := in.Feedback(now)
	assert.Equal(t, models.StatusResolved, f.Status)
	assert.Equal(t, now, f.SubmittedAt)

	in.Satisfaction = "call-not-picked"
	in.SubmittedAt = "2025-02-10T08:30:00Z"
	f = in.Feedback(now)
	assert.Equal(t, models.StatusPending, f.Status)
	assert.Equal(t, time.Date(2025, 2, 10, 8, 30, 0, 0, time.UTC), f.SubmittedAt)

	in.SubmittedAt = "yesterday"
	in.Status = "resolved"
	f = in.Feedback(now)
	assert.Equal(t, now, f.SubmittedAt)
	assert.Equal(t, models.StatusResolved, f.Status)
}

func TestFeedbackInputNormalizeTrims(t *testing.T) {
	in := FeedbackInput{CallID: "  CG-1  ", Status: " Pending "}
	in.Normalize()
	assert.Equal(t, LooseString("CG-1"), in.CallID)
	assert.Equal(t, LooseString("pending"), in.Status)
}

func TestNewUser(t *testing.T) {
	in := NewUser{Username: " exec_01 ", Password: "secret1", Type: "Executive"}
	in.Normalize()
	require.NoError(t, Struct(in))
	assert.Equal(t, "exec_01", in.Username)
	assert.Equal(t, "executive", in.Type)

	in.Username = "ab"
	requireMessage(t, Struct(in), "Username must be between 3 and 50 characters")

	in.Username = "bad name"
	requireMessage(t, Struct(in), "Username may only contain letters, numbers, dots, underscores and hyphens")

	in.Username = "valid.name"
	in.Password = "12345"
	requireMessage(t, Struct(in), "Password must be at least 6 characters")

	in.Password = "123456"
	in.Type = "operator"
	requireMessage(t, Struct(in), "type must be one of: admin, executive, manager")
}

func TestUpdateUserBlankPasswordAllowed(t *testing.T) {
	in := UpdateUser{Username: "manager1", Type: "manager"}
	assert.NoError(t, Struct(in))

	in.Password = "abc"
	requireMessage(t, Struct(in), "Password must be at least 6 characters")
}

func TestDepartmentInput(t *testing.T) {
	in := DepartmentInput{Name: "Health Department", Description: "Public health services"}
	in.Normalize()
	assert.NoError(t, Struct(in))

	in.Name = "H"
	requireMessage(t, Struct(in), "Department name must be between 2 and 100 characters")

	in.Name = ""
	requireMessage(t, Struct(in), "Department name and description are required")

	in.Name = "Health Department"
	in.Description = "abc"
	requireMessage(t, Struct(in), "Department description must be between 5 and 500 characters")

	in.Description = "Public health services"
	in.Email = "not-an-email"
	requireMessage(t, Struct(in), "Invalid email format")

	in.Email = "health@cg.gov.in"
	in.ContactNo = "12345"
	requireMessage(t, Struct(in), "Contact number must be exactly 10 digits")

	in.ContactNo = "0771234567"
	assert.NoError(t, Struct(in))
}

func TestDepartmentInputLegacyAliases(t *testing.T) {
	var in DepartmentInput
	body := `{"deptName": " Tax Department ", "description": "Tax collection", "deptEmail": "TAX@CG.GOV.IN", "deptContactNo": "0771234567"}`
	require.NoError(t, json.Unmarshal([]byte(body), &in))
	in.Normalize()

	d := in.Department()
	assert.Equal(t, "Tax Department", d.Name)
	assert.Equal(t, "tax@cg.gov.in", d.Email)
	assert.Equal(t, "0771234567", d.ContactNo)
}

func TestDepartmentInputKeepStoredContact(t *testing.T) {
	stored := models.Department{Email: "health@cg.gov.in", ContactNo: "9876543210"}

	var omitted DepartmentInput
	require.NoError(t, json.Unmarshal([]byte(`{"name": "Health", "description": "Hospitals"}`), &omitted))
	omitted.KeepStoredContact(stored)
	assert.Equal(t, "health@cg.gov.in", omitted.Email)
	assert.Equal(t, "9876543210", omitted.ContactNo)

	var cleared DepartmentInput
	require.NoError(t, json.Unmarshal([]byte(`{"name": "Health", "description": "Hospitals", "email": "", "deptContactNo": "0771234567"}`), &cleared))
	cleared.Normalize()
	cleared.KeepStoredContact(stored)
	assert.Empty(t, cleared.Email)
	assert.Equal(t, "0771234567", cleared.ContactNo)
}

func TestSatisfaction(t *testing.T) {
	assert.NoError(t, Satisfaction("person-not-exist"))
	requireMessage(t, Satisfaction("x"),
		"satisfaction must be one of: satisfied, not-satisfied, mobile-missing, number-incorrect, call-not-picked, person-not-exist. Received: x")
}
