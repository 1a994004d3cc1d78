package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/cgportal/feedback-backend/internal/models"
)

// LooseString accepts a JSON string, number or null. Call-center tools
// send call IDs and mobile numbers as bare numbers.
type LooseString string

func (s *LooseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = LooseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.New("expected a string or number")
	}
	*s = LooseString(n.String())
	return nil
}

func (s LooseString) trim() LooseString {
	return LooseString(strings.TrimSpace(string(s)))
}

// FeedbackInput is the body of POST /api/feedback. Satisfaction comes first
// so an invalid outcome is reported before anything else.
type FeedbackInput struct {
	Satisfaction  LooseString `json:"satisfaction" validate:"satisfaction"`
	CallID        LooseString `json:"callId" validate:"required,min=3,max=50"`
	CitizenMobile LooseString `json:"citizenMobile" validate:"omitempty,digits,max=10"`
	CitizenName   LooseString `json:"citizenName" validate:"max=100"`
	QueryType     LooseString `json:"queryType" validate:"max=100"`
	Department    LooseString `json:"department" validate:"max=100"`
	Description   LooseString `json:"description" validate:"max=2000"`
	SubmittedBy   LooseString `json:"submittedBy" validate:"max=50"`
	SubmittedAt   LooseString `json:"submittedAt"`
	Status        LooseString `json:"status" validate:"omitempty,oneof=pending resolved"`
}

func (in *FeedbackInput) Normalize() {
	in.Satisfaction = in.Satisfaction.trim()
	in.CallID = in.CallID.trim()
	in.CitizenMobile = in.CitizenMobile.trim()
	in.CitizenName = in.CitizenName.trim()
	in.QueryType = in.QueryType.trim()
	in.Department = in.Department.trim()
	in.Description = in.Description.trim()
	in.SubmittedBy = in.SubmittedBy.trim()
	in.SubmittedAt = in.SubmittedAt.trim()
	in.Status = LooseString(strings.ToLower(string(in.Status.trim())))
}

// Feedback builds the record to insert. submittedAt falls back to now when
// absent or unparseable; status defaults from the satisfaction outcome.
func (in FeedbackInput) Feedback(now time.Time) models.Feedback {
	submittedAt := now
	if in.SubmittedAt != "" {
		if t, err := time.Parse(time.RFC3339, string(in.SubmittedAt)); err == nil {
			submittedAt = t
		}
	}

	satisfaction := models.Satisfaction(in.Satisfaction)
	status := models.FeedbackStatus(in.Status)
	if status == "" {
		status = models.DefaultStatus(satisfaction)
	}

	return models.Feedback{
		CallID:        string(in.CallID),
		CitizenMobile: string(in.CitizenMobile),
		CitizenName:   string(in.CitizenName),
		QueryType:     string(in.QueryType),
		Department:    string(in.Department),
		Satisfaction:  satisfaction,
		Description:   string(in.Description),
		SubmittedBy:   string(in.SubmittedBy),
		SubmittedAt:   submittedAt.UTC(),
		Status:        status,
	}
}

// NewUser is the body of POST /api/users.
type NewUser struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Password string `json:"password" validate:"required,min=6"`
	Type     string `json:"type" validate:"required,usertype"`
	Active   *bool  `json:"active"`
}

func (in *NewUser) Normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
}

// UpdateUser is the body of PUT /api/users/{id}. A blank password keeps the stored one.
type UpdateUser struct {
	Username string `json:"username" validate:"required,min=3,max=50,username"`
	Password string `json:"password" validate:"omitempty,min=6"`
	Type     string `json:"type" validate:"required,usertype"`
	Active   *bool  `json:"active"`
}

func (in *UpdateUser) Normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Type = strings.ToLower(strings.TrimSpace(in.Type))
}

// DepartmentInput is the body of the department create and update calls.
// The dept* keys are the names older dashboard builds still send.
type DepartmentInput struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Description string `json:"description" validate:"required,min=5,max=500"`
	Email       string `json:"email" validate:"omitempty,strictemail"`
	ContactNo   string `json:"contactNo" validate:"omitempty,phone10"`

	DeptName      string `json:"deptName" validate:"-"`
	DeptEmail     string `json:"deptEmail" validate:"-"`
	DeptContactNo string `json:"deptContactNo" validate:"-"`

	emailSent   bool
	contactSent bool
}

// UnmarshalJSON also notes whether the body carried the contact fields at all.
// An explicit "" clears a field; a missing key leaves it alone on update.
func (in *DepartmentInput) UnmarshalJSON(data []byte) error {
	type plain DepartmentInput
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return err
	}
	*in = DepartmentInput(p)
	in.emailSent = hasKey(keys, "email", "deptEmail")
	in.contactSent = hasKey(keys, "contactNo", "deptContactNo")
	return nil
}

func hasKey(keys map[string]json.RawMessage, names ...string) bool {
	for _, n := range names {
		if _, ok := keys[n]; ok {
			return true
		}
	}
	return false
}

// KeepStoredContact fills the contact fields the request left out from current.
func (in *DepartmentInput) KeepStoredContact(current models.Department) {
	if !in.emailSent {
		in.Email = current.Email
	}
	if !in.contactSent {
		in.ContactNo = current.ContactNo
	}
}

func (in *DepartmentInput) Normalize() {
	if strings.TrimSpace(in.Name) == "" {
		in.Name = in.DeptName
	}
	if strings.TrimSpace(in.Email) == "" {
		in.Email = in.DeptEmail
	}
	if strings.TrimSpace(in.ContactNo) == "" {
		in.ContactNo = in.DeptContactNo
	}
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.ContactNo = strings.TrimSpace(in.ContactNo)
}

func (in DepartmentInput) Department() models.Department {
	return models.Department{
		Name:        in.Name,
		Description: in.Description,
		Email:       in.Email,
		ContactNo:   in.ContactNo,
	}
}
