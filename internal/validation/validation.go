// Package validation checks request payloads before they reach the stores.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/cgportal/feedback-backend/internal/models"
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_.-]+$`)
	emailPattern    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern    = regexp.MustCompile(`^[0-9]{10}$`)
	digitsPattern   = regexp.MustCompile(`^[0-9]+$`)
)

// Error is a single field failure; Message is safe to show to API clients.
type Error struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON names so messages match what clients sent
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	mustRegister(v, "satisfaction", func(fl validator.FieldLevel) bool {
		return models.Satisfaction(fl.Field().String()).Valid()
	})
	mustRegister(v, "usertype", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseUserType(fl.Field().String())
		return ok
	})
	mustRegister(v, "username", func(fl validator.FieldLevel) bool {
		return usernamePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "strictemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "phone10", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "digits", func(fl validator.FieldLevel) bool {
		return digitsPattern.MatchString(fl.Field().String())
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validator: %v", tag, err))
	}
}

// Struct validates s and returns the first failure as *Error.
func Struct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return toError(verrs[0])
	}
	return err
}

// Satisfaction is also exposed on its own for the export filters.
func Satisfaction(value string) error {
	if models.Satisfaction(value).Valid() {
		return nil
	}
	return &Error{Field: "satisfaction", Message: satisfactionMessage(value)}
}

func satisfactionMessage(received string) string {
	names := make([]string, 0, len(models.Satisfactions))
	for _, s := range models.Satisfactions {
		names = append(names, string(s))
	}
	return fmt.Sprintf("satisfaction must be one of: %s. Received: %s", strings.Join(names, ", "), received)
}

var messages = map[string]string{
	"callId.required":      "callId is required",
	"callId.min":           "callId must be between 3 and 50 characters",
	"callId.max":           "callId must be between 3 and 50 characters",
	"citizenMobile.digits": "citizenMobile must contain digits only",
	"citizenMobile.max":    "citizenMobile must be at most 10 digits",
	"status.oneof":         "status must be one of: pending, resolved",
	"username.required":    "Username is required",
	"username.min":         "Username must be between 3 and 50 characters",
	"username.max":         "Username must be between 3 and 50 characters",
	"username.username":    "Username may only contain letters, numbers, dots, underscores and hyphens",
	"password.required":    "Password is required",
	"password.min":         "Password must be at least 6 characters",
	"type.required":        "type must be one of: admin, executive, manager",
	"type.usertype":        "type must be one of: admin, executive, manager",
	"name.required":        "Department name and description are required",
	"name.min":             "Department name must be between 2 and 100 characters",
	"name.max":             "Department name must be between 2 and 100 characters",
	"description.required": "Department name and description are required",
	"description.min":      "Department description must be between 5 and 500 characters",
	"description.max":      "Department description must be between 5 and 500 characters",
	"email.strictemail":    "Invalid email format",
	"contactNo.phone10":    "Contact number must be exactly 10 digits",
}

func toError(fe validator.FieldError) *Error {
	field := fe.Field()

	if fe.Tag() == "satisfaction" {
		return &Error{Field: field, Message: satisfactionMessage(fmt.Sprint(fe.Value()))}
	}
	// the department messages must not leak onto feedback descriptions
	if fe.StructNamespace() != "FeedbackInput.Description" {
		if msg, ok := messages[field+"."+fe.Tag()]; ok {
			return &Error{Field: field, Message: msg}
		}
	}

	switch fe.Tag() {
	case "required":
		return &Error{Field: field, Message: field + " is required"}
	case "max":
		return &Error{Field: field, Message: fmt.Sprintf("%s must be at most %s characters", field, fe.Param())}
	case "min":
		return &Error{Field: field, Message: fmt.Sprintf("%s must be at least %s characters", field, fe.Param())}
	default:
		return &Error{Field: field, Message: field + " is invalid"}
	}
}
