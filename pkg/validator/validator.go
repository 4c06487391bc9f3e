package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under their json names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Struct validates a tagged request struct and flattens the result into a
// field → message map.
func Struct(s any) ValidationErrors {
	errs := make(ValidationErrors)

	err := validate.Struct(s)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("_", "Invalid request")
		return errs
	}

	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), fieldMessage(fe))
	}
	return errs
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "Invalid email address"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// ValidateMessageBody rejects bodies that are empty after trimming. Tag
// validation cannot express the whitespace-only case.
func ValidateMessageBody(body string) ValidationErrors {
	errs := make(ValidationErrors)
	if strings.TrimSpace(body) == "" {
		errs.Add("body", "Message body must not be empty")
	}
	return errs
}

// ValidateParticipants checks that a conversation would have at least two
// distinct participants once the creator is counted in.
func ValidateParticipants(creatorID uuid.UUID, participantIDs []uuid.UUID) ValidationErrors {
	errs := make(ValidationErrors)

	distinct := map[uuid.UUID]bool{creatorID: true}
	for _, id := range participantIDs {
		if id != uuid.Nil {
			distinct[id] = true
		}
	}
	if len(distinct) < 2 {
		errs.Add("participant_ids", "A conversation needs at least 2 distinct participants")
	}
	return errs
}
