package api

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// ValidateStruct runs the validate struct tags and returns formatted errors.
func ValidateStruct(s interface{}) []ValidationError {
	var out []ValidationError

	err := validate.Struct(s)
	if err != nil {
		var vErrs validator.ValidationErrors
		if errors.As(err, &vErrs) {
			for _, fe := range vErrs {
				out = append(out, ValidationError{
					Field:   fe.Field(),
					Tag:     fe.Tag(),
					Message: fieldErrorMessage(fe),
				})
			}
		}
	}

	return out
}

// BindingErrorMessage turns a gin binding error into a user-facing message.
// Non-validator errors (malformed JSON and the like) pass through as-is.
func BindingErrorMessage(err error) string {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		messages := make([]string, 0, len(vErrs))
		for _, fe := range vErrs {
			messages = append(messages, fieldErrorMessage(fe))
		}
		return strings.Join(messages, "; ")
	}
	return err.Error()
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "email":
		return fe.Field() + " must be a valid email address"
	case "min":
		return fe.Field() + " must be at least " + fe.Param() + " characters"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	case "gte":
		return fe.Field() + " must be greater than or equal to " + fe.Param()
	case "lte":
		return fe.Field() + " must be less than or equal to " + fe.Param()
	case "oneof":
		return fe.Field() + " must be one of: " + fe.Param()
	default:
		return fe.Field() + " is invalid"
	}
}
