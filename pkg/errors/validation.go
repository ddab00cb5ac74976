package errors

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FromValidator turns go-playground validation failures into a single
// VALIDATION_ERROR naming the first offending field. Any other error is
// wrapped as a generic validation failure.
func FromValidator(err error) *AppError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return Validation("invalid input data", err)
	}
	return Validation(fieldMessage(verrs[0]), err)
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	param := fe.Param()

	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		if fe.Kind().String() == "string" {
			return field + " must be at least " + param + " characters"
		}
		return field + " must be at least " + param
	case "max":
		return field + " must be at most " + param
	case "gte":
		return field + " must be greater than or equal to " + param
	case "email":
		return field + " must be a valid email address"
	case "oneof":
		return field + " must be one of: " + strings.ReplaceAll(param, " ", ", ")
	case "datetime":
		return field + " must be a date in " + param + " layout"
	case "imageurl":
		return field + " must be an absolute or site-relative URL"
	default:
		return field + " is invalid"
	}
}
