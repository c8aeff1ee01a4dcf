package models

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var validationMessages = map[string]string{
	"required": "{field} is required",
	"gt":       "{field} must be greater than {param}",
	"gte":      "{field} must be greater than or equal to {param}",
	"email":    "{field} must be a valid email address",
}

// InvalidRequestError is returned when a request DTO fails struct validation.
// It never reaches the network.
type InvalidRequestError struct {
	Message string
}

func (e *InvalidRequestError) Error() string {
	return e.Message
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	return &InvalidRequestError{Message: validationMessage(err)}
}

func validationMessage(err error) string {
	var valErrors validator.ValidationErrors
	if !errors.As(err, &valErrors) {
		return err.Error()
	}
	for _, valErr := range valErrors {
		msg := validationMessages[valErr.Tag()]
		if msg == "" {
			continue
		}
		msg = strings.ReplaceAll(msg, "{field}", valErr.Field())
		msg = strings.ReplaceAll(msg, "{param}", valErr.Param())
		return msg
	}
	return valErrors.Error()
}
