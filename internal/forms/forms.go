// Package forms turns binding failures into per-field messages that
// templates can show next to their inputs.
package forms

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// NonFieldKey holds errors that belong to the form as a whole.
const NonFieldKey = "__all__"

// Errors maps a form field name to its message.
type Errors map[string]string

// Add records a message for field unless one is already present.
func (e Errors) Add(field, message string) {
	if _, exists := e[field]; !exists {
		e[field] = message
	}
}

// AddGeneral records a message that is not tied to a field.
func (e Errors) AddGeneral(message string) {
	e.Add(NonFieldKey, message)
}

func (e Errors) Has(field string) bool {
	_, ok := e[field]
	return ok
}

// General returns the form-wide message, if any.
func (e Errors) General() string {
	return e[NonFieldKey]
}

func (e Errors) Any() bool {
	return len(e) > 0
}

// FromBinding converts a gin binding error into field messages. Fields are
// keyed by their form tag name; errors that are not validation errors land
// under NonFieldKey.
func FromBinding(err error, fieldNames map[string]string) Errors {
	errs := Errors{}
	if err == nil {
		return errs
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		errs.AddGeneral("Invalid form submission.")
		return errs
	}

	for _, fe := range validationErrors {
		name := fe.Field()
		if mapped, ok := fieldNames[name]; ok {
			name = mapped
		} else {
			name = strings.ToLower(name)
		}
		errs.Add(name, message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "max":
		return fmt.Sprintf("Ensure this value has at most %s characters.", fe.Param())
	case "min":
		return fmt.Sprintf("Ensure this value has at least %s characters.", fe.Param())
	case "eqfield":
		return "The two password fields didn't match."
	case "oneof":
		return "Select a valid choice."
	case "gte", "lte":
		return "Enter a value in the allowed range."
	default:
		return "Enter a valid value."
	}
}
