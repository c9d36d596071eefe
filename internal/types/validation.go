package types

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// validate is shared by every caller; *validator.Validate caches struct
// metadata and is safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	// Report JSON names ("age") instead of Go names ("Age") in field errors
	// so messages match what the client actually sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}

	return v
}

// ValidationError reports input that breaks a record invariant or a
// request shape rule. It is a client error, never an internal one.
type ValidationError struct {
	// Fields holds one entry per failing struct field. It is empty when the
	// error came from a decode failure rather than a validation rule.
	Fields validator.ValidationErrors
	err    error
}

// NewValidationError wraps err as a client error.
func NewValidationError(err error) *ValidationError {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		return &ValidationError{Fields: fieldErrs, err: err}
	}
	return &ValidationError{err: err}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return strings.Join(FieldMessages(e.Fields), ", ")
	}
	return e.err.Error()
}

func (e *ValidationError) Unwrap() error { return e.err }

// Validate runs the struct tag rules on v. It returns nil or a
// *ValidationError.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		return NewValidationError(err)
	}
	return nil
}

// FieldMessages converts validator field errors into plain sentences,
// one per failing field.
func FieldMessages(errs validator.ValidationErrors) []string {
	msgs := make([]string, 0, len(errs))

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", e.Field()))
		case "notblank":
			msgs = append(msgs, fmt.Sprintf("field %s must not be blank", e.Field()))
		case "gte":
			msgs = append(msgs,
				fmt.Sprintf("field %s must be greater than or equal to %s", e.Field(), e.Param()))
		case "oneof":
			msgs = append(msgs,
				fmt.Sprintf("field %s must be one of [%s]", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return msgs
}
