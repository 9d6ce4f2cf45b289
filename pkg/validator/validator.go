package validator

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationErrors maps a JSON field name to a human readable message.
type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

// String renders the errors in field order, e.g. "content: too long; receiver_id: required".
func (v ValidationErrors) String() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+": "+v[f])
	}
	return strings.Join(parts, "; ")
}

// Validator checks `validate` struct tags and reports failures under the
// field's json name.
type Validator struct {
	cli *validator.Validate
}

func New() *Validator {
	cli := validator.New(validator.WithRequiredStructEnabled())
	cli.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{cli: cli}
}

func (v *Validator) ValidateStruct(s any) ValidationErrors {
	errs := make(ValidationErrors)

	err := v.cli.Struct(s)
	if err == nil {
		return errs
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		errs.Add("_", err.Error())
		return errs
	}
	for _, fe := range fieldErrs {
		errs.Add(fe.Field(), message(fe))
	}
	return errs
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url", "http_url":
		return "must be a valid URL"
	default:
		return "failed " + fe.Tag() + " check"
	}
}
