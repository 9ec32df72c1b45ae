package workflow

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/HendryAvila/reasonkit/internal/session"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names so paths read like the tool input,
	// e.g. samples[2].probability.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks the struct tags of in. The first violation is returned
// as a ValidationFailed error naming the JSON path of the field.
func Validate(in any) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) || len(vErrs) == 0 {
		return session.Invalid("", "invalid input: %v", err)
	}
	fe := vErrs[0]
	path := fieldPath(fe.Namespace())
	return session.Invalid(path, "%s %s", path, describe(fe))
}

// FieldError reports a cross-field rule that struct tags cannot express.
func FieldError(field, format string, args ...any) *session.Error {
	return session.Invalid(field, format, args...)
}

// fieldPath drops the top-level struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	sized := fe.Kind() == reflect.String || fe.Kind() == reflect.Slice || fe.Kind() == reflect.Map
	unit := "items"
	if fe.Kind() == reflect.String {
		unit = "characters"
	}
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(fe.Param()), ", ")
	case "min":
		if sized {
			return fmt.Sprintf("must have at least %s %s", fe.Param(), unit)
		}
		return "must be at least " + fe.Param()
	case "max":
		if sized {
			return fmt.Sprintf("must have at most %s %s", fe.Param(), unit)
		}
		return "must be at most " + fe.Param()
	case "len":
		return fmt.Sprintf("must have exactly %s %s", fe.Param(), unit)
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lt":
		return "must be less than " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "required_if", "required_unless", "required_with", "required_without":
		return "is required here"
	case "url", "http_url":
		return "must be a valid URL"
	default:
		return fmt.Sprintf("failed the %q check", fe.Tag())
	}
}
