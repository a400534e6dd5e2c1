package model

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// ErrValidation is matched by every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError reports caller-supplied data that violates field constraints.
// Fields maps the JSON field name to a human-readable reason.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a ValidationError for a single field.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: reason}}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}

	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(parts, "; "))
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// fieldMessages holds the reason reported for a field/tag pair.
var fieldMessages = map[string]string{
	"name.required":     "Item name is required",
	"name.notblank":     "Item name is required",
	"name.min":          "Name must be between 2 and 100 characters",
	"name.max":          "Name must be between 2 and 100 characters",
	"price.required":    "Price is required",
	"price.decimal_gte": "Price must be at least 0.01",
	"stock.required":    "Stock quantity is required",
	"stock.gte":         "Stock cannot be negative",
}

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Decimals reach the validator as their exact string form.
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	if err := v.RegisterValidation("decimal_gte", decimalGTE); err != nil {
		panic(fmt.Sprintf("registering decimal_gte validation: %v", err))
	}

	if err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		panic(fmt.Sprintf("registering notblank validation: %v", err))
	}

	return v
}

// decimalGTE compares a decimal string field with the tag parameter without
// going through float64.
func decimalGTE(fl validator.FieldLevel) bool {
	value, err := decimal.NewFromString(fl.Field().String())
	if err != nil {
		return false
	}

	bound, err := decimal.NewFromString(fl.Param())
	if err != nil {
		panic(fmt.Sprintf("decimal_gte: invalid bound %q", fl.Param()))
	}

	return value.GreaterThanOrEqual(bound)
}

// validateStruct runs the struct tags of v and converts failures
// into a *ValidationError.
func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validating %T: %w", v, err)
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		// First failing tag wins for a field.
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fieldMessage(fe)
	}

	return &ValidationError{Fields: fields}
}

func fieldMessage(fe validator.FieldError) string {
	if msg, ok := fieldMessages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	return fmt.Sprintf("%s failed the %q constraint", fe.Field(), fe.Tag())
}

// mergeFieldErrors copies the fields of a *ValidationError into dst.
// Any other non-nil error is returned unchanged.
func mergeFieldErrors(dst map[string]string, err error) error {
	if err == nil {
		return nil
	}

	var verr *ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	for field, reason := range verr.Fields {
		dst[field] = reason
	}

	return nil
}
