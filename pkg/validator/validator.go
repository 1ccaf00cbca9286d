// Package validator shares one go-playground validator that names fields by
// their yaml key, so a config error points at the key to fix.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalid = errors.New("validation error")
)

var (
	v *validator.Validate
)

func init() {
	v = validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return field.Name
		default:
			return name
		}
	})
}

// Validate checks i against its validate tags. Every broken rule is listed as
// "key.path: rule" in the returned error, which wraps ErrInvalid.
func Validate(i interface{}) error {
	if i == nil {
		return fmt.Errorf("data to validate is nil")
	}

	err := v.Struct(i)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	broken := make([]string, 0, len(fieldErrs))
	for _, fieldErr := range fieldErrs {
		broken = append(broken, describe(fieldErr))
	}

	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(broken, "; "))
}

func describe(fieldErr validator.FieldError) string {
	// namespace starts with the struct type name
	_, key, ok := strings.Cut(fieldErr.Namespace(), ".")
	if !ok {
		key = fieldErr.Field()
	}

	rule := fieldErr.Tag()
	if param := fieldErr.Param(); param != "" {
		rule += "=" + param
	}

	return key + ": " + rule
}
