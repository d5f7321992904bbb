// Package validation checks `validate` struct tags with go-playground/validator
// and reports failures under the field's yaml or json name.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(tagName)
}

func tagName(field reflect.StructField) string {
	for _, key := range []string{"yaml", "json"} {
		name := strings.SplitN(field.Tag.Get(key), ",", 2)[0]
		if name != "" && name != "-" {
			return name
		}
	}
	return field.Name
}

// Struct validates v and joins every failing field into one error, e.g.
// "api.timeout_seconds must be >= 0, got -1".
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describe(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	name := fieldPath(fe)
	switch fe.Tag() {
	case "min", "gte":
		return fmt.Sprintf("%s must be >= %s, got %v", name, fe.Param(), fe.Value())
	case "max", "lte":
		return fmt.Sprintf("%s must be <= %s, got %v", name, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be %s, got %v", name, strings.ReplaceAll(fe.Param(), " ", "|"), fe.Value())
	case "http_url":
		return fmt.Sprintf("%s must be an http or https URL with a host, got %q", name, fe.Value())
	case "excludesall":
		return fmt.Sprintf("%s must not contain any of %q, got %v", name, fe.Param(), fe.Value())
	case "required":
		return fmt.Sprintf("%s is required", name)
	default:
		return fmt.Sprintf("%s failed %s validation", name, fe.Tag())
	}
}
