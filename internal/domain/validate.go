package domain

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under their JSON names so clients see the names they sent.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct runs the struct tag rules on v and returns the collected
// messages. The result is never nil.
func validateStruct(v any) FieldErrors {
	fe := FieldErrors{}
	err := validate.Struct(v)
	if err == nil {
		return fe
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fe.Add("non_field_errors", err.Error())
		return fe
	}
	for _, e := range verrs {
		fe.Add(e.Field(), tagMessage(e))
	}
	return fe
}

func tagMessage(e validator.FieldError) string {
	numeric := e.Kind() >= reflect.Int && e.Kind() <= reflect.Float64
	switch e.Tag() {
	case "required":
		return "This field is required."
	case "min", "gte":
		if numeric {
			return fmt.Sprintf("Ensure this value is greater than or equal to %s.", e.Param())
		}
		return fmt.Sprintf("Ensure this field has at least %s characters.", e.Param())
	case "max", "lte":
		if numeric {
			return fmt.Sprintf("Ensure this value is less than or equal to %s.", e.Param())
		}
		return fmt.Sprintf("Ensure this field has no more than %s characters.", e.Param())
	case "oneof":
		return fmt.Sprintf("%q is not a valid choice.", fmt.Sprint(e.Value()))
	case "email":
		return "Enter a valid email address."
	case "url":
		return "Enter a valid URL."
	case "gt":
		return fmt.Sprintf("Ensure this value is greater than %s.", e.Param())
	default:
		return "Invalid value."
	}
}
