package helper

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		// Report flag-like names from the errorTxt tag where present.
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			if t := f.Tag.Get("errorTxt"); t != "" {
				return t
			}
			return f.Name
		})
	})
	return validate
}

// ValidateStruct checks the `validate` tags in cfg and returns a single error naming every bad field.
func ValidateStruct(cfg interface{}) error {
	err := getValidator().Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required", "required_if":
			msgs = append(msgs, fmt.Sprintf("%v is required", e.Field()))
		case "required_without":
			msgs = append(msgs, fmt.Sprintf("%v is required when %v is not set", e.Field(), e.Param()))
		case "required_with":
			msgs = append(msgs, fmt.Sprintf("%v is required when %v is set", e.Field(), e.Param()))
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%v must be one of [%v]", e.Field(), e.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%v must be at least %v", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%v is invalid (%v)", e.Field(), e.Tag()))
		}
	}
	return fmt.Errorf("invalid configuration: %v", strings.Join(msgs, "; "))
}
