// Package validator adapts go-playground/validator to echo's Validator
// interface and reports failures in the apperr taxonomy.
package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/flight-seat-reservation/internal/apperr"
	"github.com/iliyamo/flight-seat-reservation/internal/model"
)

// Validator is installed as echo's e.Validator.
type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	if err := v.RegisterValidation("fareclass", fareClass); err != nil {
		panic(fmt.Sprintf("validator: register fareclass: %v", err))
	}
	return &Validator{validate: v}
}

func fareClass(fl validator.FieldLevel) bool {
	_, err := model.ParseClass(fl.Field().String())
	return err == nil
}

// Validate returns nil or an *apperr.Error whose details map each invalid
// field to a short reason.  A bad fare class is reported as InvalidClass.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.InvalidInput(err.Error())
	}
	details := make(map[string]any, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "fareclass" {
			return apperr.InvalidClass(fmt.Sprint(fe.Value()))
		}
		details[fe.Field()] = reason(fe)
	}
	return apperr.Validation("request validation failed", details)
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email"
	case "len":
		return "must be exactly " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	case "gtfield":
		return "must be after " + fe.Param()
	case "nefield":
		return "must differ from " + fe.Param()
	case "alpha":
		return "must contain letters only"
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "is invalid (" + fe.Tag() + ")"
}
