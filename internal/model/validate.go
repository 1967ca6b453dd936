package model

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"gitlab.com/dirk.krummacker/contacts-service/internal/apperr"
)

var validate *validator.Validate

// phonePattern is deliberately loose: digits with the usual separators and an optional
// leading plus sign.
var phonePattern = regexp.MustCompile(`^\+?[0-9][0-9 ()./-]{3,24}$`)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.ToLower(fld.Name)
	})
	_ = validate.RegisterValidation("phone_number", func(fl validator.FieldLevel) bool {
		return isValidPhoneNumber(fl.Field().String())
	})
	_ = validate.RegisterValidation("us_state", func(fl validator.FieldLevel) bool {
		return IsState(fl.Field().String())
	})
}

func isValidPhoneNumber(phone string) bool {
	if !phonePattern.MatchString(phone) {
		return false
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	return digits >= 4
}

// Validate checks the struct tags of v. A failed check is returned as a Validation error that
// lists every offending field.
func Validate(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.FatalError(err)
	}
	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = message(fe)
	}
	return apperr.ValidationFields(fields)
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "email":
		return "is not a valid email address"
	case "phone_number":
		return "is not a valid phone number"
	case "us_state":
		return "is not a valid state"
	default:
		return "is invalid"
	}
}
