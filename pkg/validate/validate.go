// Package validate checks request structs and the contact fields shared by
// booking, registration and sign-up.
//
// Struct tags use go-playground/validator with two extra rules:
//
//	contact_email  ^[^\s@]+@[^\s@]+\.[^\s@]+$
//	contact_phone  digits, spaces, dashes, parens, optional leading +, at least 10 digits
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^[+]?[(]?[\d\s\-\(\)]{10,}$`)
)

const minPhoneDigits = 10

// Email reports whether s looks like an email address.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// Phone reports whether s is a phone number with at least ten digits.
func Phone(s string) bool {
	if !phonePattern.MatchString(s) {
		return false
	}
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= minPhoneDigits
}

// Required reports whether s has non-whitespace content.
func Required(s string) bool {
	return strings.TrimSpace(s) != ""
}

var std = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	_ = v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return Email(fl.Field().String())
	})
	_ = v.RegisterValidation("contact_phone", func(fl validator.FieldLevel) bool {
		return Phone(fl.Field().String())
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return Required(fl.Field().String())
	})
	return v
}

// FieldError names one failed field using its JSON name.
type FieldError struct {
	Field string
	Rule  string
	Param string
}

func (e FieldError) Error() string {
	switch e.Rule {
	case "required", "notblank":
		return e.Field + " is required"
	case "contact_email":
		return e.Field + " must be a valid email address"
	case "contact_phone":
		return e.Field + " must contain at least 10 digits"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", e.Field, e.Param)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", e.Field, e.Param)
	case "lte":
		return fmt.Sprintf("%s must be at most %s", e.Field, e.Param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", e.Field, e.Param)
	case "eqfield":
		return e.Field + " does not match"
	default:
		return fmt.Sprintf("%s failed %s", e.Field, e.Rule)
	}
}

// Errors is the list of failures for one struct.
type Errors []FieldError

func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Error()
	}
	return strings.Join(msgs, "; ")
}

// Struct validates v by its `validate` tags. It returns nil or an Errors.
func Struct(v any) error {
	err := std.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, FieldError{Field: fe.Field(), Rule: fe.Tag(), Param: fe.Param()})
	}
	return out
}
