package handler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/nyaruka/phonenumbers"

	"github.com/homeowner/portal/internal/core/domain"
)

// defaultRegion is used to parse phone numbers entered without a country code.
const defaultRegion = "US"

// echoValidator wraps go-playground/validator so Echo can call c.Validate(req).
// Failures come back as domain.ValidationErrors keyed by the form field name.
type echoValidator struct {
	v      *validator.Validate
	policy domain.PasswordPolicy
}

// NewValidator returns an echoValidator ready to be assigned to echo.Echo.Validator.
// Besides the built-in tags it understands:
//   - password: the composition rules of policy.
//   - phone: a dialable number, parsed with the US as default region.
//   - accepted: a checkbox that must be ticked.
func NewValidator(policy domain.PasswordPolicy) *echoValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return fld.Name
	})

	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return len(policy.Check(fl.Field().String())) == 0
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return validPhone(fl.Field().String())
	})
	_ = v.RegisterValidation("accepted", func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.Bool && fl.Field().Bool()
	})

	return &echoValidator{v: v, policy: policy}
}

// Validate satisfies the echo.Validator interface.
func (ev *echoValidator) Validate(i any) error {
	err := ev.v.Struct(i)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}

	out := make(domain.ValidationErrors, 0, len(ve))
	for _, fe := range ve {
		if fe.Tag() == "password" {
			value, _ := fe.Value().(string)
			for _, msg := range ev.policy.Check(value) {
				out = append(out, domain.FieldError{Field: fe.Field(), Message: msg})
			}
			continue
		}
		out = append(out, domain.FieldError{Field: fe.Field(), Message: fieldError(fe)})
	}
	return out
}

func validPhone(raw string) bool {
	num, err := phonenumbers.Parse(raw, defaultRegion)
	if err != nil {
		return false
	}
	return phonenumbers.IsValidNumber(num)
}

// fieldError converts a single FieldError into a human-readable message.
func fieldError(fe validator.FieldError) string {
	field := label(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "Invalid email address"
	case "max":
		return fmt.Sprintf("%s cannot be longer than %s characters", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters long", field, fe.Param())
	case "numeric":
		return field + " must contain only digits"
	case "phone":
		return "Invalid phone number"
	case "accepted":
		return "You must accept the Terms and Conditions"
	case "eqfield":
		return "The password and confirmation password do not match."
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

// label turns a field name such as "EmergencyContactPhone" into
// "Emergency contact phone".
func label(name string) string {
	var b strings.Builder
	for i, r := range name {
		if i == 0 {
			b.WriteRune(unicode.ToUpper(r))
			continue
		}
		if unicode.IsUpper(r) {
			b.WriteByte(' ')
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
