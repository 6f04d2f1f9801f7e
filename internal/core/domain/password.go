package domain

import (
	"fmt"
	"unicode"
)

// PasswordPolicy describes the composition rules for new passwords.
type PasswordPolicy struct {
	MinLength              int
	MaxLength              int
	RequireDigit           bool
	RequireLowercase       bool
	RequireUppercase       bool
	RequireNonAlphanumeric bool
}

// DefaultPasswordPolicy requires eight characters with a digit, a lower and an
// upper case letter and a symbol.
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:              8,
		MaxLength:              100,
		RequireDigit:           true,
		RequireLowercase:       true,
		RequireUppercase:       true,
		RequireNonAlphanumeric: true,
	}
}

// Check returns one message per violated rule; nil means the password passes.
func (p PasswordPolicy) Check(password string) []string {
	var msgs []string

	n := len([]rune(password))
	if n < p.MinLength {
		msgs = append(msgs, fmt.Sprintf("Passwords must be at least %d characters.", p.MinLength))
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		msgs = append(msgs, fmt.Sprintf("Passwords must be at most %d characters.", p.MaxLength))
	}

	var digit, lower, upper, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case !unicode.IsLetter(r):
			symbol = true
		}
	}

	if p.RequireDigit && !digit {
		msgs = append(msgs, "Passwords must have at least one digit ('0'-'9').")
	}
	if p.RequireLowercase && !lower {
		msgs = append(msgs, "Passwords must have at least one lowercase ('a'-'z').")
	}
	if p.RequireUppercase && !upper {
		msgs = append(msgs, "Passwords must have at least one uppercase ('A'-'Z').")
	}
	if p.RequireNonAlphanumeric && !symbol {
		msgs = append(msgs, "Passwords must have at least one non alphanumeric character.")
	}
	return msgs
}

// Validate wraps Check into ValidationErrors keyed on field.
func (p PasswordPolicy) Validate(field, password string) error {
	msgs := p.Check(password)
	if len(msgs) == 0 {
		return nil
	}
	ve := make(ValidationErrors, 0, len(msgs))
	for _, m := range msgs {
		ve = append(ve, FieldError{Field: field, Message: m})
	}
	return ve
}
