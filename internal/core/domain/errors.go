package domain

import (
	"errors"
	"strings"
)

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrDuplicateEmail       = errors.New("email already registered")
	ErrInvalidRole          = errors.New("invalid role")
	ErrRoleAssignmentFailed = errors.New("role assignment failed")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailNotConfirmed    = errors.New("email not confirmed")
	ErrLockedOut            = errors.New("account locked out")
	ErrProtectedAccount     = errors.New("account is protected")
	ErrInvalidToken         = errors.New("invalid or expired token")
	ErrAccessDenied         = errors.New("access denied")
)

// FieldError is a validation message bound to a form field. An empty Field
// marks a form-level message.
type FieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// ValidationErrors collects field-level validation failures.
type ValidationErrors []FieldError

// NewValidationError builds a ValidationErrors holding a single message.
func NewValidationError(field, message string) ValidationErrors {
	return ValidationErrors{{Field: field, Message: message}}
}

func (v ValidationErrors) Error() string {
	return strings.Join(v.Messages(), "; ")
}

// Messages returns every message in insertion order.
func (v ValidationErrors) Messages() []string {
	out := make([]string, 0, len(v))
	for _, fe := range v {
		out = append(out, fe.Message)
	}
	return out
}

// ByField groups messages under their field name; form-level messages are
// keyed by the empty string.
func (v ValidationErrors) ByField() map[string]string {
	out := make(map[string]string, len(v))
	for _, fe := range v {
		if prev, ok := out[fe.Field]; ok {
			out[fe.Field] = prev + " " + fe.Message
			continue
		}
		out[fe.Field] = fe.Message
	}
	return out
}
