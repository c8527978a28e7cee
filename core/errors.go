package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// AuthenticationError is returned when login credentials do not match a directory entry.
// Message is safe to show to the user.
type AuthenticationError struct {
	Message string
}

func NewAuthenticationError() error {
	return &AuthenticationError{Message: "Invalid email, password, or role"}
}

func (err AuthenticationError) Error() string {
	return err.Message
}

type DuplicateEmailError struct {
	Email string
}

func NewDuplicateEmailError(email string) error {
	return &DuplicateEmailError{Email: email}
}

func (err DuplicateEmailError) Error() string {
	return "a user with this email already exists"
}

// NotFoundError reports a missing object. Kind is e.g. "user" or a resource name.
type NotFoundError struct {
	Kind string
	Key  string
}

func NewNotFoundError(kind string, key interface{}) error {
	return &NotFoundError{Kind: kind, Key: fmt.Sprint(key)}
}

func (err NotFoundError) Error() string {
	if err.Key == "" {
		return err.Kind + " not found"
	}
	return fmt.Sprintf("%s %s not found", err.Kind, err.Key)
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

func IsDuplicateEmail(err error) bool {
	_, ok := errors.Cause(err).(*DuplicateEmailError)
	return ok
}

func IsAuthentication(err error) bool {
	_, ok := errors.Cause(err).(*AuthenticationError)
	return ok
}

func IsValidation(err error) bool {
	_, ok := errors.Cause(err).(*ValidationError)
	return ok
}
