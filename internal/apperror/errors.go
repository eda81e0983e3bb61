// Package apperror provides the typed errors shared by the catalog pipeline
// and the eSIM resolver.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Type identifies the category of error
type Type string

const (
	// TypeFetch is a network or HTTP failure talking to the backend
	TypeFetch Type = "FETCH_FAILURE"

	// TypeTransform is a raw bundle that could not be normalized
	TypeTransform Type = "TRANSFORM_FAILURE"

	// TypeUnresolvedIdentifier means no eSIM UUID could be derived
	TypeUnresolvedIdentifier Type = "UNRESOLVED_IDENTIFIER"

	// TypeQRProcessing means a QR payload was fetched but not decodable
	TypeQRProcessing Type = "QR_PROCESSING"

	TypeNotFound Type = "NOT_FOUND"
	TypeInput    Type = "INPUT_ERROR"
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

func New(t Type, message string) *Error {
	return &Error{Type: t, Message: message}
}

func Newf(t Type, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...)}
}

func Wrap(t Type, message string, cause error) *Error {
	return &Error{Type: t, Message: message, Cause: cause}
}

func Wrapf(t Type, cause error, format string, args ...interface{}) *Error {
	return &Error{Type: t, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// TypeOf returns the type of the outermost *Error in err's chain,
// or TypeInternal when there is none.
func TypeOf(err error) Type {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return TypeInternal
}

// IsType checks whether any *Error in err's chain has type t.
func IsType(err error, t Type) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Type == t {
			return true
		}
		err = e.Cause
	}
	return false
}

// HTTPStatus maps an error to the status the API responds with.
func HTTPStatus(err error) int {
	switch TypeOf(err) {
	case TypeInput:
		return http.StatusBadRequest
	case TypeNotFound:
		return http.StatusNotFound
	case TypeUnresolvedIdentifier:
		return http.StatusUnprocessableEntity
	case TypeQRProcessing, TypeFetch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code is the snake_case form used in JSON error bodies.
func Code(err error) string {
	return strings.ToLower(string(TypeOf(err)))
}

// Message returns the user-facing message of the outermost *Error.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}
