// Package apperr defines the error taxonomy surfaced by the intake gateway
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Category groups errors by how the caller should react to them
type Category uint8

const (
	// CategoryInternal is for unclassified failures
	CategoryInternal Category = iota

	// CategoryValidation is for missing or malformed input (400)
	CategoryValidation

	// CategoryPolicy is for spam, honeypot, extra-field, fill-time and transport violations (403)
	CategoryPolicy

	// CategoryContent is for detected code or markup (403)
	CategoryContent

	// CategoryQuota is for rate limiting (429)
	CategoryQuota

	// CategoryUpstream is for failures of the external generator (500)
	CategoryUpstream

	// CategoryUnavailable is for a generator that is not configured (500)
	CategoryUnavailable
)

func (c Category) String() string {
	switch c {
	case CategoryValidation:
		return "validation"
	case CategoryPolicy:
		return "policy"
	case CategoryContent:
		return "content"
	case CategoryQuota:
		return "quota"
	case CategoryUpstream:
		return "upstream"
	case CategoryUnavailable:
		return "unavailable"
	default:
		return "internal"
	}
}

// HTTPStatusCode maps a category to the status returned to the caller
func HTTPStatusCode(c Category) int {
	switch c {
	case CategoryValidation:
		return http.StatusBadRequest
	case CategoryPolicy, CategoryContent:
		return http.StatusForbidden
	case CategoryQuota:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error is a categorized error with a stable machine code and a user-facing message
type Error struct {
	category   Category
	code       string
	msg        string
	retryAfter time.Duration
	orig       error
}

// Wire is the JSON body returned for every failed request
type Wire struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped cause, if any
func (e *Error) Unwrap() error { return e.orig }

// Category returns the error category
func (e *Error) Category() Category { return e.category }

// Code returns the machine-readable code
func (e *Error) Code() string { return e.code }

// Message returns the human-readable message without the wrapped cause
func (e *Error) Message() string { return e.msg }

// RetryAfter is the suggested wait for quota errors, zero otherwise
func (e *Error) RetryAfter() time.Duration { return e.retryAfter }

// ToWire never exposes the wrapped cause
func (e *Error) ToWire() Wire { return Wire{Error: e.code, Message: e.msg} }

// New returns an *Error with the given category, code and message
func New(category Category, code, msg string) error {
	return &Error{category: category, code: code, msg: msg}
}

// Wrap returns an *Error that keeps orig as its cause
func Wrap(orig error, category Category, code, msg string) error {
	return &Error{category: category, code: code, msg: msg, orig: orig}
}

// Validationf returns a validation error
func Validationf(code, format string, a ...any) error {
	return &Error{category: CategoryValidation, code: code, msg: fmt.Sprintf(format, a...)}
}

// Policyf returns a policy violation
func Policyf(code, format string, a ...any) error {
	return &Error{category: CategoryPolicy, code: code, msg: fmt.Sprintf(format, a...)}
}

// Contentf returns a content violation
func Contentf(code, format string, a ...any) error {
	return &Error{category: CategoryContent, code: code, msg: fmt.Sprintf(format, a...)}
}

// QuotaExceeded returns a rate-limit error carrying the retry hint
func QuotaExceeded(retryAfter time.Duration) error {
	return &Error{
		category:   CategoryQuota,
		code:       "rate_limited",
		msg:        "Trop de requêtes, veuillez réessayer plus tard",
		retryAfter: retryAfter,
	}
}

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// CategoryOf extracts the category from any error, defaulting to internal
func CategoryOf(err error) Category {
	if e, ok := As(err); ok {
		return e.category
	}
	return CategoryInternal
}

// IsCategory reports whether err belongs to the given category
func IsCategory(err error, c Category) bool { return CategoryOf(err) == c }

// HTTPStatus returns the mapped HTTP status for any error
func HTTPStatus(err error) int { return HTTPStatusCode(CategoryOf(err)) }

// WireFrom converts any error into a Wire payload; foreign errors become a generic internal error
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Error: "internal_error", Message: "Erreur interne du serveur"}
}
