// Package apperr defines the error kinds surfaced to callers of the
// identification pipeline and their HTTP status classes.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindConfig            Kind = "config_error"
	KindUpstream          Kind = "upstream_error"
	KindRateLimited       Kind = "rate_limited"
	KindMalformedResponse Kind = "malformed_response"
	KindInvalidInput      Kind = "invalid_input"
	KindInternal          Kind = "internal"
)

// DefaultRetryAfter is suggested to callers when every vision model is exhausted.
const DefaultRetryAfter = 60 * time.Second

// Error is a classified error. Message is safe to show to callers.
type Error struct {
	Kind       Kind
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. The wrapped error stays reachable via errors.As/Is.
func Wrap(kind Kind, err error, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// RateLimited builds the error returned once every vision model refused the request.
func RateLimited(msg string) *Error {
	return &Error{Kind: KindRateLimited, Message: msg, RetryAfter: DefaultRetryAfter}
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps a kind to its HTTP status class.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindConfig:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RetryGuidance returns a user-facing hint for retryable kinds, or "".
func RetryGuidance(err error) string {
	ae, ok := As(err)
	if !ok || ae.Kind != KindRateLimited {
		return ""
	}
	wait := ae.RetryAfter
	if wait <= 0 {
		wait = DefaultRetryAfter
	}
	return fmt.Sprintf("All identification models are busy. Please try again in about %d seconds.", int(wait.Seconds()))
}

// Redact replaces every non-empty secret in msg.
func Redact(msg string, secrets ...string) string {
	for _, s := range secrets {
		if s == "" {
			continue
		}
		msg = strings.ReplaceAll(msg, s, "[REDACTED]")
	}
	return msg
}
