package errors

import (
	"fmt"
	"net/http"
)

// Kind classifies a pipeline error.
type Kind string

const (
	// Fatal, request-level kinds. These abort the whole request before any
	// object-store write happens.
	KindInvalidFormat      Kind = "invalid_format"
	KindImageTooLarge      Kind = "image_too_large"
	KindFileTooLarge       Kind = "file_too_large"
	KindUnknownPolicyGroup Kind = "unknown_policy_group"
	KindStoreUnavailable   Kind = "store_unavailable"

	// Per-variant, recoverable kinds. Recorded in the failures list of a
	// pipeline result; sibling variants continue unaffected.
	KindRenderFailed  Kind = "render_failed"
	KindPublishFailed Kind = "publish_failed"
	KindTimeout       Kind = "timeout"

	KindInternal Kind = "internal"
)

// Error is a structured pipeline error.
type Error struct {
	Kind       Kind           `json:"kind"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	Inner      error          `json:"-"`
	HTTPStatus int            `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Inner != nil {
		return e.Inner.Error()
	}
	return string(e.Kind)
}

// Unwrap returns the inner error.
func (e *Error) Unwrap() error {
	return e.Inner
}

// Is matches errors by kind, so errors.Is(err, &Error{Kind: k}) works across
// wrapped chains.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

// WithDetail attaches a key/value detail to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithInner sets the wrapped cause.
func (e *Error) WithInner(err error) *Error {
	e.Inner = err
	return e
}

// New creates an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:       kind,
		Message:    message,
		HTTPStatus: httpStatusFor(kind),
	}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap wraps err with a kind and message.
func Wrap(err error, kind Kind, message string) *Error {
	return New(kind, message).WithInner(err)
}

// KindOf returns the kind of err, or KindInternal when err carries none.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return KindInternal
}

// IsFatal reports whether the kind aborts a whole request as opposed to a
// single variant.
func IsFatal(err error) bool {
	switch KindOf(err) {
	case KindInvalidFormat, KindImageTooLarge, KindFileTooLarge,
		KindUnknownPolicyGroup, KindStoreUnavailable:
		return true
	}
	return false
}

func httpStatusFor(kind Kind) int {
	switch kind {
	case KindInvalidFormat, KindImageTooLarge, KindFileTooLarge, KindUnknownPolicyGroup:
		return http.StatusBadRequest
	case KindStoreUnavailable:
		return http.StatusServiceUnavailable
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// Convenience constructors for the validator and orchestrator.

func NewInvalidFormat(cause error) *Error {
	return Wrap(cause, KindInvalidFormat, "image cannot be decoded")
}

func NewImageTooLarge(width, height, maxDim int) *Error {
	return Newf(KindImageTooLarge, "image dimensions too large: %dx%d (max %d per side)", width, height, maxDim).
		WithDetail("width", width).
		WithDetail("height", height).
		WithDetail("max_dimension", maxDim)
}

func NewFileTooLarge(size, maxBytes int64) *Error {
	return Newf(KindFileTooLarge, "image file too large: %d bytes (max %d)", size, maxBytes).
		WithDetail("size", size).
		WithDetail("max_bytes", maxBytes)
}

func NewUnknownPolicyGroup(name string) *Error {
	return Newf(KindUnknownPolicyGroup, "unknown policy group %q", name).
		WithDetail("group", name)
}

func NewRenderFailed(variant string, cause error) *Error {
	return Wrap(cause, KindRenderFailed, fmt.Sprintf("render variant %q: %v", variant, cause)).
		WithDetail("variant", variant)
}

func NewPublishFailed(variant string, cause error) *Error {
	return Wrap(cause, KindPublishFailed, fmt.Sprintf("publish variant %q: %v", variant, cause)).
		WithDetail("variant", variant)
}
