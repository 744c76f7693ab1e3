// Package errors defines the typed error codes the API maps onto HTTP
// responses. Services return these; the responses package decides status,
// public message, and whether details leak to the caller.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"

	// Negotiation misuse.
	CodeNoActiveOffer Code = "NO_ACTIVE_OFFER"
	CodeSelfAccept    Code = "SELF_ACCEPT"

	// Handover and payment failures.
	CodeInvalidHandoverCode Code = "INVALID_HANDOVER_CODE"
	CodePaymentNotConfirmed Code = "PAYMENT_NOT_CONFIRMED"
	CodeRateLimited         Code = "RATE_LIMITED"

	// Optimistic-concurrency conflict; the caller re-reads and retries once.
	CodeConcurrentModification Code = "CONCURRENT_MODIFICATION"
)

// Metadata controls how a code is rendered over HTTP. DetailsAllowed gates
// whether structured details attached to the error reach the response body.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:             {http.StatusBadRequest, false, "validation failed", true},
	CodeUnauthorized:           {http.StatusUnauthorized, false, "authentication required", false},
	CodeForbidden:              {http.StatusForbidden, false, "access denied", false},
	CodeNotFound:               {http.StatusNotFound, false, "resource not found", false},
	CodeConflict:               {http.StatusConflict, false, "conflict detected", false},
	CodeStateConflict:          {http.StatusUnprocessableEntity, false, "state transition disallowed", true},
	CodeIdempotency:            {http.StatusConflict, false, "idempotency key reused", true},
	CodeInternal:               {http.StatusInternalServerError, true, "internal server error", false},
	CodeDependency:             {http.StatusServiceUnavailable, true, "dependency unavailable", true},
	CodeNoActiveOffer:          {http.StatusUnprocessableEntity, false, "no active offer to accept", true},
	CodeSelfAccept:             {http.StatusUnprocessableEntity, false, "cannot accept your own offer", true},
	CodeInvalidHandoverCode:    {http.StatusUnprocessableEntity, false, "handover code invalid or already used", false},
	CodePaymentNotConfirmed:    {http.StatusPaymentRequired, false, "payment unavailable, try again", false},
	CodeRateLimited:            {http.StatusTooManyRequests, true, "too many requests, slow down", false},
	CodeConcurrentModification: {http.StatusConflict, true, "order changed concurrently, retry", false},
}

// MetadataFor returns the rendering rules for a code, treating unknown codes
// as internal errors.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// Error is the typed error carried from services up to the HTTP layer.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails attaches structured context that the HTTP layer may expose
// when the code's metadata allows it.
func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As extracts the typed error from a chain, or nil when none is present.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err carries the given typed code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
