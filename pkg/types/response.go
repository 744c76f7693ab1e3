// Package types defines the JSON envelopes every rentloop endpoint responds
// with. Success bodies wrap the payload under "data"; failures carry a typed
// code from pkg/errors so mobile clients can branch without string matching.
package types

// SuccessEnvelope wraps a successful response payload.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public projection of a pkg/errors Error. Details are only
// populated for codes whose metadata allows them.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError for transport.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
