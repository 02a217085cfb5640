// Package types defines the wire envelopes shared by every HTTP response.
package types

// SuccessEnvelope wraps every 2xx payload under a single "data" key so
// clients can unwrap responses uniformly.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public error body: a stable machine code, a human message,
// and optional structured details for codes that allow them.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every non-2xx payload.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
