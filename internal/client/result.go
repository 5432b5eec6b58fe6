package client

import (
	"encoding/json"
)

// FailureKind classifies why a request produced no usable response.
type FailureKind string

const (
	// FailureRequest means the request could not be built (bad endpoint, unencodable parameters).
	FailureRequest FailureKind = "request"
	// FailureTransport covers connection errors, timeouts and cancellation.
	FailureTransport FailureKind = "transport"
	// FailureStatus means the server answered with a non-2xx status.
	FailureStatus FailureKind = "status"
	// FailureDecode means a 2xx body was not a JSON object.
	FailureDecode FailureKind = "decode"
)

// Failure is the terminal outcome of a request that did not yield a JSON
// response envelope. It is returned as data, never raised.
type Failure struct {
	Kind    FailureKind
	Message string
	// StatusCode is zero when no HTTP response was received.
	StatusCode int
	// Details holds the response body verbatim, when one was read.
	Details []byte
	// Truncated is set when Details stops at the error-body read limit.
	Truncated bool
}

func (f *Failure) Error() string {
	return f.Message
}

// HasStatus reports whether an HTTP status code is known.
func (f *Failure) HasStatus() bool {
	return f.StatusCode != 0
}

type failureRecord struct {
	Error      string `json:"error"`
	Kind       string `json:"kind"`
	StatusCode *int   `json:"status_code"`
	Details    string `json:"details,omitempty"`
	Truncated  bool   `json:"truncated,omitempty"`
}

// MarshalJSON renders the failure as {error, kind, status_code, details}.
// status_code is null when absent. details is the body as a JSON string so
// it decodes back byte for byte, whatever its formatting.
func (f *Failure) MarshalJSON() ([]byte, error) {
	rec := failureRecord{
		Error:     f.Message,
		Kind:      string(f.Kind),
		Details:   string(f.Details),
		Truncated: f.Truncated,
	}
	if f.HasStatus() {
		code := f.StatusCode
		rec.StatusCode = &code
	}
	return json.Marshal(rec)
}

// Result is the outcome of Send: either a decoded response envelope or a
// Failure, never both.
type Result struct {
	StatusCode int
	Payload    map[string]any
	Raw        []byte
	Failure    *Failure
}

// OK reports whether the request produced a response envelope.
func (r Result) OK() bool {
	return r.Failure == nil
}

// Err returns the failure as an error, or nil on success.
func (r Result) Err() error {
	if r.Failure == nil {
		return nil
	}
	return r.Failure
}

func failed(kind FailureKind, status int, message string, details []byte) Result {
	return Result{
		StatusCode: status,
		Failure: &Failure{
			Kind:       kind,
			Message:    message,
			StatusCode: status,
			Details:    details,
		},
	}
}
