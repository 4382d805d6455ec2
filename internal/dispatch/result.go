package dispatch

import "fmt"

// Kind classifies a failed call
type Kind string

const (
	// KindRequest means the request could not be built (i.e. the payload could not be encoded)
	KindRequest Kind = "request"

	// KindTransport means no response was received
	KindTransport Kind = "transport"

	// KindApplication means the backend answered with a non-2xx status
	KindApplication Kind = "application"

	// KindDecode means the backend answered with 2xx but the body is not JSON
	KindDecode Kind = "decode"
)

// Result is the outcome of a dispatched call; it is either a *Success or a *Failure
type Result interface {
	// OK reports whether the call succeeded
	OK() bool

	// Envelope returns the uniform {status, ok, data|error} shape of the result
	Envelope() *Envelope
}

// Envelope is the shape every result is presented in
type Envelope struct {
	Status int    `json:"status"`
	OK     bool   `json:"ok"`
	Kind   Kind   `json:"kind,omitempty"`
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Success represents a 2xx response with its decoded JSON document
type Success struct {
	Status   int
	Document any
}

var _ Result = (*Success)(nil)

// OK always returns true
func (success *Success) OK() bool {
	return true
}

// Envelope returns the uniform shape of the success
func (success *Success) Envelope() *Envelope {
	return &Envelope{
		Status: success.Status,
		OK:     true,
		Data:   success.Document,
	}
}

// Failure represents any failed call; Status is 0 if no response was received
type Failure struct {
	Kind    Kind
	Status  int
	Message string
}

var (
	_ Result = (*Failure)(nil)
	_ error  = (*Failure)(nil)
)

// OK always returns false
func (failure *Failure) OK() bool {
	return false
}

// Envelope returns the uniform shape of the failure
func (failure *Failure) Envelope() *Envelope {
	return &Envelope{
		Status: failure.Status,
		OK:     false,
		Kind:   failure.Kind,
		Error:  failure.Message,
	}
}

// Error implements the error interface
func (failure *Failure) Error() string {
	if failure.Status == 0 {
		return fmt.Sprintf("%s error: %s", failure.Kind, failure.Message)
	}
	return fmt.Sprintf("%s error (HTTP %d): %s", failure.Kind, failure.Status, failure.Message)
}
