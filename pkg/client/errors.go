package client

import "fmt"

// GenericServerError is shown when the analyzer fails without saying why.
const GenericServerError = "Server returned an error."

// ValidationError is a local input problem caught before any request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string {
	return e.Msg
}

// TransportError means the analyzer could not be reached at all.
type TransportError struct {
	Port string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("Cannot reach the backend. Make sure the server is running on port %s.", e.Port)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ApplicationError means the analyzer answered but reported a failure.
// Msg is the server-supplied message, or GenericServerError.
type ApplicationError struct {
	StatusCode int
	Msg        string
}

func (e *ApplicationError) Error() string {
	return e.Msg
}
