package gateway

import (
	"errors"
	"fmt"
)

// TransportError wraps a network-level failure: the server was unreachable
// or the request timed out. These are the failures the sync engine may defer
// into the mutation queue.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteRejection is an application-level error: the server answered with a
// non-2xx status. Message is the server-sourced human-readable text, falling
// back to the HTTP status.
type RemoteRejection struct {
	Status  int
	Message string
}

func (e *RemoteRejection) Error() string {
	return fmt.Sprintf("remote rejection (%d): %s", e.Status, e.Message)
}

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRejection reports whether err is a server-side rejection.
func IsRejection(err error) bool {
	var re *RemoteRejection
	return errors.As(err, &re)
}
