package remote

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyResponse    = errors.New("empty response from transport")
	ErrResponseMismatch = errors.New("response does not match request")
)

// TransportError wraps any failure to complete a task on a host.
type TransportError struct {
	Op   string
	Host string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s on %s: %v", e.Op, e.Host, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError is a failure reported by the host itself.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return e.Message
}
