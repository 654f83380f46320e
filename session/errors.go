package session

import (
	"errors"
	"fmt"
)

var (
	// ErrExit is returned by Handle when the client sends exit. The caller
	// should release its resources and end the process.
	ErrExit = errors.New("Exit notification received")

	ErrNotInitialized     = errors.New("Server has not been initialized")
	ErrAlreadyInitialized = errors.New("Server is already initialized")
	ErrMissingParams      = errors.New("Params are required")
	ErrMissingURI         = errors.New("Text document URI is required")
	ErrUnknownTrace       = errors.New("Unknown trace value")
)

// ViolationError is returned when the client breaks the protocol: it sends a
// message the current state does not allow, or edits a document in a way
// that shows its copy has diverged from ours.
type ViolationError struct {
	Method string
	State  State
	Err    error
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("Protocol violation, %s received while %s: %v", e.Method, e.State, e.Err)
}

func (e *ViolationError) Unwrap() error {
	return e.Err
}
