package integration

import (
	"errors"
	"fmt"
)

// ---------------------------------------------------------------------------
// Integration Errors
// ---------------------------------------------------------------------------

var (
	// ErrConfiguration is returned before any I/O when a required credential is absent.
	ErrConfiguration = errors.New("integration: missing configuration")
	// ErrValidation marks a record that is missing a required field or resolves to an empty update.
	ErrValidation = errors.New("integration: invalid record")
	// ErrRemote is the sentinel wrapped by every *RemoteError.
	ErrRemote = errors.New("integration: remote rejected request")
	// ErrTransport is returned when the remote could not be reached or timed out.
	ErrTransport = errors.New("integration: remote unreachable")
	// ErrDecode is returned when a remote response body is not valid JSON.
	ErrDecode = errors.New("integration: undecodable remote response")
)

// RemoteError carries a non-2xx answer from a remote system.
// Body is the remote payload as received; it is forwarded verbatim to the caller.
type RemoteError struct {
	System  System
	Status  int
	Message string
	Body    []byte
	Preview RequestPreview
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("integration: %s responded %d: %s", e.System, e.Status, e.Message)
	}
	return fmt.Sprintf("integration: %s responded %d", e.System, e.Status)
}

// Unwrap lets errors.Is(err, ErrRemote) match.
func (e *RemoteError) Unwrap() error {
	return ErrRemote
}

// NewValidationError wraps ErrValidation with a caller-facing message.
func NewValidationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NewConfigurationError wraps ErrConfiguration with the name of what is missing.
func NewConfigurationError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
