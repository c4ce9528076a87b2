package shared

import "fmt"

// DomainError is an error with a stable machine-readable code. Errors
// sharing a code match each other under errors.Is.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches any DomainError with the same code
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	return ok && t.Code == e.Code
}

// WithMessage returns a copy of e with a more specific message
func (e *DomainError) WithMessage(format string, args ...any) *DomainError {
	return &DomainError{Code: e.Code, Message: fmt.Sprintf(format, args...)}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Errors raised outside any remote call
var (
	ErrNotFound         = NewDomainError("NOT_FOUND", "Resource not found")
	ErrMethodNotAllowed = NewDomainError("METHOD_NOT_ALLOWED", "Method not allowed on this resource")
	ErrInvalidInput     = NewDomainError("INVALID_INPUT", "Invalid input provided")
)
