package dto

import "net/http"

// Error codes returned in error.code. Every code starts with ERR_.
const (
	ErrCodeInternal = "ERR_INTERNAL"

	// ErrCodeValidation covers binding failures (400) and rejected
	// service input (422)
	ErrCodeValidation = "ERR_VALIDATION"

	// ErrCodeConfiguration means a credential the call needs is not set
	ErrCodeConfiguration = "ERR_CONFIGURATION"

	// ErrCodeRemote carries the status of the rejecting remote system
	ErrCodeRemote          = "ERR_REMOTE"
	ErrCodeRemoteTransport = "ERR_REMOTE_TRANSPORT"
	ErrCodeRemoteDecode    = "ERR_REMOTE_DECODE"

	ErrCodeNotFound         = "ERR_NOT_FOUND"
	ErrCodeMethodNotAllowed = "ERR_METHOD_NOT_ALLOWED"

	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodePayloadTooLarge = "ERR_PAYLOAD_TOO_LARGE"
)

// ErrorCodeHTTPStatus is the default status per code
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:         http.StatusInternalServerError,
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeConfiguration:    http.StatusBadRequest,
	ErrCodeRemote:           http.StatusBadGateway,
	ErrCodeRemoteTransport:  http.StatusBadGateway,
	ErrCodeRemoteDecode:     http.StatusInternalServerError,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeMethodNotAllowed: http.StatusMethodNotAllowed,
	ErrCodeBadRequest:       http.StatusBadRequest,
	ErrCodeInvalidInput:     http.StatusBadRequest,
	ErrCodeInvalidJSON:      http.StatusBadRequest,
	ErrCodePayloadTooLarge:  http.StatusRequestEntityTooLarge,
}

// GetHTTPStatus returns the status for code, 500 when the code is unknown
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainCodeMapping translates shared.DomainError codes to API codes
var DomainCodeMapping = map[string]string{
	"NOT_FOUND":          ErrCodeNotFound,
	"METHOD_NOT_ALLOWED": ErrCodeMethodNotAllowed,
	"INVALID_INPUT":      ErrCodeInvalidInput,
}

// NormalizeErrorCode maps a domain code to its API code. Codes without a
// mapping are returned unchanged.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
