package handler

import "github.com/crmbridge/gateway/internal/interfaces/http/dto"

// APIResponse is dto.Response with a typed data field, used where a
// handler or test needs the payload back in its concrete type
type APIResponse[T any] struct {
	Success bool           `json:"success"`
	Data    T              `json:"data,omitempty"`
	Error   *dto.ErrorInfo `json:"error,omitempty"`
	Meta    *dto.Meta      `json:"meta,omitempty"`
}
