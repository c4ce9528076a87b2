package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/crmbridge/gateway/internal/domain/integration"
	"github.com/crmbridge/gateway/internal/domain/shared"
	"github.com/crmbridge/gateway/internal/interfaces/http/dto"
	"github.com/crmbridge/gateway/internal/interfaces/http/middleware"
)

// sentinelPrefix starts every integration error message
const sentinelPrefix = "integration: "

// ModeReporter tells handlers whether remote calls are simulated
type ModeReporter interface {
	DryRun() bool
}

// BaseHandler provides common handler utilities
type BaseHandler struct {
	mode ModeReporter
}

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}

func (h *BaseHandler) meta(c *gin.Context) *dto.Meta {
	m := &dto.Meta{RequestID: getRequestID(c)}
	if h.mode != nil {
		m.DryRun = h.mode.DryRun()
	}
	return m
}

// Success sends a success response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponseWithMeta(data, h.meta(c)))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponseWithMeta(data, h.meta(c)))
}

// Error sends an error response with the appropriate status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// ErrorWithCode sends an error response, deriving status code from error code
func (h *BaseHandler) ErrorWithCode(c *gin.Context, code, message string) {
	h.Error(c, dto.GetHTTPStatus(code), code, message)
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// BindJSON decodes and validates the request body. It writes the error
// response itself and reports whether the handler may continue.
// An empty body is treated as {} when allowEmpty is set.
func (h *BaseHandler) BindJSON(c *gin.Context, req any, allowEmpty bool) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	if allowEmpty && errors.Is(err, io.EOF) {
		// Nothing to decode, still run the validator over the zero value
		if verr := validateStruct(req); verr != nil {
			h.bindError(c, verr)
			return false
		}
		return true
	}
	h.bindError(c, err)
	return false
}

// BindQuery decodes and validates query parameters
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		h.bindError(c, err)
		return false
	}
	return true
}

func validateStruct(req any) error {
	return binding.Validator.ValidateStruct(req)
}

func (h *BaseHandler) bindError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		middleware.HandleValidationError(c, err)
		return
	}

	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		h.ErrorWithCode(c, dto.ErrCodePayloadTooLarge, "Request body exceeds maximum allowed size")
		return
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.As(err, &typeErr):
		h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Field "+typeErr.Field+" has the wrong type")
	case errors.As(err, &syntaxErr), errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		h.ErrorWithCode(c, dto.ErrCodeInvalidJSON, "Request body is not valid JSON")
	default:
		h.HandleError(c, shared.ErrInvalidInput)
	}
}

// HandleError maps service errors to the error envelope
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	requestID := getRequestID(c)

	var remoteErr *integration.RemoteError
	if errors.As(err, &remoteErr) {
		resp := dto.NewErrorResponseWithRequestID(dto.ErrCodeRemote, remoteMessage(remoteErr), requestID)
		resp.Error.Status = remoteErr.Status
		resp.Error.Details = remoteDetails(remoteErr.Body)
		preview := remoteErr.Preview
		resp.Error.Request = &preview

		status := remoteErr.Status
		if status < http.StatusBadRequest || status > 599 {
			status = dto.GetHTTPStatus(dto.ErrCodeRemote)
		}
		c.JSON(status, resp)
		return
	}

	switch {
	case errors.Is(err, integration.ErrConfiguration):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeConfiguration, cleanMessage(err))
		return
	case errors.Is(err, integration.ErrValidation):
		// The request was well formed but resolved to nothing to send
		h.Error(c, http.StatusUnprocessableEntity, dto.ErrCodeValidation, cleanMessage(err))
		return
	case errors.Is(err, integration.ErrTransport):
		h.ErrorWithCode(c, dto.ErrCodeRemoteTransport, cleanMessage(err))
		return
	case errors.Is(err, integration.ErrDecode):
		h.ErrorWithCode(c, dto.ErrCodeRemoteDecode, cleanMessage(err))
		return
	}

	// Check for domain error using errors.As for wrapped error support
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code := dto.NormalizeErrorCode(domainErr.Code)
		c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, domainErr.Message, requestID))
		return
	}

	c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeInternal,
		"An unexpected error occurred",
		requestID,
	))
}

// cleanMessage strips the sentinel prefixes from a wrapped error message,
// "integration: missing configuration: PIPEDRIVE_API_TOKEN is not set" becomes
// "missing configuration: PIPEDRIVE_API_TOKEN is not set".
func cleanMessage(err error) string {
	return strings.ReplaceAll(err.Error(), sentinelPrefix, "")
}

func remoteMessage(e *integration.RemoteError) string {
	if e.Message != "" {
		return e.Message
	}
	return strings.TrimPrefix(e.Error(), sentinelPrefix)
}

// remoteDetails forwards the remote body, wrapping non-JSON text
func remoteDetails(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	return map[string]string{"raw": string(body)}
}
