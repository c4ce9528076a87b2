package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/crmbridge/gateway/internal/interfaces/http/dto"
)

var setupOnce sync.Once

// SetupValidator configures the gin validator: JSON field names in errors and
// the "currency" alias for ISO 4217 codes. Safe to call more than once.
func SetupValidator() {
	setupOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		v.RegisterAlias("currency", "iso4217")
	})
}

// FormatValidationErrors formats validation errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var details []dto.ValidationDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, e := range validationErrors {
			details = append(details, dto.ValidationDetail{
				Field:   fieldPath(e),
				Message: getValidationMessage(e),
			})
		}
	}

	return dto.NewValidationErrorResponse(
		"Request validation failed",
		requestID,
		details,
	)
}

// HandleValidationError returns a validation error response
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

// fieldPath drops the top-level struct name: "CreateProductRequest.prices[0].currency"
// becomes "prices[0].currency".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

// fixedMessages are the messages that do not depend on the field's kind
var fixedMessages = map[string]string{
	"required": "This field is required",
	"email":    "Invalid email format",
	"url":      "Invalid URL format",
	"currency": "Must be a 3-letter ISO 4217 currency code",
	"iso4217":  "Must be a 3-letter ISO 4217 currency code",
}

// boundMessages take the tag parameter as their suffix
var boundMessages = map[string]string{
	"oneof":    "Must be one of: ",
	"gte":      "Must be greater than or equal to ",
	"lte":      "Must be less than or equal to ",
	"gt":       "Must be greater than ",
	"lt":       "Must be less than ",
	"datetime": "Must be a date in the format ",
}

func getValidationMessage(e validator.FieldError) string {
	if msg, ok := fixedMessages[e.Tag()]; ok {
		return msg
	}
	if prefix, ok := boundMessages[e.Tag()]; ok {
		return prefix + e.Param()
	}
	if e.Tag() != "min" && e.Tag() != "max" {
		return "Invalid value"
	}

	bound := "at least "
	if e.Tag() == "max" {
		bound = "at most "
	}
	switch e.Kind() {
	case reflect.String:
		return "Must be " + bound + e.Param() + " characters"
	case reflect.Slice, reflect.Array, reflect.Map:
		return "Must contain " + bound + e.Param() + " items"
	default:
		return "Must be " + bound + e.Param()
	}
}
