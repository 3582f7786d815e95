package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/vanshpatelx/Opinex/internal/cache"
	"github.com/vanshpatelx/Opinex/internal/connector"
	"github.com/vanshpatelx/Opinex/internal/services"
	"github.com/vanshpatelx/Opinex/internal/store"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Message string `json:"error"`
	Code    string `json:"code,omitempty"`
}

// Error represents an API error
type Error struct {
	Message    string
	StatusCode int
	Code       string
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Common API errors
var (
	ErrInvalidRequest     = &Error{Message: "Invalid request", StatusCode: http.StatusBadRequest, Code: "INVALID_REQUEST"}
	ErrNotFound           = &Error{Message: "Resource not found", StatusCode: http.StatusNotFound, Code: "NOT_FOUND"}
	ErrInternalServer     = &Error{Message: "Internal server error", StatusCode: http.StatusInternalServerError, Code: "INTERNAL_ERROR"}
	ErrUnauthorized       = &Error{Message: "Unauthorized", StatusCode: http.StatusUnauthorized, Code: "UNAUTHORIZED"}
	ErrForbidden          = &Error{Message: "Forbidden", StatusCode: http.StatusForbidden, Code: "FORBIDDEN"}
	ErrConflict           = &Error{Message: "Event status does not allow this change", StatusCode: http.StatusConflict, Code: "INVALID_TRANSITION"}
	ErrEventNotLive       = &Error{Message: "Event is not live", StatusCode: http.StatusBadRequest, Code: "EVENT_NOT_LIVE"}
	ErrServiceUnavailable = &Error{Message: "Service unavailable", StatusCode: http.StatusServiceUnavailable, Code: "SERVICE_UNAVAILABLE"}
)

// NewValidationError creates a new validation error with a custom message
func NewValidationError(message string) *Error {
	return &Error{
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Code:       "VALIDATION_ERROR",
	}
}

// toAPIError maps domain and backend errors onto HTTP errors.
func toAPIError(err error) *Error {
	var apiError *Error
	switch {
	case errors.As(err, &apiError):
		return apiError
	case errors.Is(err, services.ErrInvalidRequest):
		return NewValidationError(err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		return ErrUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return ErrForbidden
	case errors.Is(err, services.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, services.ErrEventNotLive):
		return ErrEventNotLive
	case errors.Is(err, services.ErrInvalidTransition):
		return ErrConflict
	case errors.Is(err, store.ErrBackend),
		errors.Is(err, cache.ErrCacheUnavailable),
		errors.Is(err, connector.ErrInitializationFailed):
		return ErrServiceUnavailable
	}
	return ErrInternalServer
}

// WriteError writes an error response and aborts the request.
func WriteError(c *gin.Context, err error) {
	apiError := toAPIError(err)
	if apiError.StatusCode >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}
	c.AbortWithStatusJSON(apiError.StatusCode, ErrorResponse{
		Message: apiError.Message,
		Code:    apiError.Code,
	})
}
