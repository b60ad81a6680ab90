package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"fleet/internal/repository"
	"fleet/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrTripNotFound),
		errors.Is(err, service.ErrCaptainNotFound),
		errors.Is(err, service.ErrPointNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidCoordinates),
		errors.Is(err, service.ErrInvalidPrice),
		errors.Is(err, service.ErrNoCheckpointsGiven),
		errors.Is(err, service.ErrFinalPointCount),
		errors.Is(err, service.ErrFinalPointNotLast),
		errors.Is(err, service.ErrExpectedTimeRequired),
		errors.Is(err, service.ErrInvalidPushToken):
		return http.StatusBadRequest

	// Conflict errors - wrong state for the operation
	case errors.Is(err, service.ErrTripNotScheduled),
		errors.Is(err, service.ErrTripNotActive),
		errors.Is(err, service.ErrStateConflict),
		errors.Is(err, service.ErrPointAlreadyDone),
		errors.Is(err, service.ErrUpdateBlocked),
		errors.Is(err, service.ErrPriceImmutable),
		errors.Is(err, service.ErrCannotDelete),
		errors.Is(err, service.ErrPhoneAlreadyExists),
		errors.Is(err, service.ErrActivationRejected),
		errors.Is(err, service.ErrEmergencyInProgress):
		return http.StatusConflict

	// Forbidden/Business rule errors
	case errors.Is(err, service.ErrNotAssignedCaptain),
		errors.Is(err, service.ErrCaptainNotActive),
		errors.Is(err, service.ErrNoAssignedCaptain):
		return http.StatusForbidden

	// Quota exhausted
	case errors.Is(err, service.ErrEmergencyQuotaUsed):
		return http.StatusTooManyRequests

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
