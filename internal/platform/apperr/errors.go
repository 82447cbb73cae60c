// Package apperr holds the error taxonomy shared by the booking core and
// the HTTP layer. Domain packages wrap these sentinels with context and
// callers match them with errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidSlot       = errors.New("slot is not on the booking grid")
	ErrOutOfRangeDate    = errors.New("date is outside the bookable range")
	ErrSlotUnavailable   = errors.New("slot is not available")
	ErrAlreadyCancelled  = errors.New("appointment is already cancelled")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("already exists")
	ErrUnauthorized      = errors.New("invalid credentials")
)

// Newf wraps kind with a formatted detail message.
func Newf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

// Code returns a stable snake_case code for err, suitable for metric labels
// and API error bodies. Unknown errors map to "internal".
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation_failed"
	case errors.Is(err, ErrInvalidSlot):
		return "invalid_slot"
	case errors.Is(err, ErrOutOfRangeDate):
		return "out_of_range_date"
	case errors.Is(err, ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, ErrAlreadyCancelled):
		return "already_cancelled"
	case errors.Is(err, ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	default:
		return "internal"
	}
}

// HTTPStatus maps err onto the status code a handler should answer with.
func HTTPStatus(err error) int {
	switch Code(err) {
	case "ok":
		return http.StatusOK
	case "validation_failed", "invalid_slot", "out_of_range_date":
		return http.StatusBadRequest
	case "slot_unavailable", "already_cancelled", "invalid_transition", "conflict":
		return http.StatusConflict
	case "not_found":
		return http.StatusNotFound
	case "unauthorized":
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTP converts err into an echo.HTTPError. Internal errors are not echoed
// back to the client.
func ToHTTP(err error) *echo.HTTPError {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		return echo.NewHTTPError(status, "internal server error").SetInternal(err)
	}
	return echo.NewHTTPError(status, map[string]string{
		"code":    Code(err),
		"message": err.Error(),
	})
}
