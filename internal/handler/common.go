package handler

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/cvidalr/bus-trip-booking/internal/schedule"
)

// validate is the shared validator instance for request payloads.  Tags
// on the request DTOs describe the per-field rules; cross-field checks
// (stop ordering, the one-of timing rule) live next to the handlers
// that need them.
var validate = validator.New()

// scheduleErrorStatus maps the schedule package's error taxonomy onto
// HTTP statuses.  Configuration and validation failures are the
// caller's fault; anything else is a storage-layer problem surfaced as
// an internal error without partial state corruption.
func scheduleErrorStatus(err error) int {
	switch {
	case errors.Is(err, schedule.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, schedule.ErrConfiguration):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// jsonError writes the standard single-field error body.
func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}
