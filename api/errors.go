package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mkazantsev/tablebook/internal/domain"
)

// statusFor maps service errors onto HTTP statuses. Conflict (409) marks the
// retryable concurrent-booking loss.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrMissingFields),
		errors.Is(err, domain.ErrInvalidPartySize),
		errors.Is(err, domain.ErrInvalidTimeFormat),
		errors.Is(err, domain.ErrInvalidDate),
		errors.Is(err, domain.ErrInvalidInventory),
		errors.Is(err, domain.ErrNoAvailabilityForDate),
		errors.Is(err, domain.ErrNoSuitableTable),
		errors.Is(err, domain.ErrAlreadyCancelled):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRestaurantNotFound),
		errors.Is(err, domain.ErrBookingNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrSlotNoLongerAvailable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
