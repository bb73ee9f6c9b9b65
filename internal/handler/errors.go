package handler

import (
	"errors"
	"net/http"

	"roamly-chat/internal/transport/httpdto"
	roamly_errors "roamly-chat/pkg/errors"

	"github.com/gin-gonic/gin"
)

// respondError maps service error kinds to HTTP statuses. Anything
// unrecognized is a 500 with a generic body.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, roamly_errors.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse(err.Error(), "INVALID_REQUEST"))
	case errors.Is(err, roamly_errors.ErrNotParticipant),
		errors.Is(err, roamly_errors.ErrForbidden):
		c.JSON(http.StatusForbidden, httpdto.NewErrorResponse(err.Error(), "FORBIDDEN"))
	case errors.Is(err, roamly_errors.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
	case errors.Is(err, roamly_errors.ErrNotFound):
		c.JSON(http.StatusNotFound, httpdto.NewErrorResponse(err.Error(), "NOT_FOUND"))
	case errors.Is(err, roamly_errors.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(err.Error(), "RATE_LIMITED"))
	default:
		c.JSON(http.StatusInternalServerError, httpdto.NewErrorResponse("internal error", "INTERNAL_ERROR"))
	}
}
