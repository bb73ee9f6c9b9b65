package middleware

import (
	"net/http"
	"strconv"

	redislimiter "roamly-chat/internal/redis"
	"roamly-chat/internal/services"
	"roamly-chat/internal/transport/httpdto"
	roamly_errors "roamly-chat/pkg/errors"

	"github.com/gin-gonic/gin"
)

// MessageRateLimit caps message sends per user. With no limiter configured
// (no Redis), sends pass through unmetered.
func MessageRateLimit(limiter *redislimiter.RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		userID, ok := services.UserIDFromContext(c.Request.Context())
		if !ok {
			c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
			c.Abort()
			return
		}

		result, err := limiter.AllowMessage(c.Request.Context(), userID.String())
		if err != nil {
			// Redis trouble must not take messaging down with it.
			c.Next()
			return
		}
		if !result.Allowed {
			c.Header("Retry-After", strconv.Itoa(int(result.ResetIn.Seconds())))
			c.JSON(http.StatusTooManyRequests, httpdto.NewErrorResponse(roamly_errors.ErrRateLimited.Error(), "RATE_LIMITED"))
			c.Abort()
			return
		}
		c.Next()
	}
}
