package ratelimit

import (
	"log/slog"
	"math"
	"strconv"

	"github.com/ZanzyTHEbar/brightshare/internal/errors"
	"github.com/gin-gonic/gin"
)

// LimitedHandler responds to a blocked request. It must write the response.
type LimitedHandler func(c *gin.Context, appErr *errors.AppError)

// SubmitRateLimitMiddleware throttles submissions per client IP. Blocked requests
// are aborted and passed to onLimited, or with a nil onLimited left as a rate
// limit AppError for errors.ErrorHandler to render.
func (rl *RateLimiter) SubmitRateLimitMiddleware(onLimited LimitedHandler) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			// never block a submission because the limiter itself failed
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if !result.Allowed {
			if rl.metrics != nil {
				rl.metrics.IncrementRateLimitIPBlock()
			}

			retryAfter := strconv.Itoa(int(math.Ceil(result.RetryAfter.Seconds())))
			c.Header("Retry-After", retryAfter)
			appErr := errors.NewRateLimitError(retryAfter + "s")
			c.Abort()
			if onLimited != nil {
				errors.LogError(c, appErr)
				onLimited(c, appErr)
				return
			}
			_ = c.Error(appErr)
			return
		}

		c.Next()
	}
}
