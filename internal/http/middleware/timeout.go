package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/http/dto"
)

// Timeout bounds the request context. Handlers that have not written a
// response when the deadline fires get a 408.
func Timeout(d time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			logger.Warn("Request has timed out",
				zap.String("path", c.Request.URL.Path),
				zap.Duration("timeout", d))
			c.AbortWithStatusJSON(http.StatusRequestTimeout, dto.ErrorResponse{
				Code:  http.StatusRequestTimeout,
				Error: "Request has timed out.",
			})
		}
	}
}
