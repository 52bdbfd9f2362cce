package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xaenox/nutrobo/internal/auth"
	"github.com/xaenox/nutrobo/internal/http/dto"
)

// Auth verifies the Authorization header and stores the identity on the
// request context.
func Auth(verifier auth.Verifier, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		id, err := verifier.Verify(ctx, auth.Request{
			Authorization: c.GetHeader("Authorization"),
			UID:           c.Query("uid"),
		})
		if err != nil {
			logger.Warn("Authorization failed",
				zap.Error(err),
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetString(requestIDKey)))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.ErrorResponse{
				Code:  http.StatusUnauthorized,
				Error: err.Error(),
			})
			return
		}
		c.Request = c.Request.WithContext(auth.WithIdentity(ctx, id))
		c.Next()
	}
}
