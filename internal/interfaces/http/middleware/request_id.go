package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/careplane/careplane/pkg/constants"
)

// RequestID assigns every request a correlation ID, honoring one supplied by
// the caller, and propagates it through the request context and the response
// header.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(constants.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		c.Set(string(constants.ContextKeyRequestID), requestID)
		ctx := context.WithValue(c.Request.Context(), constants.ContextKeyRequestID, requestID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(constants.HeaderRequestID, requestID)

		c.Next()
	}
}
