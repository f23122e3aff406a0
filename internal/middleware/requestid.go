package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// HeaderRequestID is the request id header echoed on every response
	HeaderRequestID = "X-Request-ID"

	// ContextRequestID is the gin context key holding the request id
	ContextRequestID = "request_id"
)

// RequestID tags each request with an identifier, reusing the caller's if one
// was sent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(HeaderRequestID)
		if rid == "" {
			rid = uuid.New().String()
		}

		c.Set(ContextRequestID, rid)
		c.Header(HeaderRequestID, rid)
		c.Next()
	}
}
