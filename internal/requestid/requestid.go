// Package requestid tags every request with a correlation ID.
package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header carries the ID in both directions.
	Header     = "X-Request-Id"
	contextKey = "request_id"
	maxLength  = 64
)

// Middleware reuses a sane incoming X-Request-Id or generates a new UUID,
// stores it in the context and echoes it on the response.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" || len(id) > maxLength {
			id = uuid.NewString()
		}
		c.Set(contextKey, id)
		c.Header(Header, id)
		c.Next()
	}
}

// Get returns the request ID, or "" outside the middleware.
func Get(c *gin.Context) string {
	return c.GetString(contextKey)
}
