// Package demo puts the site in read-only mode for public demo
// deployments: pages and the API stay browsable but nothing can change.
package demo

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/auth"
)

// BlockedMessage is shown for every rejected write.
const BlockedMessage = "This action is disabled in demo mode."

// allowedPaths accept writes even in demo mode so visitors can sign in.
var allowedPaths = []string{
	"/login/",
	"/logout/",
	"/api/auth/token",
}

// Middleware blocks write operations in demo mode.
type Middleware struct {
	enabled bool
	blocked func(c *gin.Context, message string)
}

// NewMiddleware creates a demo mode middleware. blocked renders the HTML
// response for rejected requests; nil falls back to plain text.
func NewMiddleware(enabled bool, blocked func(c *gin.Context, message string)) *Middleware {
	return &Middleware{enabled: enabled, blocked: blocked}
}

// IsEnabled returns whether demo mode is active.
func (m *Middleware) IsEnabled() bool {
	return m.enabled
}

// Handler returns a Gin middleware that flags the request for templates and
// rejects writes.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.enabled {
			c.Next()
			return
		}
		c.Set(auth.ContextKeyDemoMode, true)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}
		if isAllowedPath(c.Request.URL.Path) {
			c.Next()
			return
		}
		m.respondBlocked(c)
	}
}

func isAllowedPath(path string) bool {
	for _, allowed := range allowedPaths {
		if strings.HasPrefix(path, allowed) {
			return true
		}
	}
	return false
}

func (m *Middleware) respondBlocked(c *gin.Context) {
	defer c.Abort()

	if auth.IsAPIRequest(c) {
		c.JSON(http.StatusForbidden, gin.H{
			"error":     BlockedMessage,
			"demo_mode": true,
		})
		return
	}
	if m.blocked != nil {
		m.blocked(c, BlockedMessage)
		return
	}
	c.String(http.StatusForbidden, BlockedMessage)
}
