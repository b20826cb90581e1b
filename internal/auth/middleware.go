package auth

import (
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/catalog/internal/entities"
)

// Context keys for user data
const (
	ContextKeyUser     = "auth_user"
	ContextKeyAuthType = "auth_type" // "session", "bearer" or "none"
	ContextKeyDemoMode = "demo_mode" // set by the demo package
)

// AuthType indicates how the user was authenticated
type AuthType string

const (
	AuthTypeNone    AuthType = "none"
	AuthTypeSession AuthType = "session"
	AuthTypeBearer  AuthType = "bearer"
)

// LoginPath is where anonymous browser requests are sent.
const LoginPath = "/login/"

// Middleware identifies the user of each request and guards routes.
type Middleware struct {
	service        *Service
	sessionManager *SessionManager
	tokens         *TokenManager
	forbidden      ForbiddenRenderer
}

// NewMiddleware creates a new authentication middleware. sessionManager
// and tokens may be nil to disable that authentication method.
func NewMiddleware(service *Service, sessionManager *SessionManager, tokens *TokenManager) *Middleware {
	return &Middleware{
		service:        service,
		sessionManager: sessionManager,
		tokens:         tokens,
	}
}

// Handler loads the current user, if any, into the context. It never
// rejects a request: guards such as RequireLogin do that per route.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextKeyAuthType, AuthTypeNone)

		if user := m.tryBearerAuth(c); user != nil {
			setUser(c, user, AuthTypeBearer)
		} else if user := m.trySessionAuth(c); user != nil {
			setUser(c, user, AuthTypeSession)
		}
		c.Next()
	}
}

func (m *Middleware) tryBearerAuth(c *gin.Context) *entities.User {
	token := bearerToken(c)
	if token == "" || m.tokens == nil {
		return nil
	}
	claims, err := m.tokens.Parse(token)
	if err != nil {
		return nil
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil
	}
	user, err := m.service.GetUserByID(userID)
	if err != nil || !user.IsActive {
		return nil
	}
	return user
}

func (m *Middleware) trySessionAuth(c *gin.Context) *entities.User {
	if m.sessionManager == nil {
		return nil
	}
	userID := m.sessionManager.GetUserID(c.Request)
	if userID == 0 {
		return nil
	}
	user, err := m.service.GetUserByID(userID)
	if err != nil || !user.IsActive {
		return nil
	}
	return user
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func setUser(c *gin.Context, user *entities.User, authType AuthType) {
	c.Set(ContextKeyUser, user)
	c.Set(ContextKeyAuthType, authType)
}

// IsAPIRequest determines if this is an API request vs web browser request.
func IsAPIRequest(c *gin.Context) bool {
	if strings.HasPrefix(c.Request.URL.Path, "/api/") {
		return true
	}
	if strings.Contains(c.GetHeader("Accept"), "application/json") {
		return true
	}
	return c.GetHeader("Authorization") != ""
}

// RequireLogin sends anonymous users to the login page (401 for API calls).
func (m *Middleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentUser(c) == nil {
			abortUnauthenticated(c)
			return
		}
		c.Next()
	}
}

// RequirePermission allows the request when the user holds perm.
// Anonymous users are asked to log in; everyone else gets 403.
func (m *Middleware) RequirePermission(perm string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortUnauthenticated(c)
			return
		}
		if !m.service.HasPermission(user, perm) {
			m.abortForbidden(c, "You do not have permission to perform this action.")
			return
		}
		c.Next()
	}
}

// RequireRole allows the request when the user's profile has one of the roles.
func (m *Middleware) RequireRole(roles ...entities.Role) gin.HandlerFunc {
	allowed := make(map[entities.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortUnauthenticated(c)
			return
		}
		if !allowed[user.Role()] {
			m.abortForbidden(c, "Your role does not allow access to this page.")
			return
		}
		c.Next()
	}
}

// RequireStaff guards the admin area.
func (m *Middleware) RequireStaff() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			abortUnauthenticated(c)
			return
		}
		if !user.CanAccessAdmin() {
			m.abortForbidden(c, "Staff access required.")
			return
		}
		c.Next()
	}
}

func abortUnauthenticated(c *gin.Context) {
	if IsAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	c.Redirect(http.StatusFound, LoginPath+"?next="+url.QueryEscape(c.Request.URL.RequestURI()))
	c.Abort()
}

// ForbiddenRenderer writes the 403 page for browser requests.
type ForbiddenRenderer func(c *gin.Context, message string)

// SetForbiddenRenderer lets the HTTP layer show the site's own 403 template.
func (m *Middleware) SetForbiddenRenderer(fn ForbiddenRenderer) {
	m.forbidden = fn
}

func (m *Middleware) abortForbidden(c *gin.Context, message string) {
	if IsAPIRequest(c) {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "message": message})
		return
	}
	if m.forbidden != nil {
		m.forbidden(c, message)
	} else {
		c.Data(http.StatusForbidden, "text/html; charset=utf-8",
			[]byte("<!DOCTYPE html><html><head><title>403 Forbidden</title></head><body><h1>403 Forbidden</h1><p>"+
				html.EscapeString(message)+"</p></body></html>"))
	}
	c.Abort()
}

// CurrentUser returns the authenticated user or nil.
func CurrentUser(c *gin.Context) *entities.User {
	if v, exists := c.Get(ContextKeyUser); exists {
		if user, ok := v.(*entities.User); ok {
			return user
		}
	}
	return nil
}

// GetUserID returns the authenticated user's ID, 0 when anonymous.
func GetUserID(c *gin.Context) uint {
	if user := CurrentUser(c); user != nil {
		return user.ID
	}
	return 0
}

// GetAuthType retrieves the authentication method used.
func GetAuthType(c *gin.Context) AuthType {
	if t, exists := c.Get(ContextKeyAuthType); exists {
		if authType, ok := t.(AuthType); ok {
			return authType
		}
	}
	return AuthTypeNone
}
