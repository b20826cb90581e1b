package auth

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/database"
	"github.com/mrlokans/catalog/internal/entities"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const testPassword = "correct-horse-battery"

var testAuthConfig = config.Auth{
	SessionLifetime:  time.Hour,
	BcryptCost:       bcrypt.MinCost,
	MaxLoginAttempts: 3,
	RateLimitWindow:  time.Minute,
	LockoutDuration:  time.Minute,
	JWTSecret:        "jwt-test-secret",
	JWTIssuer:        "catalog",
	JWTTTL:           time.Hour,
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.NewDatabase(config.Database{
		Driver:   config.DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "auth.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.DB
}

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	return NewService(db, testAuthConfig), db
}

func registerUser(t *testing.T, svc *Service, email string, role entities.Role) *entities.User {
	t.Helper()
	username := strings.SplitN(email, "@", 2)[0]
	user, err := svc.Register(RegisterInput{
		Email:    email,
		Username: username,
		Password: testPassword,
		Role:     role,
	})
	require.NoError(t, err)
	return user
}

const testTemplates = `
{{define "login"}}login:{{.Error}}{{end}}
{{define "logout"}}logged out{{end}}
{{define "register"}}register:{{range $field, $msg := .Errors}}{{$field}}={{$msg}};{{end}}{{end}}
`

// testEnv wires the auth stack the way the HTTP router does.
type testEnv struct {
	db         *gorm.DB
	service    *Service
	sessions   *SessionManager
	tokens     *TokenManager
	middleware *Middleware
	controller *AuthController
	router     *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	svc, db := setupTestService(t)
	sessions := NewSessionManager(nil, testAuthConfig)
	tokens := NewTokenManager(testAuthConfig.JWTSecret, testAuthConfig.JWTIssuer, testAuthConfig.JWTTTL)
	mw := NewMiddleware(svc, sessions, tokens)
	controller := NewAuthController(svc, sessions, tokens, nil, testAuthConfig, t.TempDir())
	t.Cleanup(controller.Stop)

	router := gin.New()
	router.SetHTMLTemplate(template.Must(template.New("").Parse(testTemplates)))
	router.Use(sessions.SessionLoadSave())
	router.Use(mw.Handler())
	controller.RegisterRoutes(router)

	ok := func(c *gin.Context) { c.String(http.StatusOK, "ok") }
	router.GET("/protected/", mw.RequireLogin(), ok)
	router.GET("/admin_view/", mw.RequireRole(entities.RoleAdmin), ok)
	router.GET("/librarian_view/", mw.RequireRole(entities.RoleLibrarian), ok)
	router.POST("/books/:id/delete/", mw.RequirePermission(entities.PermDeleteBook), ok)
	router.GET("/staff/", mw.RequireStaff(), ok)
	router.GET("/api/me", mw.RequireLogin(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"email": CurrentUser(c).Email, "auth": GetAuthType(c)})
	})

	return &testEnv{
		db:         db,
		service:    svc,
		sessions:   sessions,
		tokens:     tokens,
		middleware: mw,
		controller: controller,
		router:     router,
	}
}

// client replays cookies between requests like a browser.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, handler http.Handler) *client {
	return &client{t: t, handler: handler, cookies: map[string]*http.Cookie{}}
}

func (cl *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, cookie := range cl.cookies {
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	cl.handler.ServeHTTP(w, req)
	for _, cookie := range w.Result().Cookies() {
		if cookie.MaxAge < 0 {
			delete(cl.cookies, cookie.Name)
			continue
		}
		cl.cookies[cookie.Name] = cookie
	}
	return w
}

func (cl *client) get(path string) *httptest.ResponseRecorder {
	return cl.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (cl *client) postForm(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return cl.do(req)
}

func (cl *client) login(email string) {
	cl.t.Helper()
	w := cl.postForm("/login/", url.Values{"email": {email}, "password": {testPassword}})
	require.Equal(cl.t, http.StatusFound, w.Code, w.Body.String())
}
