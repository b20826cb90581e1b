package http

import (
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

	"github.com/mrlokans/catalog/internal/admin"
	"github.com/mrlokans/catalog/internal/audit"
	"github.com/mrlokans/catalog/internal/auth"
	"github.com/mrlokans/catalog/internal/config"
	"github.com/mrlokans/catalog/internal/database"
	auditrepo "github.com/mrlokans/catalog/internal/database/audit"
	"github.com/mrlokans/catalog/internal/database/catalog"
	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/metrics"
)

const testPassword = "correct-horse-battery"

var testAuthConfig = config.Auth{
	SessionLifetime:  time.Hour,
	BcryptCost:       bcrypt.MinCost,
	MaxLoginAttempts: 5,
	RateLimitWindow:  time.Minute,
	LockoutDuration:  time.Minute,
	JWTSecret:        "jwt-test-secret",
	JWTIssuer:        "catalog",
	JWTTTL:           time.Hour,
}

// testEnv is the full router over a temporary SQLite database with a
// small catalog: two authors, three books, two libraries.
type testEnv struct {
	db      *database.Database
	service *auth.Service
	catalog *catalog.Repository
	audit   *audit.Service
	tokens  *auth.TokenManager
	router  *gin.Engine

	orwell *entities.Author
	books  []*entities.Book
	city   *entities.Library
	annex  *entities.Library
}

// newTestEnv accepts options that adjust the router config before the
// router is built.
func newTestEnv(t *testing.T, options ...func(*RouterConfig)) *testEnv {
	t.Helper()
	db, err := database.NewDatabase(config.Database{
		Driver:   config.DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "catalog.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := auth.NewService(db.DB, testAuthConfig)
	sessions := auth.NewSessionManager(nil, testAuthConfig)
	tokens := auth.NewTokenManager(testAuthConfig.JWTSecret, testAuthConfig.JWTIssuer, testAuthConfig.JWTTTL)
	auditSvc := audit.NewService(auditrepo.NewRepository(db.DB))
	mediaDir := t.TempDir()
	controller := auth.NewAuthController(svc, sessions, tokens, auditSvc, testAuthConfig, mediaDir)
	t.Cleanup(controller.Stop)

	repo := catalog.NewRepository(db.DB)
	site := admin.NewDefaultSite(admin.Options{
		Catalog:     repo,
		Users:       svc.Users(),
		Audit:       auditSvc,
		Permissions: svc.Permissions(),
		Roles:       svc,
	})
	rc := RouterConfig{
		Database:       db,
		Catalog:        repo,
		Users:          svc.Users(),
		Audit:          auditSvc,
		AuthService:    svc,
		SessionManager: sessions,
		AuthMiddleware: auth.NewMiddleware(svc, sessions, tokens),
		AuthController: controller,
		Tokens:         tokens,
		Admin:          site,
		Metrics:        metrics.New(),
		MediaDir:       mediaDir,
		Version:        "test",
	}
	for _, option := range options {
		option(&rc)
	}
	router, err := NewRouter(rc)
	require.NoError(t, err)

	env := &testEnv{db: db, service: svc, catalog: repo, audit: auditSvc, tokens: tokens, router: router}

	env.orwell = &entities.Author{Name: "George Orwell"}
	require.NoError(t, repo.CreateAuthor(env.orwell))
	austen := &entities.Author{Name: "Jane Austen"}
	require.NoError(t, repo.CreateAuthor(austen))

	for _, b := range []entities.Book{
		{Title: "1984", AuthorID: env.orwell.ID},
		{Title: "Animal Farm", AuthorID: env.orwell.ID},
		{Title: "Emma", AuthorID: austen.ID},
	} {
		book := b
		require.NoError(t, repo.CreateBook(&book))
		env.books = append(env.books, &book)
	}

	env.city = &entities.Library{Name: "City Library"}
	require.NoError(t, repo.CreateLibrary(env.city))
	require.NoError(t, repo.AddBooks(env.city.ID, env.books[0].ID, env.books[1].ID))
	env.annex = &entities.Library{Name: "Annex"}
	require.NoError(t, repo.CreateLibrary(env.annex))

	return env
}

// user registers an account with the given role and adds it to groups.
func (env *testEnv) user(t *testing.T, email string, role entities.Role, groups ...string) *entities.User {
	t.Helper()
	user, err := env.service.Register(auth.RegisterInput{
		Email:     email,
		Username:  strings.SplitN(email, "@", 2)[0],
		Password:  testPassword,
		FirstName: "Test",
		LastName:  string(role),
		Role:      role,
	})
	require.NoError(t, err)
	for _, group := range groups {
		require.NoError(t, env.service.Permissions().AddUserToGroup(user.ID, group))
	}
	return user
}

func (env *testEnv) staff(t *testing.T, email string) *entities.User {
	t.Helper()
	user := env.user(t, email, entities.RoleAdmin)
	require.NoError(t, env.db.DB.Model(user).Update("is_staff", true).Error)
	return user
}

func (env *testEnv) bearer(t *testing.T, user *entities.User) string {
	t.Helper()
	token, _, err := env.tokens.Issue(user)
	require.NoError(t, err)
	return "Bearer " + token
}

// client replays cookies between requests like a browser.
type client struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func (env *testEnv) client(t *testing.T) *client {
	return &client{t: t, handler: env.router, cookies: map[string]*http.Cookie{}}
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

func (cl *client) login(email string) *client {
	cl.t.Helper()
	w := cl.postForm("/login/", url.Values{"email": {email}, "password": {testPassword}})
	require.Equal(cl.t, http.StatusFound, w.Code, w.Body.String())
	return cl
}

func apiGet(t *testing.T, env *testEnv, path, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}
