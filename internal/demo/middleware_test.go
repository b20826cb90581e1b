package demo

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/mrlokans/catalog/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(m *Middleware) *gin.Engine {
	router := gin.New()
	router.Use(m.Handler())
	ok := func(c *gin.Context) {
		c.String(http.StatusOK, "demo=%v", c.GetBool(auth.ContextKeyDemoMode))
	}
	router.GET("/books/", ok)
	router.POST("/books/add/", ok)
	router.POST("/login/", ok)
	router.POST("/api/auth/token", ok)
	router.OPTIONS("/api/books", ok)
	return router
}

func serve(router *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(""))
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestDisabledPassesEverything(t *testing.T) {
	m := NewMiddleware(false, nil)
	assert.False(t, m.IsEnabled())

	w := serve(newRouter(m), http.MethodPost, "/books/add/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "demo=false", w.Body.String())
}

func TestEnabledAllowsReads(t *testing.T) {
	router := newRouter(NewMiddleware(true, nil))

	w := serve(router, http.MethodGet, "/books/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "demo=true", w.Body.String())

	w = serve(router, http.MethodOptions, "/api/books", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEnabledAllowsSignIn(t *testing.T) {
	router := newRouter(NewMiddleware(true, nil))

	for _, path := range []string{"/login/", "/api/auth/token"} {
		w := serve(router, http.MethodPost, path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestEnabledBlocksWrites(t *testing.T) {
	var rendered string
	router := newRouter(NewMiddleware(true, func(c *gin.Context, message string) {
		rendered = message
		c.String(http.StatusForbidden, "page: "+message)
	}))

	w := serve(router, http.MethodPost, "/books/add/", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, BlockedMessage, rendered)
	assert.Equal(t, "page: "+BlockedMessage, w.Body.String())
}

func TestEnabledBlocksWritesAsJSON(t *testing.T) {
	router := newRouter(NewMiddleware(true, nil))

	w := serve(router, http.MethodPost, "/books/add/", http.Header{"Accept": {"application/json"}})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.JSONEq(t, `{"error": "`+BlockedMessage+`", "demo_mode": true}`, w.Body.String())
}

func TestEnabledBlocksWritesAsText(t *testing.T) {
	router := newRouter(NewMiddleware(true, nil))

	w := serve(router, http.MethodPost, "/books/add/", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, BlockedMessage, w.Body.String())
}
