package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalog/internal/entities"
)

func TestRequireLogin_AnonymousBrowserRedirects(t *testing.T) {
	env := newTestEnv(t)

	w := newClient(t, env.router).get("/protected/?page=2")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login/?next="+url.QueryEscape("/protected/?page=2"), w.Header().Get("Location"))
}

func TestRequireLogin_AnonymousAPIUnauthorized(t *testing.T) {
	env := newTestEnv(t)

	w := newClient(t, env.router).get("/api/me")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "authentication required")
}

func TestRequireRole(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env.service, "member@example.com", entities.RoleMember)
	registerUser(t, env.service, "admin@example.com", entities.RoleAdmin)
	registerUser(t, env.service, "librarian@example.com", entities.RoleLibrarian)

	tests := []struct {
		email    string
		path     string
		wantCode int
	}{
		{"member@example.com", "/admin_view/", http.StatusForbidden},
		{"librarian@example.com", "/admin_view/", http.StatusForbidden},
		{"admin@example.com", "/admin_view/", http.StatusOK},
		{"librarian@example.com", "/librarian_view/", http.StatusOK},
		{"member@example.com", "/librarian_view/", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.email+tt.path, func(t *testing.T) {
			cl := newClient(t, env.router)
			cl.login(tt.email)

			w := cl.get(tt.path)
			assert.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestRequireRole_AnonymousRedirects(t *testing.T) {
	env := newTestEnv(t)

	w := newClient(t, env.router).get("/admin_view/")

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/login/")
}

func TestRequirePermission_DeleteBook(t *testing.T) {
	env := newTestEnv(t)
	member := registerUser(t, env.service, "reader@example.com", entities.RoleMember)

	cl := newClient(t, env.router)
	cl.login("reader@example.com")

	w := cl.postForm("/books/1/delete/", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "403")

	require.NoError(t, env.service.Permissions().Grant(member.ID, entities.PermDeleteBook))
	w = cl.postForm("/books/1/delete/", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePermission_CustomForbiddenRenderer(t *testing.T) {
	env := newTestEnv(t)
	env.middleware.SetForbiddenRenderer(func(c *gin.Context, message string) {
		c.String(http.StatusForbidden, "custom: "+message)
	})
	registerUser(t, env.service, "reader@example.com", entities.RoleMember)

	cl := newClient(t, env.router)
	cl.login("reader@example.com")

	w := cl.postForm("/books/1/delete/", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "custom: ")
}

func TestRequirePermission_APIForbiddenIsJSON(t *testing.T) {
	env := newTestEnv(t)
	user := registerUser(t, env.service, "api@example.com", entities.RoleMember)
	token, _, err := env.tokens.Issue(user)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/books/1/delete/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "forbidden", body["error"])
}

func TestRequireStaff(t *testing.T) {
	env := newTestEnv(t)
	registerUser(t, env.service, "member@example.com", entities.RoleAdmin)
	_, err := env.service.CreateSuperuser(RegisterInput{Email: "root@example.com", Username: "root", Password: testPassword})
	require.NoError(t, err)

	cl := newClient(t, env.router)
	cl.login("member@example.com")
	assert.Equal(t, http.StatusForbidden, cl.get("/staff/").Code, "role alone does not grant staff")

	cl = newClient(t, env.router)
	cl.login("root@example.com")
	assert.Equal(t, http.StatusOK, cl.get("/staff/").Code)
}

func TestHandler_BearerToken(t *testing.T) {
	env := newTestEnv(t)
	user := registerUser(t, env.service, "bearer@example.com", entities.RoleMember)
	token, _, err := env.tokens.Issue(user)
	require.NoError(t, err)

	t.Run("valid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "bearer@example.com", body["email"])
		assert.Equal(t, string(AuthTypeBearer), body["auth"])
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("deactivated user", func(t *testing.T) {
		require.NoError(t, env.db.Model(&entities.User{}).Where("id = ?", user.ID).Update("is_active", false).Error)

		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestIsAPIRequest(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		headers map[string]string
		want    bool
	}{
		{"api prefix", "/api/books", nil, true},
		{"json accept", "/books/", map[string]string{"Accept": "application/json"}, true},
		{"authorization header", "/books/", map[string]string{"Authorization": "Bearer x"}, true},
		{"browser", "/books/", map[string]string{"Accept": "text/html"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gin.CreateTestContext(httptest.NewRecorder())
			c.Request = httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.headers {
				c.Request.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, IsAPIRequest(c))
		})
	}
}
