package web

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/catalog/internal/entities"
	"github.com/mrlokans/catalog/internal/forms"
)

func TestTemplates_EmbeddedPagesExist(t *testing.T) {
	tmpl, err := Templates("")
	require.NoError(t, err)

	pages := []string{
		"home", "books", "book_detail", "book_form", "book_confirm_delete",
		"authors", "author_form", "libraries", "library_detail",
		"shelf_books", "shelf_form", "shelf_confirm_delete",
		"admin_view", "librarian_view", "member_view",
		"login", "logout", "register", "profile",
		"403", "404", "error", "admin_index", "admin_changelist", "admin_detail",
	}
	for _, name := range pages {
		assert.NotNil(t, tmpl.Lookup(name), name)
	}
}

func TestTemplates_RenderHome(t *testing.T) {
	tmpl, err := Templates("")
	require.NoError(t, err)

	author := &entities.Author{Name: "Orwell"}
	data := map[string]any{
		"Title":          "Home",
		"TotalBooks":     int64(1),
		"TotalLibraries": int64(2),
		"RecentBooks":    []entities.Book{{Title: "1984", Author: author}},
		"CurrentUser":    &entities.User{Username: "ann", IsActive: true},
		"CSRFToken":      "tok",
		"CSRFFieldName":  "csrf",
	}

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "home", data))
	assert.Contains(t, buf.String(), "1 books in 2 libraries")
	assert.Contains(t, buf.String(), "1984 by Orwell")
	assert.Contains(t, buf.String(), `value="tok"`)
}

func TestTemplates_FieldErrors(t *testing.T) {
	tmpl, err := Templates("")
	require.NoError(t, err)

	data := map[string]any{
		"Title":  "Add author",
		"Form":   struct{ Name string }{Name: ""},
		"Errors": forms.Errors{"name": "This field is required."},
	}

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "author_form", data))
	assert.Contains(t, buf.String(), "This field is required.")
	assert.Contains(t, buf.String(), "Log in")
}

func TestTemplates_Override(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "home.html"), []byte(`{{define "home"}}custom {{add 1 2}}{{end}}`), 0o644))

	tmpl, err := Templates(dir)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tmpl.ExecuteTemplate(&buf, "home", nil))
	assert.Equal(t, "custom 3", buf.String())
	assert.Nil(t, tmpl.Lookup("books"))
}

func TestTemplates_MissingOverride(t *testing.T) {
	_, err := Templates(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestFuncMap(t *testing.T) {
	funcs := FuncMap()
	year := 1949

	assert.Equal(t, "1949", funcs["year"].(func(*int) string)(&year))
	assert.Equal(t, "", funcs["year"].(func(*int) string)(nil))
	assert.Equal(t, "", funcs["fieldError"].(func(forms.Errors, string) string)(nil, "title"))
}

func TestStatic(t *testing.T) {
	w := httptest.NewRecorder()
	http.FileServer(Static()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/style.css", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "font-family")
}
