// Package web holds the HTML templates and static assets. They are
// embedded into the binary; TEMPLATES_PATH points at a directory of
// *.html files to use instead.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/mrlokans/catalog/internal/forms"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// FuncMap is shared by every template.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"add": func(a, b int) int {
			return a + b
		},
		"subtract": func(a, b int) int {
			return a - b
		},
		"date": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"year": func(y *int) string {
			if y == nil {
				return ""
			}
			return fmt.Sprintf("%d", *y)
		},
		"fieldError": func(errs forms.Errors, field string) string {
			if errs == nil {
				return ""
			}
			return errs[field]
		},
	}
}

// Templates parses the embedded templates, or the *.html files under
// overridePath when it is set.
func Templates(overridePath string) (*template.Template, error) {
	tmpl := template.New("").Funcs(FuncMap())
	if overridePath != "" {
		if _, err := os.Stat(overridePath); err != nil {
			return nil, fmt.Errorf("templates path %s: %w", overridePath, err)
		}
		return tmpl.ParseGlob(filepath.Join(overridePath, "*.html"))
	}
	return tmpl.ParseFS(templateFS, "templates/*.html")
}

// Static serves the embedded assets.
func Static() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}
