// Package view renders the server-side HTML pages. Every page template is
// parsed together with layout.html and fills its "content" block.
package view

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/homeowner/portal/internal/core/domain"
)

//go:embed templates
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Flash is a one-shot message carried across a redirect.
type Flash struct {
	Success string
	Error   string
}

// Page is the data handed to every template.
type Page struct {
	Title     string
	Principal *domain.Principal
	CSRF      string
	Flash     Flash
	// Form echoes submitted values back into the form.
	Form interface{}
	// Errors holds field messages; the "" key is the form-level summary.
	Errors map[string]string
	Data   interface{}
}

// FieldError returns the message for field, if any.
func (p Page) FieldError(field string) string {
	return p.Errors[field]
}

// SummaryError returns the form-level message, if any.
func (p Page) SummaryError() string {
	return p.Errors[""]
}

// Renderer implements echo.Renderer over the embedded templates.
type Renderer struct {
	pages map[string]*template.Template
}

var _ echo.Renderer = (*Renderer)(nil)

var funcs = template.FuncMap{
	"join": strings.Join,
	"fmtTime": func(t time.Time) string {
		if t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	},
	"fmtTimePtr": func(t *time.Time) string {
		if t == nil || t.IsZero() {
			return "never"
		}
		return t.UTC().Format("2006-01-02 15:04:05 UTC")
	},
	"roles": func() []string { return domain.Roles },
}

// New parses every page under templates/. Page names are their paths
// without the extension, e.g. "account/login".
func New() (*Renderer, error) {
	r := &Renderer{pages: make(map[string]*template.Template)}
	err := fs.WalkDir(templateFS, "templates", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || p == layoutFile || path.Ext(p) != ".html" {
			return nil
		}
		t, err := template.New(path.Base(layoutFile)).Funcs(funcs).ParseFS(templateFS, layoutFile, p)
		if err != nil {
			return fmt.Errorf("parse %s: %w", p, err)
		}
		name := strings.TrimSuffix(strings.TrimPrefix(p, "templates/"), ".html")
		r.pages[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Has reports whether a page called name exists.
func (r *Renderer) Has(name string) bool {
	_, ok := r.pages[name]
	return ok
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}

// ErrorData backs the error page.
type ErrorData struct {
	Status    int
	Message   string
	RequestID string
}
