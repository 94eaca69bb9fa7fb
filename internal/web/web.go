// Package web embeds the HTML templates and static assets and renders
// pages. It is presentation glue; all invariants live in the core packages.
package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"

	"lernhilfe/internal/session"
	"lernhilfe/internal/store"
)

//go:embed templates/*.html assets
var content embed.FS

// Page carries everything a template may need. CSRFToken must be embedded
// in every form that posts back.
type Page struct {
	CSRFToken   string
	CurrentUser *session.Profile
	Error       string
	Success     string

	Subjects   []store.Subject
	Subject    *store.Subject
	Average    float64
	HasAverage bool
}

// Renderer executes named page templates.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	t, err := template.ParseFS(content, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tmpl: t}, nil
}

// Render writes the named page.
func (r *Renderer) Render(w io.Writer, page string, data Page) error {
	return r.tmpl.ExecuteTemplate(w, page+".html", data)
}

// Assets returns the embedded static asset tree rooted at assets/.
func Assets() (fs.FS, error) {
	return fs.Sub(content, "assets")
}
