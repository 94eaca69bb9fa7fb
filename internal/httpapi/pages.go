package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"lernhilfe/internal/web"
)

// handlePage renders a static page (login, register, about, timer) with
// the flash flags from the query string.
func (s *Server) handlePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.renderPage(w, r, name, web.Page{})
	}
}

// handleSubjectsPage renders the subject overview.
func (s *Server) handleSubjectsPage(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Documents.Load(sessionFrom(r).User.Username)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.renderPage(w, r, "subjects", web.Page{Subjects: doc.Subjects})
}

// handleSubjectPage renders one subject with its grade average.
func (s *Server) handleSubjectPage(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Documents.Load(sessionFrom(r).User.Username)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	subject := doc.FindSubject(chi.URLParam(r, "id"))
	if subject == nil {
		s.redirectError(w, r, "/subjects", flashNotFound)
		return
	}
	avg, ok := doc.AverageFor(subject.Name)
	s.renderPage(w, r, "subject", web.Page{Subject: subject, Average: avg, HasAverage: ok})
}

// handleGradesPage renders the grade overview; the grade list itself is
// fetched by the page from the JSON API.
func (s *Server) handleGradesPage(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Documents.Load(sessionFrom(r).User.Username)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.renderPage(w, r, "grades", web.Page{Subjects: doc.Subjects})
}

// handleTodoPage renders all todos grouped by subject.
func (s *Server) handleTodoPage(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Documents.Load(sessionFrom(r).User.Username)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.renderPage(w, r, "todo", web.Page{Subjects: doc.Subjects})
}

// renderPage fills the common page fields and executes the template.
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name string, data web.Page) {
	sess := sessionFrom(r)
	data.CSRFToken = sess.CSRFToken
	data.CurrentUser = sess.User
	data.Error = r.URL.Query().Get("error")
	data.Success = r.URL.Query().Get("success")

	w.Header().Set("content-type", "text/html; charset=utf-8")
	if err := s.Renderer.Render(w, name, data); err != nil {
		s.Logger.Error("render page", "page", name, "error", err)
	}
}

// pageError logs a storage failure on a page route and responds 500
// without leaking detail.
func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.Error("storage error", "path", r.URL.Path, "error", err)
	http.Error(w, "Serverfehler", http.StatusInternalServerError)
}
