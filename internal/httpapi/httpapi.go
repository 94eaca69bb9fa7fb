// Package httpapi exposes the web routes and JSON API of Lernhilfe.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"lernhilfe/internal/auth"
	"lernhilfe/internal/session"
	"lernhilfe/internal/store"
	"lernhilfe/internal/validate"
	"lernhilfe/internal/web"
)

// flashCode is the closed set of error/success flags carried in redirect
// query strings.
type flashCode string

const (
	flashRequired    flashCode = "required"
	flashMismatch    flashCode = "mismatch"
	flashWeakPass    flashCode = "password"
	flashBadUsername flashCode = "username"
	flashExists      flashCode = "exists"
	flashFileError   flashCode = "file"
	flashRateLimit   flashCode = "ratelimit"
	flashInvalid     flashCode = "invalid"
	flashAccess      flashCode = "access"
	flashNoName      flashCode = "noname"
	flashNoID        flashCode = "noID"
	flashNotFound    flashCode = "notfound"

	flashCreated flashCode = "created"
	flashLogin   flashCode = "login"
	flashDeleted flashCode = "deleted"
)

// Server wires the stores, session manager, and renderer into HTTP
// handlers. All dependencies are injected; there is no package state.
type Server struct {
	Users     *store.Users
	Documents *store.Documents
	Sessions  *session.Manager
	Renderer  *web.Renderer
	Logger    *slog.Logger

	BindAddr string
	Port     int

	// Login throttle; zero values fall back to 5 attempts per minute.
	LoginAttemptLimit int
	LoginWindow       time.Duration

	limiter *loginLimiter
}

// Router builds the chi handler tree with the full middleware chain.
func (s *Server) Router() (http.Handler, error) {
	if s.Users == nil || s.Documents == nil || s.Sessions == nil || s.Renderer == nil {
		return nil, errors.New("users, documents, sessions, and renderer are required")
	}
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.limiter == nil {
		limit, window := s.LoginAttemptLimit, s.LoginWindow
		if limit <= 0 {
			limit = 5
		}
		if window <= 0 {
			window = time.Minute
		}
		s.limiter = newLoginLimiter(limit, window)
	}

	assets, err := web.Assets()
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(s.withRecover)
	r.Use(s.withRequestLog)
	r.Use(withSecurityHeaders)
	r.Use(s.withSession)
	r.Use(s.withCSRF)

	r.Handle("/assets/*", http.StripPrefix("/assets/", http.FileServer(http.FS(assets))))

	r.Get("/", s.handleIndex)
	r.Get("/auth/login", s.handlePage("login"))
	r.Get("/auth/register", s.handlePage("register"))
	r.Get("/about", s.handlePage("about"))
	r.Get("/timer", s.handlePage("timer"))

	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/login", s.handleLogin)
	r.Post("/auth/logout", s.handleLogout)

	r.Get("/subjects", s.requireUserPage(s.handleSubjectsPage))
	r.Get("/subjects/{id}", s.requireUserPage(s.handleSubjectPage))
	r.Get("/grades", s.requireUserPage(s.handleGradesPage))
	r.Get("/todo", s.requireUserPage(s.handleTodoPage))

	r.Post("/subjects/add", s.requireUserPage(s.handleSubjectAdd))
	r.Post("/subjects/delete", s.requireUserPage(s.handleSubjectDelete))
	r.Post("/subjects/{id}/save", s.requireUserAPI(s.handleSubjectSave))

	r.Get("/api/subjects", s.requireUserAPI(s.handleAPISubjects))
	r.Get("/api/grades", s.requireUserAPI(s.handleAPIGrades))
	r.Post("/api/grades", s.requireUserAPI(s.handleAPIGradeCreate))
	r.Delete("/api/grades/{id}", s.requireUserAPI(s.handleAPIGradeDelete))

	return r, nil
}

// ListenAndServe runs the HTTP server until it fails or ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	h, err := s.Router()
	if err != nil {
		return err
	}
	httpServer := &http.Server{
		Addr:              s.BindAddr + ":" + strconv.Itoa(s.Port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
		s.limiter.Stop()
		return ctx.Err()
	case err := <-errCh:
		s.limiter.Stop()
		return err
	}
}

// handleIndex sends visitors to their subjects or to the login page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if sessionFrom(r).User != nil {
		http.Redirect(w, r, "/subjects", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/auth/login", http.StatusFound)
}

// handleRegister creates an account and its empty data document.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	prename := r.FormValue("prename")
	lastname := r.FormValue("lastname")
	username := r.FormValue("username")
	passwordone := r.FormValue("passwordone")
	passwordtwo := r.FormValue("passwordtwo")

	if !validate.AllPresent(prename, lastname, username, passwordone, passwordtwo) {
		s.redirectError(w, r, "/auth/register", flashRequired)
		return
	}
	if passwordone != passwordtwo {
		s.redirectError(w, r, "/auth/register", flashMismatch)
		return
	}
	if !auth.IsStrong(passwordone) {
		s.redirectError(w, r, "/auth/register", flashWeakPass)
		return
	}

	prename = trimmed(prename)
	lastname = trimmed(lastname)
	username = trimmed(username)
	if err := validate.Username(username); err != nil {
		s.redirectError(w, r, "/auth/register", flashBadUsername)
		return
	}

	_, exists, err := s.Users.FindByUsername(username)
	if err != nil {
		s.serverErrorRedirect(w, r, "/auth/register", err)
		return
	}
	if exists {
		s.redirectError(w, r, "/auth/register", flashExists)
		return
	}

	hash, err := auth.HashPassword(passwordone)
	if err != nil {
		s.serverErrorRedirect(w, r, "/auth/register", err)
		return
	}
	err = s.Users.Create(store.User{
		Prename:      prename,
		Lastname:     lastname,
		Username:     username,
		PasswordHash: hash,
	})
	if errors.Is(err, store.ErrExists) {
		s.redirectError(w, r, "/auth/register", flashExists)
		return
	}
	if err != nil {
		s.serverErrorRedirect(w, r, "/auth/register", err)
		return
	}

	if err := s.Documents.Init(username); err != nil {
		s.Logger.Error("init user document", "username", username, "error", err)
		s.redirectError(w, r, "/auth/register", flashFileError)
		return
	}

	s.redirectSuccess(w, r, "/auth/login", flashCreated)
}

// handleLogin authenticates a user. The throttle runs before any
// credential work.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.limiter.IsLimited(clientIP(r)) {
		s.redirectError(w, r, "/auth/login", flashRateLimit)
		return
	}

	username := trimmed(r.FormValue("username"))
	password := r.FormValue("password")
	if username == "" || password == "" {
		s.redirectError(w, r, "/auth/login", flashRequired)
		return
	}

	candidate, ok, err := s.Users.FindByUsername(username)
	if err != nil {
		s.serverErrorRedirect(w, r, "/auth/login", err)
		return
	}
	if !ok || !auth.VerifyPassword(password, candidate.PasswordHash) {
		s.redirectError(w, r, "/auth/login", flashInvalid)
		return
	}

	s.Sessions.SetUser(sessionFrom(r).Token, session.Profile{
		Prename:  candidate.Prename,
		Lastname: candidate.Lastname,
		Username: candidate.Username,
	})
	s.redirectSuccess(w, r, "/subjects", flashLogin)
}

// handleLogout destroys the session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Sessions.Destroy(sessionFrom(r).Token)
	clearSessionCookie(w)
	http.Redirect(w, r, "/auth/login", http.StatusFound)
}

// handleAPISubjects returns the user's subjects as a JSON array.
func (s *Server) handleAPISubjects(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Documents.Load(sessionFrom(r).User.Username)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc.Subjects)
}

// handleAPIGrades returns the user's grades as a JSON array.
func (s *Server) handleAPIGrades(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Documents.Load(sessionFrom(r).User.Username)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc.Grades)
}

// handleAPIGradeCreate adds a grade with a server-assigned id. Locked
// defaults to false.
func (s *Server) handleAPIGradeCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject string   `json:"subject"`
		Date    string   `json:"date"`
		Grade   *float64 `json:"grade"`
		Title   string   `json:"title"`
		Locked  bool     `json:"locked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Subject == "" || req.Date == "" || req.Grade == nil || req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Missing fields"})
		return
	}

	var created store.Grade
	err := s.Documents.Update(sessionFrom(r).User.Username, func(doc *store.Document) error {
		created = *doc.AddGrade(req.Subject, req.Date, *req.Grade, req.Title, req.Locked)
		return nil
	})
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// handleAPIGradeDelete removes an unlocked grade. Locked grades are
// refused with 403 and stay in place.
func (s *Server) handleAPIGradeDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	err := s.Documents.Update(sessionFrom(r).User.Username, func(doc *store.Document) error {
		return doc.DeleteGrade(id)
	})
	switch {
	case errors.Is(err, store.ErrGradeLocked):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "Locked grade cannot be deleted"})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Not found"})
	case err != nil:
		s.apiError(w, r, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleSubjectAdd creates a subject from the overview form.
func (s *Server) handleSubjectAdd(w http.ResponseWriter, r *http.Request) {
	name := trimmed(r.FormValue("name"))
	if name == "" {
		s.redirectError(w, r, "/subjects", flashNoName)
		return
	}
	err := s.Documents.Update(sessionFrom(r).User.Username, func(doc *store.Document) error {
		doc.AddSubject(name)
		return nil
	})
	if err != nil {
		s.serverErrorRedirect(w, r, "/subjects", err)
		return
	}
	s.redirectSuccess(w, r, "/subjects", flashCreated)
}

// handleSubjectDelete removes a subject by id.
func (s *Server) handleSubjectDelete(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("id")
	if id == "" {
		s.redirectError(w, r, "/subjects", flashNoID)
		return
	}
	err := s.Documents.Update(sessionFrom(r).User.Username, func(doc *store.Document) error {
		if !doc.DeleteSubject(id) {
			return store.ErrNotFound
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		s.redirectError(w, r, "/subjects/"+url.PathEscape(id), flashNotFound)
		return
	}
	if err != nil {
		s.serverErrorRedirect(w, r, "/subjects", err)
		return
	}
	s.redirectSuccess(w, r, "/subjects", flashDeleted)
}

// handleSubjectSave overwrites a subject's editable fields from the
// detail-page editor.
func (s *Server) handleSubjectSave(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		ExamDate string       `json:"examDate"`
		Todos    []store.Todo `json:"todos"`
		Notes    string       `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	for i := range req.Todos {
		prio, err := store.ParsePriority(string(req.Todos[i].Prio))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid priority"})
			return
		}
		req.Todos[i].Prio = prio
	}

	err := s.Documents.Update(sessionFrom(r).User.Username, func(doc *store.Document) error {
		subject := doc.FindSubject(id)
		if subject == nil {
			return store.ErrNotFound
		}
		subject.ExamDate = req.ExamDate
		subject.Todos = req.Todos
		subject.Note = req.Notes
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Subject not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// apiError logs a storage failure and responds with a generic 500 body.
func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error) {
	s.Logger.Error("storage error", "path", r.URL.Path, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Serverfehler"})
}

// serverErrorRedirect logs a storage failure on a form route and redirects
// with the generic file error flag.
func (s *Server) serverErrorRedirect(w http.ResponseWriter, r *http.Request, path string, err error) {
	s.Logger.Error("storage error", "path", r.URL.Path, "error", err)
	s.redirectError(w, r, path, flashFileError)
}

func (s *Server) redirectError(w http.ResponseWriter, r *http.Request, path string, code flashCode) {
	http.Redirect(w, r, path+"?error="+url.QueryEscape(string(code)), http.StatusFound)
}

func (s *Server) redirectSuccess(w http.ResponseWriter, r *http.Request, path string, code flashCode) {
	http.Redirect(w, r, path+"?success="+url.QueryEscape(string(code)), http.StatusFound)
}

func trimmed(s string) string {
	return strings.TrimSpace(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
