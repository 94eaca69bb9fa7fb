package httpapi

import (
	"context"
	"crypto/subtle"
	"net"
	"net/http"
	"strings"
	"time"

	"lernhilfe/internal/session"
)

const sessionCookie = "lh_session"

// csrfHeader is the header alternative to the _csrf form field.
const csrfHeader = "X-CSRF-Token"

// safeMethods never require a CSRF token.
var safeMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodOptions: true,
}

type ctxKey string

const ctxSessionKey ctxKey = "session"

// sessionFrom returns the request's session snapshot. withSession
// guarantees one exists on every route.
func sessionFrom(r *http.Request) session.Session {
	return r.Context().Value(ctxSessionKey).(session.Session)
}

// withSession attaches a session to every request, creating one (and its
// CSRF token) on first contact. Cookies with a bad signature or an expired
// token are replaced by a fresh anonymous session.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sess session.Session
		var ok bool
		if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
			if tok, valid := s.Sessions.Verify(c.Value); valid {
				sess, ok = s.Sessions.Get(tok)
			}
		}
		if !ok {
			fresh, err := s.Sessions.New()
			if err != nil {
				s.Logger.Error("create session", "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "server error"})
				return
			}
			sess = *fresh
			s.setSessionCookie(w, sess.Token)
		}
		ctx := context.WithValue(r.Context(), ctxSessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withCSRF rejects unsafe-method requests whose token does not exactly
// match the session's stored token. Rejection happens before any handler
// runs, so a failed check has zero side effects.
func (s *Server) withCSRF(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if safeMethods[r.Method] {
			next.ServeHTTP(w, r)
			return
		}
		sess := sessionFrom(r)
		got := r.Header.Get(csrfHeader)
		if got == "" {
			// FormValue only consumes the body for form content types.
			got = r.FormValue("_csrf")
		}
		if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(sess.CSRFToken)) != 1 {
			http.Error(w, "Invalid CSRF token", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireUserPage gates page routes: anonymous visitors are redirected to
// the login page with the access error flag.
func (s *Server) requireUserPage(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionFrom(r).User == nil {
			http.Redirect(w, r, "/auth/login?error="+string(flashAccess), http.StatusFound)
			return
		}
		next(w, r)
	}
}

// requireUserAPI gates API routes with a 401 JSON body.
func (s *Server) requireUserAPI(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionFrom(r).User == nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
			return
		}
		next(w, r)
	}
}

// clientIP resolves the best-effort client address: first hop of
// X-Forwarded-For, else the transport peer, else "unknown".
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = strings.TrimSpace(r.RemoteAddr)
	}
	if host == "" {
		return "unknown"
	}
	return host
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    s.Sessions.Sign(token),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((12 * time.Hour).Seconds()),
	})
}

func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("x-content-type-options", "nosniff")
		w.Header().Set("x-frame-options", "DENY")
		w.Header().Set("referrer-policy", "no-referrer")
		next.ServeHTTP(w, r)
	})
}
