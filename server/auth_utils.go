package server

import (
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-chat-auth/session"
)

// SetClientCookie stores the client id that keys the browser's session.
func (s *Server) SetClientCookie(w http.ResponseWriter, r *http.Request, clientID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.config.GetClientCookieName(),
		Value:    clientID,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.GetClientCookieMaxAge().Seconds()),
	})
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError helper for htmx-aware error redirects. The email is kept
// so the form can be refilled.
func redirectWithError(w http.ResponseWriter, r *http.Request, path string, authErr session.AuthError, email string) {
	query := url.Values{}
	query.Set("error", authErr.Message)
	if authErr.Field != session.FieldNone {
		query.Set("field", string(authErr.Field))
	}
	if email != "" {
		query.Set("email", email)
	}
	redirectSuccess(w, r, path+"?"+query.Encode())
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
