package server

import (
	"html/template"
	"net/http"
	"net/url"

	"github.com/jrsteele09/go-chat-auth/forms"
	"github.com/jrsteele09/go-chat-auth/session"
	"github.com/rs/zerolog/log"
)

const contentTypeHTML = "text/html; charset=utf-8"

// PageData contains data for rendering the auth pages
type PageData struct {
	AppName string
	Error   string
	Field   string // Input to highlight: "email", "password" or empty
	Email   string // Preserve email on error
	Notice  string
	Session session.Session
}

func (s *Server) pageData(r *http.Request) PageData {
	query := r.URL.Query()
	data := PageData{
		AppName: s.config.GetAppName(),
		Error:   query.Get("error"),
		Field:   query.Get("field"),
		Email:   query.Get("email"),
		Notice:  query.Get("notice"),
	}
	if store, ok := storeFromRequest(r); ok {
		data.Session = store.Session()
	}
	return data
}

// credentialsFromForm reads and validates the login/sign up form.
func credentialsFromForm(r *http.Request) (forms.Credentials, *session.AuthError) {
	if err := r.ParseForm(); err != nil {
		return forms.Credentials{}, &session.AuthError{Message: "Invalid form data"}
	}
	creds := forms.Credentials{
		Email:    r.FormValue("email"),
		Password: r.FormValue("password"),
	}.Normalize()

	if err := creds.Validate(); err != nil {
		return creds, validationAuthError(err)
	}
	return creds, nil
}

func validationAuthError(err error) *session.AuthError {
	field, message := forms.FirstError(err)
	authErr := &session.AuthError{Message: message}
	switch field {
	case string(session.FieldEmail):
		authErr.Field = session.FieldEmail
	case string(session.FieldPassword):
		authErr.Field = session.FieldPassword
	}
	return authErr
}

// mustParseTemplate parses an embedded template at route registration.
func mustParseTemplate(name string) *template.Template {
	tmpl, err := ParseTemplate(name)
	if err != nil {
		panic("Failed to parse " + name + " template: " + err.Error())
	}
	return tmpl
}

func renderPage(w http.ResponseWriter, tmpl *template.Template, data PageData) {
	w.Header().Set("Content-Type", contentTypeHTML)
	if err := tmpl.Execute(w, data); err != nil {
		log.Err(err).Str("template", tmpl.Name()).Msg("Failed to render template")
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// LoginPageHandler displays the login page (GET /auth/login)
func (s *Server) LoginPageHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("login.html")
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, tmpl, s.pageData(r))
	}
}

// LoginSubmissionHandler processes the login form submission
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFromRequest(r)
		if !ok {
			http.Error(w, "session not started", http.StatusBadRequest)
			return
		}

		creds, invalid := credentialsFromForm(r)
		if invalid != nil {
			redirectWithError(w, r, RouteAuthLogin, *invalid, creds.Email)
			return
		}

		if !store.Login(r.Context(), creds.Email, creds.Password) {
			authErr := store.Error()
			if authErr.IsZero() {
				// Superseded by another attempt from the same client
				redirectSuccess(w, r, RouteAuthLogin)
				return
			}
			redirectWithError(w, r, RouteAuthLogin, authErr, creds.Email)
			return
		}

		redirectSuccess(w, r, RouteChat)
	}
}

// LogoutHandler clears the client's session and returns to the login page
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFromRequest(r)
		if ok {
			if err := store.Logout(r.Context()); err != nil {
				log.Err(err).Str("namespace", store.Namespace()).Msg("Logout: failed to clear storage")
			}
		}
		redirectSuccess(w, r, RouteAuthLogin)
	}
}

func noticeURL(path, notice, email string) string {
	query := url.Values{}
	query.Set("notice", notice)
	if email != "" {
		query.Set("email", email)
	}
	return path + "?" + query.Encode()
}
