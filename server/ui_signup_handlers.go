package server

import (
	"net/http"
)

const noticeSignedUp = "Регистрация прошла успешно, войдите в аккаунт"

// SignupGetHandler renders the signup page
func (s *Server) SignupGetHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("signup.html")
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, tmpl, s.pageData(r))
	}
}

// SignupPostHandler registers the account and sends the user to the login
// page. Sign up never signs the client in.
func (s *Server) SignupPostHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := storeFromRequest(r)
		if !ok {
			http.Error(w, "session not started", http.StatusBadRequest)
			return
		}

		creds, invalid := credentialsFromForm(r)
		if invalid != nil {
			redirectWithError(w, r, RouteAuthSignUp, *invalid, creds.Email)
			return
		}

		if !store.SignUp(r.Context(), creds.Email, creds.Password) {
			authErr := store.Error()
			if authErr.IsZero() {
				redirectSuccess(w, r, RouteAuthSignUp)
				return
			}
			redirectWithError(w, r, RouteAuthSignUp, authErr, creds.Email)
			return
		}

		redirectSuccess(w, r, noticeURL(RouteAuthLogin, noticeSignedUp, creds.Email))
	}
}
