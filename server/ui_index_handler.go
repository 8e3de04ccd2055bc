package server

import (
	"net/http"
)

// IndexHandler renders the home page
func (s *Server) IndexHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("index.html")
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, tmpl, s.pageData(r))
	}
}

// ChatHandler renders the protected chat page. The route guard has already
// sent anonymous clients to the login page.
func (s *Server) ChatHandler() http.HandlerFunc {
	tmpl := mustParseTemplate("chat.html")
	return func(w http.ResponseWriter, r *http.Request) {
		renderPage(w, tmpl, s.pageData(r))
	}
}
