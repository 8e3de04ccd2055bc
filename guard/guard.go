// Package guard decides whether a navigation may proceed given the client's
// authentication state.
package guard

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

const (
	PathIndex  = "/"
	PathLogin  = "/auth/login"
	PathSignUp = "/auth/sign-up"
	PathChat   = "/chat"
)

// Route is one entry of the route table. Auth marks routes that need a
// signed in client.
type Route struct {
	Path string
	Auth bool
}

// Table lists the known routes.
type Table []Route

// DefaultTable is the route table of the chat application.
var DefaultTable = Table{
	{Path: PathIndex, Auth: false},
	{Path: PathLogin, Auth: false},
	{Path: PathSignUp, Auth: false},
	{Path: PathChat, Auth: true},
}

func (t Table) lookup(path string) (Route, bool) {
	for _, route := range t {
		if route.Path == path {
			return route, true
		}
	}
	return Route{}, false
}

// Decision is the outcome of a navigation check. Location is only set when
// Redirect is true.
type Decision struct {
	Redirect bool
	Location string
}

// Proceed lets the navigation continue unchanged.
var Proceed = Decision{}

func redirectTo(location string) Decision {
	return Decision{Redirect: true, Location: location}
}

// Guard applies a route table.
type Guard struct {
	table     Table
	loginPath string
	homePath  string
	authPages map[string]struct{}
}

// New creates a guard over table. A nil table means DefaultTable.
func New(table Table) *Guard {
	if table == nil {
		table = DefaultTable
	}
	return &Guard{
		table:     table,
		loginPath: PathLogin,
		homePath:  PathChat,
		authPages: map[string]struct{}{
			PathLogin:  {},
			PathSignUp: {},
		},
	}
}

// Decide checks a navigation to path. Unknown paths are treated as public.
func (g *Guard) Decide(path string, authenticated bool) Decision {
	route, ok := g.table.lookup(path)
	if !ok {
		route = Route{Path: path}
	}

	if route.Auth {
		if !authenticated {
			return redirectTo(g.loginPath)
		}
		return Proceed
	}

	if authenticated {
		if _, isAuthPage := g.authPages[path]; isAuthPage {
			return redirectTo(g.homePath)
		}
	}
	return Proceed
}

// Middleware runs Decide before every request. Redirects use 303 See Other,
// or an HX-Redirect header when the request comes from htmx.
func (g *Guard) Middleware(isAuthenticated func(*http.Request) bool) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			decision := g.Decide(r.URL.Path, isAuthenticated(r))
			if !decision.Redirect {
				next(w, r)
				return
			}

			log.Debug().Str("from", r.URL.Path).Str("to", decision.Location).Msg("guard redirect")
			if r.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", decision.Location)
				w.WriteHeader(http.StatusNoContent)
				return
			}
			http.Redirect(w, r, decision.Location, http.StatusSeeOther)
		}
	}
}
