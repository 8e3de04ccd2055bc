package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-chat-auth/forms"
	"github.com/jrsteele09/go-chat-auth/identity"
	"github.com/jrsteele09/go-chat-auth/internal/errors"
	"github.com/jrsteele09/go-chat-auth/session"
	"github.com/rs/zerolog/log"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	maxBodyBytes    = 1 << 16
)

// SessionResponse is the JSON view of a client's state.
type SessionResponse struct {
	Authenticated bool               `json:"authenticated"`
	Session       *session.Session   `json:"session,omitempty"`
	Error         *session.AuthError `json:"error,omitempty"`
	Fields        map[string]string  `json:"fields,omitempty"`
	Claims        *identity.Claims   `json:"claims,omitempty"`
}

func newSessionResponse(store *session.Store) SessionResponse {
	current := store.Session()
	resp := SessionResponse{Authenticated: current.IsAuthenticated()}
	if resp.Authenticated {
		resp.Session = &current
	}
	if authErr := store.Error(); !authErr.IsZero() {
		resp.Error = &authErr
	}
	return resp
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// writeJSONError writes a plain error response
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, SessionResponse{Error: &session.AuthError{Message: message}})
}

// decodeCredentials reads a JSON credentials body. When ok is false the
// request was already answered.
func decodeCredentials(w http.ResponseWriter, r *http.Request) (forms.Credentials, bool) {
	var creds forms.Credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&creds); err != nil {
		writeJSONError(w, "Invalid request body", http.StatusBadRequest)
		return creds, false
	}
	creds = creds.Normalize()
	if err := creds.Validate(); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, SessionResponse{
			Error:  validationAuthError(err),
			Fields: forms.FieldErrors(err),
		})
		return creds, false
	}
	return creds, true
}

func apiStore(w http.ResponseWriter, r *http.Request) (*session.Store, bool) {
	store, ok := storeFromRequest(r)
	if !ok {
		writeJSONError(w, "session not started", http.StatusBadRequest)
	}
	return store, ok
}

// APILoginHandler signs the client in (POST /api/login)
func (s *Server) APILoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := apiStore(w, r)
		if !ok {
			return
		}
		creds, ok := decodeCredentials(w, r)
		if !ok {
			return
		}

		if !store.Login(r.Context(), creds.Email, creds.Password) {
			status := http.StatusUnauthorized
			if store.Error().IsZero() {
				status = http.StatusConflict // Superseded by a newer attempt
			}
			writeJSON(w, status, newSessionResponse(store))
			return
		}
		writeJSON(w, http.StatusOK, newSessionResponse(store))
	}
}

// APISignUpHandler registers an account (POST /api/sign-up)
func (s *Server) APISignUpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := apiStore(w, r)
		if !ok {
			return
		}
		creds, ok := decodeCredentials(w, r)
		if !ok {
			return
		}

		if !store.SignUp(r.Context(), creds.Email, creds.Password) {
			status := http.StatusBadRequest
			if store.Error().IsZero() {
				status = http.StatusConflict
			}
			writeJSON(w, status, newSessionResponse(store))
			return
		}
		writeJSON(w, http.StatusCreated, newSessionResponse(store))
	}
}

// APILogoutHandler clears the client's session (POST /api/logout)
func (s *Server) APILogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := apiStore(w, r)
		if !ok {
			return
		}
		if err := store.Logout(r.Context()); err != nil {
			log.Err(err).Str("namespace", store.Namespace()).Msg("Logout: failed to clear storage")
			writeJSONError(w, "Failed to clear session", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// APIRefreshHandler exchanges the refresh token for a new ID token (POST /api/refresh)
func (s *Server) APIRefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := apiStore(w, r)
		if !ok {
			return
		}

		err := store.Refresh(r.Context())
		var apiErr *identity.APIError
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, newSessionResponse(store))
		case errors.Is(err, errors.ErrNotAuthenticated), errors.Is(err, errors.ErrNoRefreshToken):
			writeJSONError(w, "not authenticated", http.StatusUnauthorized)
		case errors.Is(err, errors.ErrSuperseded):
			writeJSONError(w, "session changed during refresh", http.StatusConflict)
		case errors.As(err, &apiErr):
			log.Err(err).Str("namespace", store.Namespace()).Msg("Refresh rejected")
			writeJSONError(w, string(apiErr.Code), http.StatusUnauthorized)
		default:
			log.Err(err).Str("namespace", store.Namespace()).Msg("Refresh failed")
			writeJSONError(w, "identity service unavailable", http.StatusBadGateway)
		}
	}
}

// APISessionHandler reports the client's session, its last AuthError and the
// token claims (GET /api/session)
func (s *Server) APISessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		store, ok := apiStore(w, r)
		if !ok {
			return
		}

		resp := newSessionResponse(store)
		if resp.Authenticated {
			claims, err := s.claims(r, resp.Session.Token)
			if err != nil {
				log.Err(err).Str("namespace", store.Namespace()).Msg("Failed to read token claims")
			}
			resp.Claims = claims
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// claims verifies the token when a verifier is configured and otherwise
// only decodes it.
func (s *Server) claims(r *http.Request, token string) (*identity.Claims, error) {
	if s.verifier != nil {
		return s.verifier.Verify(r.Context(), token)
	}
	return identity.PeekClaims(token)
}
