package server

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-chat-auth/session"
	"github.com/rs/zerolog/log"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClientID stores the browser's client id
	ContextKeyClientID ContextKey = "client_id"
	// ContextKeyStore stores the client's *session.Store
	ContextKeyStore ContextKey = "session_store"
)

// ClientSessionMiddleware identifies the browser by its client cookie, issuing
// a new id when none is present, and attaches that client's session store to
// the request context. The store is released when the request ends.
func (s *Server) ClientSessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := ""
		if cookie, err := r.Cookie(s.config.GetClientCookieName()); err == nil {
			if _, err := uuid.Parse(cookie.Value); err == nil {
				clientID = cookie.Value
			}
		}
		if clientID == "" {
			clientID = uuid.NewString()
			s.SetClientCookie(w, r, clientID)
		}

		store, err := s.registry.Get(r.Context(), clientID)
		if err != nil {
			log.Err(err).Str("client_id", clientID).Msg("Failed to load client session")
			http.Error(w, "503 - Service Unavailable", http.StatusServiceUnavailable)
			return
		}
		defer s.registry.Release(clientID)

		ctx := context.WithValue(r.Context(), ContextKeyClientID, clientID)
		ctx = context.WithValue(ctx, ContextKeyStore, store)
		next(w, r.WithContext(ctx))
	}
}

// storeFromRequest returns the store attached by ClientSessionMiddleware.
func storeFromRequest(r *http.Request) (*session.Store, bool) {
	store, ok := r.Context().Value(ContextKeyStore).(*session.Store)
	return store, ok && store != nil
}

func isAuthenticated(r *http.Request) bool {
	store, ok := storeFromRequest(r)
	return ok && store.IsAuthenticated()
}
