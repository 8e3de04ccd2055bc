package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/jrsteele09/go-chat-auth/identity"
	"github.com/jrsteele09/go-chat-auth/internal/errors"
	"github.com/jrsteele09/go-chat-auth/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Session is the authenticated identity of one client. An empty Token means
// the client is not signed in.
type Session struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Email        string `json:"email"`
	UserID       string `json:"userId"`
	ExpiresIn    string `json:"expiresIn"` // Seconds as reported by the identity endpoint; not enforced
}

// IsAuthenticated reports whether the session holds a bearer token.
func (s Session) IsAuthenticated() bool {
	return s.Token != ""
}

// Authenticator is the identity endpoint the store talks to.
type Authenticator interface {
	SignInWithPassword(ctx context.Context, email, password string) (*identity.SignInResponse, error)
	SignUp(ctx context.Context, email, password string) (*identity.SignUpResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.RefreshResponse, error)
}

// Store owns the Session and the last AuthError of one client.
//
// Login and SignUp supersede each other: starting an attempt cancels the one
// still in flight, and a superseded attempt changes neither Session nor
// AuthError.
type Store struct {
	identity  Authenticator
	repo      storage.Repo
	namespace string
	observer  Observer
	refreshes singleflight.Group

	mu      sync.Mutex
	session Session
	authErr AuthError
	attempt uint64
	cancel  context.CancelFunc
}

// NewStore creates a store that persists under namespace in repo.
func NewStore(authenticator Authenticator, repo storage.Repo, namespace string, options ...Option) (*Store, error) {
	if authenticator == nil {
		return nil, errors.New("[session NewStore] authenticator is required")
	}
	if repo == nil {
		return nil, errors.New("[session NewStore] storage repo is required")
	}
	if namespace == "" {
		return nil, errors.New("[session NewStore] namespace is required")
	}
	s := &Store{
		identity:  authenticator,
		repo:      repo,
		namespace: namespace,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Namespace returns the storage namespace of this store.
func (s *Store) Namespace() string {
	return s.namespace
}

// Session returns a copy of the current session.
func (s *Store) Session() Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Error returns the outcome of the most recent Login or SignUp.
func (s *Store) Error() AuthError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authErr
}

func (s *Store) IsAuthenticated() bool {
	return s.Session().IsAuthenticated()
}

// idle reports whether the store holds nothing worth keeping in memory.
func (s *Store) idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.session.IsAuthenticated() && s.authErr.IsZero() && s.cancel == nil
}

// Login verifies the credentials and, on success, replaces the session and
// writes it to durable storage. On failure the session is left as it was and
// Error describes what went wrong.
func (s *Store) Login(ctx context.Context, email, password string) bool {
	attemptCtx, id := s.begin(ctx)
	resp, err := s.identity.SignInWithPassword(attemptCtx, email, password)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finish(id) {
		log.Debug().Str("namespace", s.namespace).Msg("login attempt superseded")
		s.observe(OpLogin, OutcomeSuperseded)
		return false
	}

	if err != nil {
		s.observe(OpLogin, s.recordError(LoginErrors, err, "login"))
		return false
	}

	s.session = Session{
		Token:        resp.IDToken,
		Email:        resp.Email,
		UserID:       resp.LocalID,
		RefreshToken: resp.RefreshToken,
		ExpiresIn:    resp.ExpiresIn,
	}
	if err := s.persist(ctx); err != nil {
		log.Err(err).Str("namespace", s.namespace).Msg("Failed to persist session")
	}
	s.observe(OpLogin, OutcomeSuccess)
	return true
}

// SignUp registers the credentials. It never changes the session; callers
// log in separately.
func (s *Store) SignUp(ctx context.Context, email, password string) bool {
	attemptCtx, id := s.begin(ctx)
	_, err := s.identity.SignUp(attemptCtx, email, password)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.finish(id) {
		log.Debug().Str("namespace", s.namespace).Msg("sign up attempt superseded")
		s.observe(OpSignUp, OutcomeSuperseded)
		return false
	}

	if err != nil {
		s.observe(OpSignUp, s.recordError(SignUpErrors, err, "sign up"))
		return false
	}
	s.observe(OpSignUp, OutcomeSuccess)
	return true
}

// Logout clears the session and its durable copy. Error is not touched. Any
// attempt in flight is superseded.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supersede()
	s.session = Session{}

	if err := s.repo.Delete(ctx, s.namespace, storage.SessionKeys...); err != nil {
		return fmt.Errorf("[session Logout] failed to clear storage: %w", err)
	}
	return nil
}

// Restore loads a previously persisted session. A namespace without a stored
// token is not an error. The user id is not persisted and is recovered from
// the token claims when possible.
func (s *Store) Restore(ctx context.Context) error {
	values := make(map[string]string, len(storage.SessionKeys))
	for _, key := range storage.SessionKeys {
		value, err := s.repo.Get(ctx, s.namespace, key)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("[session Restore] %w", err)
		}
		values[key] = value
	}

	if values[storage.KeyUserToken] == "" {
		return nil
	}

	restored := Session{
		Token:        values[storage.KeyUserToken],
		RefreshToken: values[storage.KeyRefreshToken],
		Email:        values[storage.KeyEmail],
		ExpiresIn:    values[storage.KeyExpiresIn],
	}
	if claims, err := identity.PeekClaims(restored.Token); err == nil {
		restored.UserID = claims.UserID
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = restored
	return nil
}

// Refresh renews the bearer token with the refresh token and persists the
// result. AuthError is not touched. Concurrent calls share one exchange, run
// with the context of the first caller.
func (s *Store) Refresh(ctx context.Context) error {
	_, err, _ := s.refreshes.Do(string(OpRefresh), func() (any, error) {
		err := s.refresh(ctx)
		s.observe(OpRefresh, refreshOutcome(err))
		return nil, err
	})
	return err
}

func (s *Store) refresh(ctx context.Context) error {
	current := s.Session()
	if !current.IsAuthenticated() {
		return errors.Wrapf(errors.ErrNotAuthenticated, "[session Refresh]")
	}
	if current.RefreshToken == "" {
		return errors.Wrapf(errors.ErrNoRefreshToken, "[session Refresh]")
	}

	resp, err := s.identity.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return fmt.Errorf("[session Refresh] %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session.RefreshToken != current.RefreshToken {
		// A login or logout happened while the exchange was running.
		return errors.Wrapf(errors.ErrSuperseded, "[session Refresh]")
	}

	s.session.Token = resp.IDToken
	if resp.RefreshToken != "" {
		s.session.RefreshToken = resp.RefreshToken
	}
	if resp.UserID != "" {
		s.session.UserID = resp.UserID
	}
	s.session.ExpiresIn = resp.ExpiresIn
	return s.persist(ctx)
}

func refreshOutcome(err error) Outcome {
	var apiErr *identity.APIError
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, errors.ErrSuperseded):
		return OutcomeSuperseded
	case errors.Is(err, context.Canceled):
		return OutcomeCancelled
	case errors.As(err, &apiErr), errors.Is(err, errors.ErrNotAuthenticated), errors.Is(err, errors.ErrNoRefreshToken):
		return OutcomeRejected
	default:
		return OutcomeUnavailable
	}
}

func (s *Store) observe(op Op, outcome Outcome) {
	if s.observer != nil {
		s.observer.Observe(op, outcome)
	}
}

// begin clears AuthError and starts a new attempt, cancelling the previous one.
func (s *Store) begin(ctx context.Context) (context.Context, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.supersede()
	s.authErr = AuthError{}
	attemptCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return attemptCtx, s.attempt
}

// supersede invalidates the attempt in flight, if any. s.mu must be held.
func (s *Store) supersede() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.attempt++
}

// finish reports whether id is still the current attempt and releases its
// context. s.mu must be held.
func (s *Store) finish(id uint64) bool {
	if s.attempt != id {
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return true
}

// recordError maps err into AuthError. s.mu must be held.
func (s *Store) recordError(table ErrorTable, err error, op string) Outcome {
	logger := log.Err(err).Str("namespace", s.namespace)

	var apiErr *identity.APIError
	switch {
	case errors.Is(err, context.Canceled):
		logger.Msgf("%s cancelled", op)
		return OutcomeCancelled
	case errors.As(err, &apiErr):
		s.authErr = table.Lookup(apiErr.Code)
		logger.Str("code", string(apiErr.Code)).Msgf("%s rejected", op)
		return OutcomeRejected
	default:
		s.authErr = transportAuthError
		logger.Msgf("%s failed", op)
		return OutcomeUnavailable
	}
}

// persist writes the four durable keys. s.mu must be held.
func (s *Store) persist(ctx context.Context) error {
	values := map[string]string{
		storage.KeyUserToken:    s.session.Token,
		storage.KeyRefreshToken: s.session.RefreshToken,
		storage.KeyEmail:        s.session.Email,
		storage.KeyExpiresIn:    s.session.ExpiresIn,
	}
	for _, key := range storage.SessionKeys {
		if err := s.repo.Set(ctx, s.namespace, key, values[key]); err != nil {
			return fmt.Errorf("[session persist] %s: %w", key, err)
		}
	}
	return nil
}
