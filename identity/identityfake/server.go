// Package identityfake runs an in-process stand-in for the Identity Toolkit
// and secure token endpoints.
package identityfake

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-chat-auth/internal/config"
)

const (
	APIKey     = "fake-api-key"
	ProjectID  = "fake-project"
	tokenLife  = time.Hour
	minimumLen = 6
)

type user struct {
	localID  string
	password string
	disabled bool
}

// Server is a fake identity backend with in-memory accounts.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	users         map[string]*user  // email -> account
	refreshTokens map[string]string // refresh token -> email
	failNext      []string
	key           *keyPair
	hold          chan struct{}
	calls         map[string]int
}

// New starts the fake server. Callers must Close it. It panics if no signing
// key can be generated.
func New() *Server {
	key, err := signingKey()
	if err != nil {
		panic("identityfake: " + err.Error())
	}
	s := &Server{
		users:         make(map[string]*user),
		refreshTokens: make(map[string]string),
		key:           key,
		calls:         make(map[string]int),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/accounts:signInWithPassword", s.withKey(s.signIn))
	mux.HandleFunc("POST /v1/accounts:signUp", s.withKey(s.signUp))
	mux.HandleFunc("POST /token", s.withKey(s.token))
	mux.HandleFunc("GET /jwks", s.jwks)
	s.Server = httptest.NewServer(mux)
	return s
}

// BaseURL is the value for IDENTITY_BASE_URL.
func (s *Server) BaseURL() string {
	return s.URL + "/v1"
}

// TokenURL is the value for SECURE_TOKEN_URL.
func (s *Server) TokenURL() string {
	return s.URL + "/token"
}

// Config returns identity settings that point at s.
func (s *Server) Config() config.IdentityConfig {
	return fakeConfig{s: s}
}

type fakeConfig struct {
	s *Server
}

func (c fakeConfig) GetAPIKey() string                 { return APIKey }
func (c fakeConfig) GetProjectID() string              { return ProjectID }
func (c fakeConfig) GetIdentityBaseURL() string        { return c.s.BaseURL() }
func (c fakeConfig) GetSecureTokenURL() string         { return c.s.TokenURL() }
func (c fakeConfig) GetIdentityTimeout() time.Duration { return 5 * time.Second }

// AddUser registers an account and returns its local id.
func (s *Server) AddUser(email, password string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := uuid.NewString()
	s.users[email] = &user{localID: id, password: password}
	return id
}

// DisableUser blocks sign in for email.
func (s *Server) DisableUser(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[email]; ok {
		u.disabled = true
	}
}

// FailNext makes the next request answer with the given error message.
func (s *Server) FailNext(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = append(s.failNext, message)
}

// Hold blocks every request until the returned function is called.
func (s *Server) Hold() (release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	hold := make(chan struct{})
	s.hold = hold
	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.hold = nil
			s.mu.Unlock()
			close(hold)
		})
	}
}

// Calls returns how many requests reached the named method
// ("signInWithPassword", "signUp" or "token").
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *Server) withKey(next func(w http.ResponseWriter, r *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		hold := s.hold
		s.mu.Unlock()
		if hold != nil {
			select {
			case <-hold:
			case <-r.Context().Done():
				return
			}
		}

		if r.URL.Query().Get("key") != APIKey {
			writeError(w, http.StatusBadRequest, "API key not valid. Please pass a valid API key.")
			return
		}

		s.mu.Lock()
		if len(s.failNext) > 0 {
			message := s.failNext[0]
			s.failNext = s.failNext[1:]
			s.mu.Unlock()
			writeError(w, http.StatusBadRequest, message)
			return
		}
		s.mu.Unlock()

		next(w, r)
	}
}

type passwordRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["signInWithPassword"]++

	u, ok := s.users[req.Email]
	switch {
	case !ok:
		writeError(w, http.StatusBadRequest, "EMAIL_NOT_FOUND")
	case u.password != req.Password:
		writeError(w, http.StatusBadRequest, "INVALID_PASSWORD")
	case u.disabled:
		writeError(w, http.StatusBadRequest, "USER_DISABLED")
	default:
		s.writeTokens(w, req.Email, u)
	}
}

func (s *Server) signUp(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["signUp"]++

	if _, exists := s.users[req.Email]; exists {
		writeError(w, http.StatusBadRequest, "EMAIL_EXISTS")
		return
	}
	if len(req.Password) < minimumLen {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("WEAK_PASSWORD : Password should be at least %d characters", minimumLen))
		return
	}
	u := &user{localID: uuid.NewString(), password: req.Password}
	s.users[req.Email] = u
	s.writeTokens(w, req.Email, u)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "refresh_token" {
		writeError(w, http.StatusBadRequest, "INVALID_GRANT_TYPE")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["token"]++

	email, ok := s.refreshTokens[r.PostForm.Get("refresh_token")]
	if !ok {
		writeError(w, http.StatusBadRequest, "INVALID_REFRESH_TOKEN")
		return
	}
	u := s.users[email]
	idToken, err := s.idToken(email, u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL")
		return
	}
	refreshToken := uuid.NewString()
	delete(s.refreshTokens, r.PostForm.Get("refresh_token"))
	s.refreshTokens[refreshToken] = email

	writeJSON(w, map[string]string{
		"access_token":  idToken,
		"expires_in":    strconv.Itoa(int(tokenLife.Seconds())),
		"token_type":    "Bearer",
		"refresh_token": refreshToken,
		"id_token":      idToken,
		"user_id":       u.localID,
		"project_id":    ProjectID,
	})
}

// writeTokens answers a successful sign in or sign up. s.mu must be held.
func (s *Server) writeTokens(w http.ResponseWriter, email string, u *user) {
	idToken, err := s.idToken(email, u)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL")
		return
	}
	refreshToken := uuid.NewString()
	s.refreshTokens[refreshToken] = email

	writeJSON(w, map[string]any{
		"kind":         "identitytoolkit#VerifyPasswordResponse",
		"idToken":      idToken,
		"email":        email,
		"localId":      u.localID,
		"refreshToken": refreshToken,
		"expiresIn":    strconv.Itoa(int(tokenLife.Seconds())),
		"registered":   true,
	})
}

func (s *Server) idToken(email string, u *user) (string, error) {
	now := time.Now()
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, jwtlib.MapClaims{
		"iss":     s.Issuer(),
		"aud":     ProjectID,
		"sub":     u.localID,
		"user_id": u.localID,
		"email":   email,
		"iat":     now.Unix(),
		"exp":     now.Add(tokenLife).Unix(),
		"jti":     uuid.NewString(),
	})
	token.Header["kid"] = s.key.KeyID
	return token.SignedString(s.key.PrivateKey)
}

func writeJSON(w http.ResponseWriter, body any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    status,
			"message": message,
			"errors": []map[string]string{
				{"message": message, "domain": "global", "reason": "invalid"},
			},
		},
	})
}
