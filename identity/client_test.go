package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/go-chat-auth/identity"
	"github.com/jrsteele09/go-chat-auth/internal/config"
	"github.com/jrsteele09/go-chat-auth/internal/errors"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-api-key"

type testIdentityConfig struct {
	baseURL  string
	tokenURL string
	apiKey   string
}

var _ config.IdentityConfig = testIdentityConfig{}

func (c testIdentityConfig) GetAPIKey() string { return c.apiKey }
func (c testIdentityConfig) GetProjectID() string { return "" }
func (c testIdentityConfig) GetIdentityBaseURL() string { return c.baseURL }
func (c testIdentityConfig) GetSecureTokenURL() string { return c.tokenURL }
func (c testIdentityConfig) GetIdentityTimeout() time.Duration { return 0 }

func newTestClient(t *testing.T, handler http.HandlerFunc) *identity.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := identity.NewClient(testIdentityConfig{
		baseURL:  srv.URL + "/v1",
		tokenURL: srv.URL + "/token",
		apiKey:   testAPIKey,
	})
	require.NoError(t, err)
	return c
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": status, "message": message},
	})
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := identity.NewClient(testIdentityConfig{baseURL: "http://localhost"})
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrMissingAPIKey))
}

func TestSignInWithPassword(t *testing.T) {
	t.Run("sends the documented request", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/v1/accounts:signInWithPassword", r.URL.Path)
			require.Equal(t, testAPIKey, r.URL.Query().Get("key"))

			var req identity.PasswordRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			require.Equal(t, "e@x.com", req.Email)
			require.Equal(t, "secret-password", req.Password)
			require.True(t, req.ReturnSecureToken)

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"idToken":"t","email":"e@x.com","localId":"u1","refreshToken":"r","expiresIn":"3600","registered":true}`))
		})

		resp, err := c.SignInWithPassword(context.Background(), "e@x.com", "secret-password")
		require.NoError(t, err)
		require.Equal(t, "t", resp.IDToken)
		require.Equal(t, "e@x.com", resp.Email)
		require.Equal(t, "u1", resp.LocalID)
		require.Equal(t, "r", resp.RefreshToken)
		require.Equal(t, "3600", resp.ExpiresIn)
	})

	t.Run("structured error", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusBadRequest, "EMAIL_NOT_FOUND")
		})

		_, err := c.SignInWithPassword(context.Background(), "e@x.com", "secret-password")
		var apiErr *identity.APIError
		require.True(t, errors.As(err, &apiErr))
		require.Equal(t, identity.CodeEmailNotFound, apiErr.Code)
		require.Equal(t, http.StatusBadRequest, apiErr.Status)
	})

	t.Run("unstructured error body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		})

		_, err := c.SignInWithPassword(context.Background(), "e@x.com", "secret-password")
		require.Error(t, err)
		require.True(t, errors.Is(err, errors.ErrUnexpectedResponse))
		var apiErr *identity.APIError
		require.False(t, errors.As(err, &apiErr))
	})

	t.Run("transport failure", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		c, err := identity.NewClient(testIdentityConfig{baseURL: srv.URL, apiKey: testAPIKey})
		require.NoError(t, err)

		_, err = c.SignInWithPassword(context.Background(), "e@x.com", "secret-password")
		require.True(t, errors.Is(err, errors.ErrTransport))
	})
}

func TestSignUp(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/accounts:signUp", r.URL.Path)
		writeError(w, http.StatusBadRequest, "WEAK_PASSWORD : Password should be at least 6 characters")
	})

	_, err := c.SignUp(context.Background(), "e@x.com", "weak")
	var apiErr *identity.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, identity.CodeWeakPassword, apiErr.Code)
	require.Contains(t, apiErr.Message, "at least 6 characters")
}

func TestParseErrorCode(t *testing.T) {
	require.Equal(t, identity.CodeEmailExists, identity.ParseErrorCode("EMAIL_EXISTS"))
	require.Equal(t, identity.CodeWeakPassword, identity.ParseErrorCode("WEAK_PASSWORD : Password should be at least 6 characters"))
	require.Equal(t, identity.ErrorCode(""), identity.ParseErrorCode(""))
}
