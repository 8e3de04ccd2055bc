package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-chat-auth/identity"
	"github.com/jrsteele09/go-chat-auth/identity/identityfake"
	"github.com/jrsteele09/go-chat-auth/internal/config"
	"github.com/jrsteele09/go-chat-auth/internal/metrics"
	"github.com/jrsteele09/go-chat-auth/server"
	"github.com/jrsteele09/go-chat-auth/session"
	"github.com/jrsteele09/go-chat-auth/storage/inmemory"
	"github.com/stretchr/testify/require"
)

const (
	testEmail    = "e@x.com"
	testPassword = "password123"
)

type testEnv struct {
	fake     *identityfake.Server
	ts       *httptest.Server
	client   *http.Client
	registry *session.Registry
	userID   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return buildTestEnv(t, false)
}

func buildTestEnv(t *testing.T, verify bool) *testEnv {
	t.Helper()
	t.Setenv("ENV", "TEST")

	fake := identityfake.New()
	t.Cleanup(fake.Close)
	userID := fake.AddUser(testEmail, testPassword)

	identityClient, err := identity.NewClient(fake.Config())
	require.NoError(t, err)
	observer := metrics.New()
	registry, err := session.NewRegistry(identityClient, inmemory.New(), session.WithStoreOptions(session.WithObserver(observer)))
	require.NoError(t, err)

	options := []server.Option{server.WithMetricsHandler(observer.Handler())}
	if verify {
		verifier := identity.NewVerifierWithKeySet(fake.Issuer(), identityfake.ProjectID, fake.KeySet(context.Background()))
		options = append(options, server.WithVerifier(verifier))
	}

	srv, err := server.New(config.New(), registry, options...)
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{fake: fake, ts: ts, client: client, registry: registry, userID: userID}
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := e.client.Get(e.ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) postForm(t *testing.T, path, email, password string) *http.Response {
	t.Helper()
	resp, err := e.client.PostForm(e.ts.URL+path, url.Values{"email": {email}, "password": {password}})
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	resp, err := e.client.Post(e.ts.URL+path, "application/json", reader)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeSession(t *testing.T, resp *http.Response) server.SessionResponse {
	t.Helper()
	var body server.SessionResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func location(t *testing.T, resp *http.Response) *url.URL {
	t.Helper()
	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	return loc
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestGuard_AnonymousClient(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, server.RouteChat)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteAuthLogin, resp.Header.Get("Location"))

	var clientCookie *http.Cookie
	for _, c := range resp.Cookies() {
		if c.Name == "chat_client_id" {
			clientCookie = c
		}
	}
	require.NotNil(t, clientCookie)
	require.True(t, clientCookie.HttpOnly)

	require.Equal(t, http.StatusOK, env.get(t, server.RouteIndex).StatusCode)
	require.Equal(t, http.StatusOK, env.get(t, server.RouteAuthLogin).StatusCode)
	require.Equal(t, http.StatusOK, env.get(t, server.RouteAuthSignUp).StatusCode)
}

func TestClientSessions_AnonymousTrafficIsNotRetained(t *testing.T) {
	env := newTestEnv(t)
	bare := &http.Client{}

	for i := 0; i < 200; i++ {
		resp, err := bare.Get(env.ts.URL + server.RouteIndex)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	require.Eventually(t, func() bool { return env.registry.Len() == 0 }, time.Second, 10*time.Millisecond)

	// A signed in client stays; logging out releases it.
	env.postForm(t, server.RouteAuthLogin, testEmail, testPassword)
	require.Equal(t, 1, env.registry.Len())
	env.postForm(t, server.RouteAuthLogout, "", "")
	require.Equal(t, 0, env.registry.Len())
}

func TestLoginFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postForm(t, server.RouteAuthLogin, "  "+testEmail+" ", testPassword)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, server.RouteChat, resp.Header.Get("Location"))

	chat := env.get(t, server.RouteChat)
	require.Equal(t, http.StatusOK, chat.StatusCode)
	require.Contains(t, readBody(t, chat), testEmail)

	// Auth pages send a signed in client to the chat.
	for _, path := range []string{server.RouteAuthLogin, server.RouteAuthSignUp} {
		resp := env.get(t, path)
		require.Equal(t, http.StatusSeeOther, resp.StatusCode, path)
		require.Equal(t, server.RouteChat, resp.Header.Get("Location"), path)
	}
	// Other public pages proceed.
	require.Equal(t, http.StatusOK, env.get(t, server.RouteIndex).StatusCode)

	// Logging out needs a POST; a plain link or image cannot do it.
	require.Equal(t, http.StatusMethodNotAllowed, env.get(t, server.RouteAuthLogout).StatusCode)
	chat = env.get(t, server.RouteChat)
	require.Equal(t, http.StatusOK, chat.StatusCode)
	require.Contains(t, readBody(t, chat), `action="/auth/logout"`)

	logout := env.postForm(t, server.RouteAuthLogout, "", "")
	require.Equal(t, http.StatusSeeOther, logout.StatusCode)
	require.Equal(t, server.RouteAuthLogin, logout.Header.Get("Location"))

	require.Equal(t, http.StatusSeeOther, env.get(t, server.RouteChat).StatusCode)
}

func TestLogin_HTMX(t *testing.T) {
	env := newTestEnv(t)

	form := url.Values{"email": {testEmail}, "password": {testPassword}}
	req, err := http.NewRequest(http.MethodPost, env.ts.URL+server.RouteAuthLogin, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("HX-Request", "true")

	resp, err := env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, server.RouteChat, resp.Header.Get("HX-Redirect"))
}

func TestLogin_Errors(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		password string
		field    string
		message  string
		reached  bool
	}{
		{"unknown email", "nobody@x.com", testPassword, "email", "Email не найден, попробуйте другой", true},
		{"wrong password", testEmail, "wrong-password", "password", "Неверный пароль", true},
		{"invalid email", "nobody", testPassword, "email", "введеный e-mail некорректен", false},
		{"short password", testEmail, "short", "password", "Пароль должен содержать как минимум 8 символов", false},
		{"missing email", "", testPassword, "email", "e-mail обязателен", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)

			resp := env.postForm(t, server.RouteAuthLogin, tt.email, tt.password)
			require.Equal(t, http.StatusSeeOther, resp.StatusCode)
			loc := location(t, resp)
			require.Equal(t, server.RouteAuthLogin, loc.Path)
			require.Equal(t, tt.field, loc.Query().Get("field"))
			require.Equal(t, tt.message, loc.Query().Get("error"))

			if tt.reached {
				require.Equal(t, 1, env.fake.Calls("signInWithPassword"))
			} else {
				require.Equal(t, 0, env.fake.Calls("signInWithPassword"))
			}

			page := env.get(t, loc.String())
			require.Equal(t, http.StatusOK, page.StatusCode)
			require.Contains(t, readBody(t, page), "is-invalid")
		})
	}
}

func TestSignUpFlow(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postForm(t, server.RouteAuthSignUp, "new@x.com", "new-password")
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	loc := location(t, resp)
	require.Equal(t, server.RouteAuthLogin, loc.Path)
	require.Equal(t, "new@x.com", loc.Query().Get("email"))
	require.NotEmpty(t, loc.Query().Get("notice"))

	// Sign up does not sign the client in.
	require.Equal(t, http.StatusSeeOther, env.get(t, server.RouteChat).StatusCode)

	resp = env.postForm(t, server.RouteAuthLogin, "new@x.com", "new-password")
	require.Equal(t, server.RouteChat, resp.Header.Get("Location"))
}

func TestSignUp_EmailExists(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postForm(t, server.RouteAuthSignUp, testEmail, testPassword)
	loc := location(t, resp)
	require.Equal(t, server.RouteAuthSignUp, loc.Path)
	require.Equal(t, "email", loc.Query().Get("field"))
	require.Equal(t, "Данный email уже зарегистрирован", loc.Query().Get("error"))
}

func TestAPI_SessionLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, server.RouteAPILogin, map[string]string{"email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	login := decodeSession(t, resp)
	require.True(t, login.Authenticated)
	require.Equal(t, testEmail, login.Session.Email)
	require.Equal(t, env.userID, login.Session.UserID)
	require.Equal(t, "3600", login.Session.ExpiresIn)
	require.Nil(t, login.Error)

	resp = env.get(t, server.RouteAPISession)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	current := decodeSession(t, resp)
	require.True(t, current.Authenticated)
	require.NotNil(t, current.Claims)
	require.Equal(t, env.userID, current.Claims.UserID)
	require.Equal(t, testEmail, current.Claims.Email)
	require.False(t, current.Claims.Verified)

	resp = env.postJSON(t, server.RouteAPIRefresh, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	refreshed := decodeSession(t, resp)
	require.NotEqual(t, login.Session.RefreshToken, refreshed.Session.RefreshToken)

	resp = env.postJSON(t, server.RouteAPILogout, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = env.get(t, server.RouteAPISession)
	after := decodeSession(t, resp)
	require.False(t, after.Authenticated)
	require.Nil(t, after.Session)
}

func TestAPI_LoginRejected(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, server.RouteAPILogin, map[string]string{"email": testEmail, "password": "wrong-password"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	body := decodeSession(t, resp)
	require.False(t, body.Authenticated)
	require.Equal(t, &session.AuthError{Message: "Неверный пароль", Field: session.FieldPassword}, body.Error)

	// The last error is reported until the next attempt.
	current := decodeSession(t, env.get(t, server.RouteAPISession))
	require.Equal(t, body.Error, current.Error)
}

func TestAPI_Validation(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, server.RouteAPISignUp, map[string]string{"email": "bad", "password": "x"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	body := decodeSession(t, resp)
	require.Equal(t, "введеный e-mail некорректен", body.Fields["email"])
	require.Equal(t, "Пароль должен содержать как минимум 8 символов", body.Fields["password"])
	require.Equal(t, session.FieldEmail, body.Error.Field)
	require.Equal(t, 0, env.fake.Calls("signUp"))

	resp = env.postJSON(t, server.RouteAPILogin, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPI_SignUp(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, server.RouteAPISignUp, map[string]string{"email": "new@x.com", "password": "new-password"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.False(t, decodeSession(t, resp).Authenticated)
}

func TestAPI_RefreshWithoutSession(t *testing.T) {
	env := newTestEnv(t)

	resp := env.postJSON(t, server.RouteAPIRefresh, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMetrics(t *testing.T) {
	env := newTestEnv(t)

	env.postJSON(t, server.RouteAPILogin, map[string]string{"email": testEmail, "password": "wrong-password"})
	env.postJSON(t, server.RouteAPILogin, map[string]string{"email": testEmail, "password": testPassword})

	resp := env.get(t, server.RouteMetrics)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := readBody(t, resp)
	require.Contains(t, body, `chatauth_auth_attempts_total{op="login",outcome="rejected"} 1`)
	require.Contains(t, body, `chatauth_auth_attempts_total{op="login",outcome="success"} 1`)
}

func TestAPI_CorsPreflight(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodOptions, env.ts.URL+server.RouteAPILogin, nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	resp, err := env.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
}

func TestStaticCSS(t *testing.T) {
	env := newTestEnv(t)

	resp := env.get(t, "/css/app.css")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/css"))
	require.NotEmpty(t, resp.Header.Get("Cache-Control"))

	require.Equal(t, http.StatusNotFound, env.get(t, "/css/missing.css").StatusCode)
}

func TestAPI_VerifiedClaims(t *testing.T) {
	env := buildTestEnv(t, true)

	resp := env.postJSON(t, server.RouteAPILogin, map[string]string{"email": testEmail, "password": testPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	current := decodeSession(t, env.get(t, server.RouteAPISession))
	require.NotNil(t, current.Claims)
	require.True(t, current.Claims.Verified)
	require.Equal(t, env.userID, current.Claims.UserID)
	require.Equal(t, env.fake.Issuer(), current.Claims.Issuer)
}
