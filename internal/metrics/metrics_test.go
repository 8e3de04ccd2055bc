package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jrsteele09/go-chat-auth/session"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserve(t *testing.T) {
	m := New()
	m.Observe(session.OpLogin, session.OutcomeSuccess)
	m.Observe(session.OpLogin, session.OutcomeSuccess)
	m.Observe(session.OpLogin, session.OutcomeRejected)

	require.Equal(t, 2.0, testutil.ToFloat64(m.attempts.WithLabelValues("login", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.attempts.WithLabelValues("login", "rejected")))
	require.Equal(t, 0.0, testutil.ToFloat64(m.attempts.WithLabelValues("refresh", "success")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.TrackSessions(func() int { return 3 })
	m.Observe(session.OpSignUp, session.OutcomeUnavailable)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain"))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), `chatauth_auth_attempts_total{op="sign_up",outcome="unavailable"} 1`)
	require.Contains(t, string(body), "chatauth_client_sessions 3")
	require.Contains(t, string(body), "go_goroutines")
}
