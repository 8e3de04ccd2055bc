package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainMiddleware_Order(t *testing.T) {
	var order []string
	tag := func(name string) func(http.HandlerFunc) http.HandlerFunc {
		return func(next http.HandlerFunc) http.HandlerFunc {
			return func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next(w, r)
			}
		}
	}

	handler := ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}, tag("first"), tag("second"))
	handler(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, []string{"first", "second", "handler"}, order)
}

func TestRecoverMiddleware(t *testing.T) {
	s := &Server{}
	rec := httptest.NewRecorder()

	s.RecoverMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestWWWRedirectMiddleware(t *testing.T) {
	s := &Server{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.Host = "www.chat.example.com"

	s.WWWRedirectMiddleware(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	})(rec, req)

	require.Equal(t, http.StatusMovedPermanently, rec.Code)
	require.Equal(t, "https://chat.example.com/auth/login", rec.Header().Get("Location"))
}

func TestFrameSecurityMiddleware(t *testing.T) {
	s := &Server{}
	rec := httptest.NewRecorder()
	s.FrameSecurityMiddleware(func(http.ResponseWriter, *http.Request) {})(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "SAMEORIGIN", rec.Header().Get("X-Frame-Options"))
}
