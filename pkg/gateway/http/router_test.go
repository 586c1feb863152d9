package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouter_AddAndPrefix(t *testing.T) {
	r := NewRouter()

	r.Add(http.MethodGet, "/api/v1/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("gateway"))
	}))

	r.AddPrefix("/api/v1/", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte("proxy " + req.Method))
	}))

	tests := []struct {
		method string
		path   string
		status int
		body   string
	}{
		{http.MethodGet, "/api/v1/health", http.StatusOK, "gateway"},
		{http.MethodPost, "/api/v1/bookings", http.StatusOK, "proxy POST"},
		{http.MethodDelete, "/api/v1/bookings/9", http.StatusOK, "proxy DELETE"},
	}

	for i, tc := range tests {
		w := httptest.NewRecorder()

		r.ServeHTTP(w, httptest.NewRequest(tc.method, tc.path, http.NoBody))

		assert.Equal(t, tc.status, w.Code, "TEST[%d], Failed.\n", i)
		assert.Equal(t, tc.body, w.Body.String(), "TEST[%d], Failed.\n", i)
	}
}

func TestRouter_NotFoundIsJSON(t *testing.T) {
	r := NewRouter()
	w := httptest.NewRecorder()

	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/unknown", http.NoBody))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"statusCode":404,"message":"Cannot GET /unknown","error":"Not Found"}`, w.Body.String())
}

func TestRouter_UseMiddleware(t *testing.T) {
	r := NewRouter()

	r.UseMiddleware(func(inner http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Test-Middleware", "applied")
			inner.ServeHTTP(w, req)
		})
	})

	r.Add(http.MethodGet, "/ping", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", http.NoBody))

	assert.Equal(t, "applied", w.Header().Get("X-Test-Middleware"))
}
