package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"flightgate.dev/pkg/gateway/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS_Defaults(t *testing.T) {
	handler := CORS(nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/flights", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "http://localhost:3000", rr.Header().Get(allowOrigin))
	assert.Equal(t, "true", rr.Header().Get(allowCredentials))
	assert.Equal(t, "GET, POST, PUT, PATCH, DELETE, OPTIONS", rr.Header().Get(allowMethods))
	assert.Equal(t, "Content-Type, Authorization, X-Requested-With", rr.Header().Get(allowHeaders))
}

func TestCORS_Preflight(t *testing.T) {
	called := false

	handler := CORS(map[string]string{allowOrigin: "https://book.example.com"})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/bookings", http.NoBody)
	req.Header.Set("Origin", "https://book.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://book.example.com", rr.Header().Get(allowOrigin))
}

func TestCORS_PlainOptionsIsForwarded(t *testing.T) {
	called := false

	handler := CORS(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		called = true
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodOptions, "/api/v1/flights", http.NoBody))

	assert.True(t, called)
}

func TestCORS_MultipleOrigins(t *testing.T) {
	handler := CORS(map[string]string{allowOrigin: "https://a.example.com, https://b.example.com"})(okHandler())

	tests := []struct {
		origin   string
		expected string
	}{
		{"https://b.example.com", "https://b.example.com"},
		{"https://evil.example.com", "https://a.example.com"},
	}

	for i, tc := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
		req.Header.Set("Origin", tc.origin)

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, tc.expected, rr.Header().Get(allowOrigin), "TEST[%d], Failed.\n", i)
	}
}

func TestGetConfigs(t *testing.T) {
	tests := []struct {
		desc     string
		conf     map[string]string
		expected map[string]string
	}{
		{
			desc:     "frontend url becomes the allowed origin",
			conf:     map[string]string{"FRONTEND_URL": "https://app.example.com"},
			expected: map[string]string{allowOrigin: "https://app.example.com"},
		},
		{
			desc: "explicit access control keys win",
			conf: map[string]string{
				"FRONTEND_URL":                "https://app.example.com",
				"ACCESS_CONTROL_ALLOW_ORIGIN": "*",
				"ACCESS_CONTROL_MAX_AGE":      "600",
			},
			expected: map[string]string{allowOrigin: "*", maxAge: "600"},
		},
		{
			desc:     "nothing configured",
			conf:     nil,
			expected: map[string]string{allowOrigin: "http://localhost:3000"},
		},
	}

	for i, tc := range tests {
		assert.Equal(t, tc.expected, GetConfigs(config.NewMockConfig(tc.conf)), "TEST[%d], Failed.\n%s", i, tc.desc)
	}
}
