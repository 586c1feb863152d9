package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"flightgate.dev/pkg/gateway/logging"
	"flightgate.dev/pkg/gateway/testutil"
)

func TestLogging_LogsRequest(t *testing.T) {
	handler := Logging(logging.NewMockLogger(logging.DEBUG))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings", http.NoBody)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")

	rr := httptest.NewRecorder()

	out := testutil.StdoutOutputForFunc(func() {
		handler.ServeHTTP(rr, req)
	})

	assert.Equal(t, http.StatusAccepted, rr.Code)
	assert.Contains(t, out, "203.0.113.7")
	assert.Contains(t, out, "/api/v1/bookings")
	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
}

func TestLogging_ServerErrorsGoToErrorLog(t *testing.T) {
	handler := Logging(logging.NewMockLogger(logging.DEBUG))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	out := testutil.StderrOutputForFunc(func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/flights", http.NoBody))
	})

	assert.Contains(t, out, "/api/v1/flights")
}

func TestLogging_PanicRecovery(t *testing.T) {
	handler := Logging(logging.NewMockLogger(logging.DEBUG))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("dispatcher exploded")
	}))

	rr := httptest.NewRecorder()

	out := testutil.StderrOutputForFunc(func() {
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/audit", http.NoBody))
	})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.JSONEq(t, `{"statusCode":500,"message":"Internal Server Error","error":"Internal Server Error"}`, rr.Body.String())
	assert.Contains(t, out, "dispatcher exploded")
}

func TestStatusResponseWriter_DefaultsTo200(t *testing.T) {
	rr := httptest.NewRecorder()
	srw := newStatusResponseWriter(rr)

	_, _ = srw.Write([]byte("ok"))
	srw.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusOK, srw.status)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestLog_PrettyPrint(t *testing.T) {
	l := &RequestLog{TraceID: "abc", Response: 404, ResponseTime: 120, Method: "GET", URI: "/api/v1/users/9"}

	var buf bytes.Buffer

	l.PrettyPrint(&buf)

	out := buf.String()

	assert.Contains(t, out, "abc")
	assert.Contains(t, out, "404")
	assert.Contains(t, out, "/api/v1/users/9")

	var entry logging.Entry = l

	assert.Equal(t, "request", entry.Source())
}

func TestColorForStatusCode(t *testing.T) {
	assert.Equal(t, 34, colorForStatusCode(200))
	assert.Equal(t, 220, colorForStatusCode(429))
	assert.Equal(t, 202, colorForStatusCode(504))
	assert.Equal(t, 0, colorForStatusCode(101))
}
