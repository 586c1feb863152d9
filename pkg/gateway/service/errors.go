package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	gatewayHTTP "flightgate.dev/pkg/gateway/http"
	"flightgate.dev/pkg/gateway/logging"
	"flightgate.dev/pkg/gateway/registry"
)

// ErrorServiceUnavailable is returned when the downstream service could not be reached at all,
// or when its circuit is open.
type ErrorServiceUnavailable struct {
	Service string
	Err     error
}

func (e ErrorServiceUnavailable) Error() string {
	return fmt.Sprintf("Service %s is currently unavailable", e.Service)
}

func (e ErrorServiceUnavailable) Unwrap() error { return e.Err }

func (ErrorServiceUnavailable) StatusCode() int { return http.StatusServiceUnavailable }

func (e ErrorServiceUnavailable) ServiceName() string { return e.Service }

// ErrorGatewayTimeout is returned when an attempt ran past the service timeout.
type ErrorGatewayTimeout struct {
	Service string
	Timeout time.Duration
	Err     error
}

func (e ErrorGatewayTimeout) Error() string {
	return fmt.Sprintf("Request to %s timed out", e.Service)
}

func (e ErrorGatewayTimeout) Unwrap() error { return e.Err }

func (ErrorGatewayTimeout) StatusCode() int { return http.StatusGatewayTimeout }

func (e ErrorGatewayTimeout) ServiceName() string { return e.Service }

// ErrorUpstream carries a downstream error response. It is relayed to the client with the
// downstream status, body and content type unchanged.
type ErrorUpstream struct {
	Service string
	Status  int
	Header  http.Header
	Body    []byte
}

func (e ErrorUpstream) Error() string {
	return fmt.Sprintf("%s responded with status %d", e.Service, e.Status)
}

func (e ErrorUpstream) StatusCode() int { return e.Status }

func (e ErrorUpstream) ServiceName() string { return e.Service }

// LogLevel keeps client errors of downstream services out of the error stream.
func (e ErrorUpstream) LogLevel() logging.Level {
	if e.Status < http.StatusInternalServerError {
		return logging.INFO
	}

	return logging.ERROR
}

// Relay returns the response written to the client. An empty downstream body is replaced by
// a short JSON description so the client never receives a bare status line.
func (e ErrorUpstream) Relay() gatewayHTTP.Raw {
	if len(e.Body) == 0 {
		body, _ := json.Marshal(map[string]string{
			"message": "Service request failed",
			"service": e.Service,
		})

		return gatewayHTTP.Raw{
			StatusCode: e.Status,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       body,
		}
	}

	header := http.Header{}
	if ct := e.Header.Get("Content-Type"); ct != "" {
		header.Set("Content-Type", ct)
	}

	return gatewayHTTP.Raw{StatusCode: e.Status, Header: header, Body: e.Body}
}

// ErrorProxyInternal is returned for failures that are neither connectivity nor timeouts, such
// as a request that could not be built or a connection reset mid-response.
type ErrorProxyInternal struct {
	Service string
	Err     error
	// transport is set when the failure happened on the wire, which makes it worth retrying.
	transport bool
}

func (e ErrorProxyInternal) Error() string {
	return fmt.Sprintf("Failed to proxy request to %s", e.Service)
}

func (e ErrorProxyInternal) Unwrap() error { return e.Err }

func (ErrorProxyInternal) StatusCode() int { return http.StatusInternalServerError }

func (e ErrorProxyInternal) ServiceName() string { return e.Service }

// Translate maps a transport failure of one attempt to a gateway error. ctx is the context of
// the inbound call, not of the attempt: a caller that went away is not a gateway timeout.
func Translate(ctx context.Context, svc registry.ServiceDescriptor, err error) error {
	name := svc.DisplayName

	switch {
	case errors.Is(err, ErrCircuitOpen):
		return ErrorServiceUnavailable{Service: name, Err: err}
	case errors.Is(ctx.Err(), context.Canceled):
		return ErrorProxyInternal{Service: name, Err: ctx.Err()}
	case isTimeout(err):
		return ErrorGatewayTimeout{Service: name, Timeout: svc.Timeout, Err: err}
	case isUnreachable(err):
		return ErrorServiceUnavailable{Service: name, Err: err}
	default:
		return ErrorProxyInternal{Service: name, Err: err, transport: true}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error

	return errors.As(err, &netErr) && netErr.Timeout()
}

func isUnreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	var opErr *net.OpError

	return errors.As(err, &opErr) && opErr.Op == "dial"
}

// isTransient reports whether another attempt could succeed where this one failed.
func isTransient(err error) bool {
	if err == nil || errors.Is(err, ErrCircuitOpen) {
		return false
	}

	var (
		upstream    ErrorUpstream
		internal    ErrorProxyInternal
		unavailable ErrorServiceUnavailable
		timeout     ErrorGatewayTimeout
	)

	switch {
	case errors.As(err, &upstream):
		return upstream.Status >= http.StatusInternalServerError
	case errors.As(err, &internal):
		return internal.transport
	case errors.As(err, &unavailable), errors.As(err, &timeout):
		return true
	default:
		return false
	}
}

func statusCode(err error) int {
	var e interface{ StatusCode() int }
	if errors.As(err, &e) {
		return e.StatusCode()
	}

	return http.StatusInternalServerError
}
