// Package http holds the router, responder and HTTP error values shared by the gateway handlers.
package http

import (
	"fmt"
	"net/http"
)

// ErrorInvalidRoute represents an error for invalid route in a request.
type ErrorInvalidRoute struct {
	Method string
	Path   string
}

func (e ErrorInvalidRoute) Error() string {
	if e.Path == "" {
		return "route not registered"
	}

	return fmt.Sprintf("Cannot %s %s", e.Method, e.Path)
}

func (ErrorInvalidRoute) StatusCode() int {
	return http.StatusNotFound
}

// ErrorRequestTimeout represents an error for request which timed out.
type ErrorRequestTimeout struct{}

func (ErrorRequestTimeout) Error() string {
	return "request timed out"
}

func (ErrorRequestTimeout) StatusCode() int {
	return http.StatusRequestTimeout
}

// ErrorPanicRecovery represents an error for request which panicked.
type ErrorPanicRecovery struct{}

func (ErrorPanicRecovery) Error() string {
	return http.StatusText(http.StatusInternalServerError)
}

func (ErrorPanicRecovery) StatusCode() int {
	return http.StatusInternalServerError
}

// ErrorTooManyRequests is returned when a client exhausted one of its rate limit tiers.
type ErrorTooManyRequests struct {
	Tier string
}

func (e ErrorTooManyRequests) Error() string {
	if e.Tier == "" {
		return "ThrottlerException: Too Many Requests"
	}

	return fmt.Sprintf("ThrottlerException: Too Many Requests (%s)", e.Tier)
}

func (ErrorTooManyRequests) StatusCode() int {
	return http.StatusTooManyRequests
}

// ErrorRequestEntityTooLarge is returned when an inbound body exceeds the configured limit.
type ErrorRequestEntityTooLarge struct {
	MaxSize int64
}

func (e ErrorRequestEntityTooLarge) Error() string {
	return fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", e.MaxSize)
}

func (ErrorRequestEntityTooLarge) StatusCode() int {
	return http.StatusRequestEntityTooLarge
}
