package service

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	errNegativeMaxIdleConns        = errors.New("MaxIdleConns cannot be negative")
	errNegativeMaxIdleConnsPerHost = errors.New("MaxIdleConnsPerHost cannot be negative")
	errNegativeIdleConnTimeout     = errors.New("IdleConnTimeout cannot be negative")
)

const (
	defaultMaxIdleConns    = 100
	defaultIdleConnTimeout = 90 * time.Second
)

// WithConnectionPool tunes keep-alive reuse towards the downstream services. Every request of
// the gateway goes to one of a handful of hosts, so MaxIdleConnsPerHost matters most.
//
// It must be passed to NewForwarder before any other option that wraps the forwarder.
type WithConnectionPool struct {
	// MaxIdleConns across all hosts. Zero selects 100.
	MaxIdleConns int
	// MaxIdleConnsPerHost. Zero keeps the net/http default of 2.
	MaxIdleConnsPerHost int
	// IdleConnTimeout. Zero selects 90s.
	IdleConnTimeout time.Duration
}

// Validate rejects negative settings.
func (c *WithConnectionPool) Validate() error {
	if c.MaxIdleConns < 0 {
		return fmt.Errorf("%w, got: %d", errNegativeMaxIdleConns, c.MaxIdleConns)
	}

	if c.MaxIdleConnsPerHost < 0 {
		return fmt.Errorf("%w, got: %d", errNegativeMaxIdleConnsPerHost, c.MaxIdleConnsPerHost)
	}

	if c.IdleConnTimeout < 0 {
		return fmt.Errorf("%w, got: %v", errNegativeIdleConnTimeout, c.IdleConnTimeout)
	}

	return nil
}

// AddOption replaces the transport of the base forwarder. An invalid configuration leaves the
// forwarder unchanged; callers are expected to Validate first.
func (c *WithConnectionPool) AddOption(f Forwarder) Forwarder {
	base := extractHTTPForwarder(f)
	if base == nil || c.Validate() != nil {
		return f
	}

	// cloning keeps the proxy, dialer and TLS handshake settings of the default transport
	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.MaxIdleConns = defaultMaxIdleConns
	if c.MaxIdleConns > 0 {
		transport.MaxIdleConns = c.MaxIdleConns
	}

	if c.MaxIdleConnsPerHost > 0 {
		transport.MaxIdleConnsPerHost = c.MaxIdleConnsPerHost
	}

	transport.IdleConnTimeout = defaultIdleConnTimeout
	if c.IdleConnTimeout > 0 {
		transport.IdleConnTimeout = c.IdleConnTimeout
	}

	base.Client.Transport = transport

	return f
}
