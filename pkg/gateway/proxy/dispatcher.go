// Package proxy routes inbound gateway requests to the downstream service owning their path prefix.
package proxy

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"flightgate.dev/pkg/gateway/registry"
	"flightgate.dev/pkg/gateway/service"
)

const apiPrefix = "/api/v1"

// DispatchRequest is an inbound request as the gateway received it. RawPath may still carry the
// "/api/v1" prefix and a query string. Query holds values that replace the keys of the same name
// in that query string.
type DispatchRequest struct {
	RawPath string
	Method  string
	Header  http.Header
	Body    []byte
	Query   url.Values
}

// Dispatcher resolves the owning service of a path and hands the request to a Forwarder.
type Dispatcher struct {
	registry  *registry.Registry
	forwarder service.Forwarder
}

func NewDispatcher(reg *registry.Registry, forwarder service.Forwarder) *Dispatcher {
	return &Dispatcher{registry: reg, forwarder: forwarder}
}

// Dispatch forwards req to the service with the longest prefix matching its path. The path is
// forwarded with the prefix kept, so "/api/v1/auth/login" reaches "{auth}/api/v1/auth/login".
// An unknown prefix fails with registry.ErrorUnknownService before anything is sent.
func (d *Dispatcher) Dispatch(ctx context.Context, req DispatchRequest) (*service.ProxyResponse, error) {
	path, rawQuery, _ := strings.Cut(req.RawPath, "?")
	path = stripAPIPrefix(path)

	svc, _, err := d.registry.Match(path)
	if err != nil {
		return nil, err
	}

	proxyReq := &service.ProxyRequest{
		Method:   req.Method,
		Path:     path,
		RawQuery: rawQuery,
		Header:   req.Header,
		Body:     req.Body,
	}

	// without overrides the query reaches the service exactly as the client wrote it
	if len(req.Query) > 0 {
		proxyReq.RawQuery = ""
		proxyReq.Query = mergeQuery(rawQuery, req.Query)
	}

	return d.forwarder.Forward(ctx, svc, proxyReq)
}

func stripAPIPrefix(path string) string {
	switch {
	case path == apiPrefix:
		return "/"
	case strings.HasPrefix(path, apiPrefix+"/"):
		return path[len(apiPrefix):]
	default:
		return path
	}
}

// mergeQuery parses rawQuery leniently and lets explicit values replace parsed ones of the same key.
func mergeQuery(rawQuery string, explicit url.Values) url.Values {
	// a malformed pair is dropped, the rest of the query is kept
	merged, _ := url.ParseQuery(rawQuery)

	for key, values := range explicit {
		merged[key] = append([]string(nil), values...)
	}

	return merged
}
