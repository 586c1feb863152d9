// Package service forwards proxied requests to downstream services and translates their
// failures into gateway errors. The base forwarder is decorated with retry, circuit breaking
// and connection pooling through Options.
package service

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"flightgate.dev/pkg/gateway/registry"
)

// apiPrefix is prepended to every downstream path; all platform services mount their routes under it.
const apiPrefix = "/api/v1"

// ProxyRequest is one inbound request that is to be forwarded. Path is relative to the
// downstream API root, for example "/bookings/42". RawQuery is sent byte for byte unless Query
// is set, in which case Query is encoded instead.
type ProxyRequest struct {
	Method   string
	Path     string
	RawQuery string
	Query    url.Values
	Header   http.Header
	Body     []byte
}

// ProxyResponse is a downstream response with the framing headers already removed.
type ProxyResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Forwarder sends a ProxyRequest to the service described by svc.
//
// A non-nil error is always one of the gateway error kinds declared in this package.
type Forwarder interface {
	Forward(ctx context.Context, svc registry.ServiceDescriptor, req *ProxyRequest) (*ProxyResponse, error)
}

type httpForwarder struct {
	*http.Client
	trace.Tracer
	Logger
	Metrics
}

// NewForwarder returns the base Forwarder decorated with options in the order given.
// Redirects are not followed; a 3xx response is handed back to the client as is.
func NewForwarder(logger Logger, metrics Metrics, options ...Options) Forwarder {
	h := &httpForwarder{
		Client: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Tracer:  otel.Tracer("gateway-http-client"),
		Logger:  logger,
		Metrics: metrics,
	}

	var f Forwarder = h

	for _, o := range options {
		f = o.AddOption(f)
	}

	return f
}

// Forward performs exactly one attempt bounded by svc.Timeout.
func (h *httpForwarder) Forward(ctx context.Context, svc registry.ServiceDescriptor, req *ProxyRequest) (*ProxyResponse, error) {
	uri := buildURL(svc.BaseURL, req.Path, req.RawQuery, req.Query)

	attemptCtx, cancel := context.WithTimeout(ctx, svc.Timeout)
	defer cancel()

	spanCtx, span := h.Tracer.Start(attemptCtx, req.Method+" "+svc.DisplayName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("gateway.service", svc.DisplayName)))
	defer span.End()

	spanCtx = httptrace.WithClientTrace(spanCtx, otelhttptrace.NewClientTrace(spanCtx))

	var body io.Reader = http.NoBody
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(spanCtx, req.Method, uri, body)
	if err != nil {
		return nil, ErrorProxyInternal{Service: svc.DisplayName, Err: err}
	}

	httpReq.Header = SanitizeRequestHeaders(req.Header)

	// inject the traceparent header so the downstream span joins the inbound trace
	otel.GetTextMapPropagator().Inject(spanCtx, propagation.HeaderCarrier(httpReq.Header))

	log := Log{
		Timestamp:     time.Now(),
		CorrelationID: trace.SpanFromContext(ctx).SpanContext().TraceID().String(),
		Service:       svc.DisplayName,
		HTTPMethod:    req.Method,
		URI:           uri,
	}

	requestStart := time.Now()

	resp, err := h.send(httpReq)

	elapsed := time.Since(requestStart)
	log.ResponseTime = elapsed.Microseconds()

	if err != nil {
		gatewayErr := Translate(ctx, svc, err)

		log.ResponseCode = statusCode(gatewayErr)
		h.Log(&ErrorLog{Log: &log, ErrorMessage: err.Error()})

		span.RecordError(err)
		span.SetStatus(codes.Error, gatewayErr.Error())
		h.observe(ctx, svc, req.Method, log.ResponseCode, elapsed)

		return nil, gatewayErr
	}

	log.ResponseCode = resp.StatusCode
	h.Log(&log)

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	h.observe(ctx, svc, req.Method, resp.StatusCode, elapsed)

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, ErrorUpstream{
			Service: svc.DisplayName,
			Status:  resp.StatusCode,
			Header:  resp.Header,
			Body:    resp.Body,
		}
	}

	resp.Header = FilterResponseHeaders(resp.Header)

	return resp, nil
}

// send executes req and reads the whole body before the attempt deadline is released.
func (h *httpForwarder) send(req *http.Request) (*ProxyResponse, error) {
	resp, err := h.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &ProxyResponse{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func (h *httpForwarder) observe(ctx context.Context, svc registry.ServiceDescriptor, method string, status int,
	elapsed time.Duration) {
	if h.Metrics == nil {
		return
	}

	h.RecordHistogram(ctx, "app_gateway_upstream_response", elapsed.Seconds(),
		"service", svc.DisplayName, "method", method, "status", strconv.Itoa(status))
}

func buildURL(baseURL, path, rawQuery string, query url.Values) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}

	uri := strings.TrimRight(baseURL, "/") + apiPrefix + path

	if len(query) > 0 {
		rawQuery = query.Encode()
	}

	if rawQuery != "" {
		uri += "?" + rawQuery
	}

	return uri
}
