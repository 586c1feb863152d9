package middleware

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"flightgate.dev/pkg/gateway/version"
)

// Tracer starts a server span for the request, continuing any W3C trace context the client sent.
func Tracer(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := otel.GetTracerProvider().Tracer("flightgate", trace.WithInstrumentationVersion(version.Gateway)).
			Start(ctx, fmt.Sprintf("gateway-middleware %s %s", r.Method, r.URL.Path), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		inner.ServeHTTP(w, r.WithContext(ctx))
	})
}
