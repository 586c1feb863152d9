package gateway

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"flightgate.dev/pkg/gateway/logging"
)

var errUnsupportedExporter = errors.New("unsupported TRACE_EXPORTER")

// initTracer installs the global tracer provider and W3C propagation. Spans are only exported
// when both TRACE_EXPORTER and TRACER_URL are set; otherwise trace ids still flow to the
// downstream services and into the logs.
func (a *App) initTracer() error {
	traceRatio, err := strconv.ParseFloat(a.Config.GetOrDefault("TRACER_RATIO", "1"), 64)
	if err != nil {
		return errors.Wrap(err, "invalid TRACER_RATIO")
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(a.Config.GetOrDefault("APP_NAME", defaultAppName)),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(traceRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	otel.SetErrorHandler(&otelErrorHandler{logger: a.logger})

	a.tracerProvider = tp

	name := a.Config.Get("TRACE_EXPORTER")
	url := a.Config.Get("TRACER_URL")

	switch {
	case name == "" && url == "":
		a.logger.Debug("tracing is disabled, as configs are not provided")

		return nil
	case name == "":
		a.logger.Error("missing TRACE_EXPORTER config, should be provided with TRACER_URL to enable tracing")

		return nil
	case url == "":
		a.logger.Error("missing TRACER_URL config, should be provided with TRACE_EXPORTER to enable tracing")

		return nil
	}

	exporter, err := buildExporter(a.logger, name, url, a.Config.Get("TRACER_AUTH_KEY"))
	if err != nil {
		return err
	}

	tp.RegisterSpanProcessor(sdktrace.NewBatchSpanProcessor(exporter))

	return nil
}

func buildExporter(logger logging.Logger, name, url, authHeader string) (sdktrace.SpanExporter, error) {
	if !strings.EqualFold(name, "zipkin") {
		return nil, errors.Wrap(errUnsupportedExporter, name)
	}

	logger.Infof("Exporting traces to zipkin at %s", url)

	var opts []zipkin.Option
	if authHeader != "" {
		opts = append(opts, zipkin.WithClient(&http.Client{
			Transport: &authTransport{header: authHeader, next: http.DefaultTransport},
		}))
	}

	return zipkin.New(url, opts...)
}

// authTransport sets the Authorization header on every span upload to the collector.
type authTransport struct {
	header string
	next   http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("Authorization", t.header)

	return t.next.RoundTrip(req)
}

type otelErrorHandler struct {
	logger logging.Logger
}

func (o *otelErrorHandler) Handle(e error) {
	if e == nil {
		return
	}

	o.logger.Error(e.Error())
}
