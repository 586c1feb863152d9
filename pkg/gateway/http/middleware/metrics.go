package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

type metrics interface {
	IncrementCounter(ctx context.Context, name string, labels ...string)
	DeltaUpDownCounter(ctx context.Context, name string, value float64, labels ...string)
	RecordHistogram(ctx context.Context, name string, value float64, labels ...string)
	SetGauge(name string, value float64, labels ...string)
}

// Metrics records app_http_response for every request, labelled with the route template rather than
// the raw path so that ids in proxied URLs do not explode the series count.
func Metrics(metrics metrics) func(inner http.Handler) http.Handler {
	return func(inner http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			srw := newStatusResponseWriter(w)

			path := r.URL.Path

			if route := mux.CurrentRoute(r); route != nil {
				if tpl, err := route.GetPathTemplate(); err == nil {
					path = tpl
				}
			}

			if path != "/" {
				path = strings.TrimSuffix(path, "/")
			}

			// this has to be called in the end so that status code is populated
			defer func(res *StatusResponseWriter, req *http.Request) {
				metrics.RecordHistogram(context.Background(), "app_http_response", time.Since(start).Seconds(),
					"path", path, "method", req.Method, "status", strconv.Itoa(res.status))
			}(srw, r)

			inner.ServeHTTP(srw, r)
		})
	}
}
