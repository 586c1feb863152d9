package metrics

import (
	"net/http"
	"net/http/pprof"
	"runtime"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Names of the runtime gauges refreshed on every scrape.
const (
	goRoutines     = "app_go_routines"
	sysMemoryAlloc = "app_sys_memory_alloc"
	sysTotalAlloc  = "app_sys_total_alloc"
	goNumGC        = "app_go_numGC"
	goSys          = "app_go_sys"
)

// RegisterSystemGauges creates the runtime gauges that GetHandler refreshes.
func RegisterSystemGauges(m Manager) {
	m.NewGauge(goRoutines, "Number of Go routines running.")
	m.NewGauge(sysMemoryAlloc, "Number of bytes allocated for heap objects.")
	m.NewGauge(sysTotalAlloc, "Number of cumulative bytes allocated for heap objects.")
	m.NewGauge(goNumGC, "Number of completed Garbage Collector cycles.")
	m.NewGauge(goSys, "Number of total bytes of memory.")
}

// GetHandler serves gatherer on /metrics and the pprof endpoints under /debug/pprof/.
func GetHandler(m Manager, gatherer prometheus.Gatherer) http.Handler {
	router := mux.NewRouter()

	h := systemMetricsHandler(m, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	router.NewRoute().Methods(http.MethodGet).Path("/metrics").Handler(h)

	router.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	router.HandleFunc("/debug/pprof/profile", pprof.Profile)
	router.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	router.HandleFunc("/debug/pprof/trace", pprof.Trace)

	router.NewRoute().Methods(http.MethodGet).PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)

	return router
}

func systemMetricsHandler(m Manager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var stats runtime.MemStats

		runtime.ReadMemStats(&stats)

		m.SetGauge(goRoutines, float64(runtime.NumGoroutine()))
		m.SetGauge(sysMemoryAlloc, float64(stats.Alloc))
		m.SetGauge(sysTotalAlloc, float64(stats.TotalAlloc))
		m.SetGauge(goNumGC, float64(stats.NumGC))
		m.SetGauge(goSys, float64(stats.Sys))

		next.ServeHTTP(w, r)
	})
}
