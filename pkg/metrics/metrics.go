package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec

	CatalogListed      prometheus.Histogram
	Placeholders       prometheus.Counter
	Mutations          *prometheus.CounterVec
	Purchases          *prometheus.CounterVec
	FilterOptionsCache *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gamecatalog_http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})
	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gamecatalog_http_request_duration_seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	listed := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "gamecatalog_catalog_entries_returned",
		Help:    "Number of entries returned per catalog listing.",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
	})
	placeholders := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gamecatalog_static_placeholders_total",
		Help: "Malformed seed records replaced by placeholders.",
	})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gamecatalog_mutations_total",
	}, []string{"op", "result"})
	purchases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gamecatalog_purchases_total",
	}, []string{"type"})
	cache := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gamecatalog_filter_options_cache_total",
	}, []string{"result"})

	r.MustRegister(
		httpRequests, httpLatency,
		listed, placeholders, mutations, purchases, cache,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Registry{
		reg:                r,
		HTTPRequests:       httpRequests,
		HTTPLatency:        httpLatency,
		CatalogListed:      listed,
		Placeholders:       placeholders,
		Mutations:          mutations,
		Purchases:          purchases,
		FilterOptionsCache: cache,
	}
}

func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
