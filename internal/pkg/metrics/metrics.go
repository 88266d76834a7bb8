package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry owns the service collectors. It uses its own prometheus.Registry so
// tests can build as many as they like.
type Registry struct {
	reg *prometheus.Registry

	HTTPRequests        *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	DetectionRuns       prometheus.Counter
	DuplicateGroups     prometheus.Gauge
	DuplicateOrders     prometheus.Gauge
	SourceFetchErrors   *prometheus.CounterVec
	StockAdjustments    *prometheus.CounterVec
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oms_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})
	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oms_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	runs := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "oms_duplicate_detection_runs_total",
		Help: "Completed duplicate detection runs.",
	})
	groups := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "oms_duplicate_groups",
		Help: "Duplicate groups found by the latest detection run.",
	})
	dupOrders := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "oms_duplicate_orders",
		Help: "Orders belonging to a duplicate group in the latest detection run.",
	})
	sourceErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oms_source_fetch_errors_total",
		Help: "Failed order source fetches by driver.",
	}, []string{"driver"})
	stock := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oms_stock_adjustments_total",
		Help: "Stock adjustments by outcome.",
	}, []string{"outcome"})

	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		httpRequests, httpDuration, runs, groups, dupOrders, sourceErrors, stock,
	)

	return &Registry{
		reg:                 r,
		HTTPRequests:        httpRequests,
		HTTPRequestDuration: httpDuration,
		DetectionRuns:       runs,
		DuplicateGroups:     groups,
		DuplicateOrders:     dupOrders,
		SourceFetchErrors:   sourceErrors,
		StockAdjustments:    stock,
	}
}

// ObserveDetection records the outcome of one detection run
func (r *Registry) ObserveDetection(groups, orders int) {
	if r == nil {
		return
	}
	r.DetectionRuns.Inc()
	r.DuplicateGroups.Set(float64(groups))
	r.DuplicateOrders.Set(float64(orders))
}

func (r *Registry) ObserveSourceError(driver string) {
	if r == nil {
		return
	}
	r.SourceFetchErrors.WithLabelValues(driver).Inc()
}

func (r *Registry) ObserveStockAdjustment(outcome string) {
	if r == nil {
		return
	}
	r.StockAdjustments.WithLabelValues(outcome).Inc()
}

func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// Gatherer exposes the underlying registry for tests
func (r *Registry) Gatherer() prometheus.Gatherer { return r.reg }
