package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	simulations       *prometheus.CounterVec
	simDuration       prometheus.Histogram
	unresolved        prometheus.Counter
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
}

// NewMetrics registers the collectors on reg; a nil reg uses a fresh
// registry, so several routers can coexist in one process.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &Metrics{
		gatherer: reg,
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		simulations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "simulations_total",
			Help: "Total simulations run by coupling mode.",
		}, []string{"coupling"}),
		simDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "simulation_duration_seconds",
			Help:    "Histogram of simulation run durations.",
			Buckets: prometheus.DefBuckets,
		}),
		unresolved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulation_unresolved_timesteps_total",
			Help: "Total timesteps whose operating point did not converge.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_cache_hits_total",
			Help: "Total ledger cache hits observed.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledger_cache_misses_total",
			Help: "Total ledger cache misses observed.",
		}),
	}
	reg.MustRegister(
		m.httpRequestsTotal,
		m.httpDuration,
		m.simulations,
		m.simDuration,
		m.unresolved,
		m.cacheHits,
		m.cacheMisses,
	)
	return m
}

// Middleware records request counts and durations by route template.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if m == nil {
			return
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) Simulation(coupling string, duration time.Duration, unresolved int) {
	if m == nil {
		return
	}
	m.simulations.WithLabelValues(coupling).Inc()
	m.simDuration.Observe(duration.Seconds())
	m.unresolved.Add(float64(unresolved))
}

func (m *Metrics) CacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) CacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}
