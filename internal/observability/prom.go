package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

type Prom struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec
	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// notes read cache
	CacheLookups *prometheus.CounterVec

	// maintenance worker
	TokenSweeps  *prometheus.CounterVec
	TokensPurged prometheus.Counter
}

func NewProm(reg prometheus.Registerer) *Prom {
	p := &Prom{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notehub",
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notehub",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "notehub",
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "notehub",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notehub",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notehub",
				Subsystem: "cache",
				Name:      "lookups_total",
				Help:      "Note cache lookups by kind and result.",
			},
			[]string{"kind", "result"}, // result=hit|miss|error|bypass
		),
		TokenSweeps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "notehub",
				Subsystem: "worker",
				Name:      "token_sweeps_total",
				Help:      "Refresh token purge runs by result.",
			},
			[]string{"result"},
		),
		TokensPurged: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "notehub",
				Subsystem: "worker",
				Name:      "tokens_purged_total",
				Help:      "Expired or revoked refresh tokens deleted.",
			},
		),
	}
	reg.MustRegister(
		p.RequestsTotal, p.RequestsDuration, p.InFlight,
		p.DbQueryDuration, p.DbErrorsTotal,
		p.CacheLookups,
		p.TokenSweeps, p.TokensPurged,
	)

	return p
}

// ObserveCache is nil-safe so callers can run without metrics.
func (p *Prom) ObserveCache(kind, result string) {
	if p == nil {
		return
	}
	p.CacheLookups.WithLabelValues(kind, result).Inc()
}

func (p *Prom) ObserveSweep(purged int64, err error) {
	if p == nil {
		return
	}
	if err != nil {
		p.TokenSweeps.WithLabelValues("error").Inc()
		return
	}
	p.TokenSweeps.WithLabelValues("ok").Inc()
	p.TokensPurged.Add(float64(purged))
}

// GinHandleMiddleware labels by route template; unmatched paths share one
// label to keep cardinality bounded.
func (p *Prom) GinHandleMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}

		method := ctx.Request.Method
		p.InFlight.WithLabelValues(method, route).Inc()
		defer p.InFlight.WithLabelValues(method, route).Dec()
		ctx.Next()

		status := strconv.Itoa(ctx.Writer.Status())
		secs := time.Since(start).Seconds()

		p.RequestsTotal.WithLabelValues(method, route, status).Inc()
		p.RequestsDuration.WithLabelValues(method, route, status).Observe(secs)
	}
}
