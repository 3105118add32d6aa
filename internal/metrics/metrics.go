package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "artifactdrive_http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "artifactdrive_http_request_duration_seconds",
		Help:    "HTTP request latency by route and method.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	uploads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "artifactdrive_uploads_total",
		Help: "Upload attempts by category and outcome.",
	}, []string{"category", "outcome"})

	compensations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "artifactdrive_compensations_total",
		Help: "Compensating blob deletes by result. Failures leave orphan blobs.",
	}, []string{"result"})

	cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "artifactdrive_cache_lookups_total",
		Help: "Latest-release cache lookups by result.",
	}, []string{"result"})

	registerOnce sync.Once
)

// InitMetrics registers the collectors with the default registry. Safe to call repeatedly.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, uploads, compensations, cacheLookups)
	})
}

// Register attaches the Prometheus metrics endpoint to the router.
func Register(router *gin.Engine, path string) {
	router.GET(path, gin.WrapH(promhttp.Handler()))
}

// Middleware records request counts and latency per matched route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

// ObserveUpload counts one upload attempt.
func ObserveUpload(category, outcome string) {
	uploads.WithLabelValues(category, outcome).Inc()
}

// ObserveCompensation counts one compensating delete.
func ObserveCompensation(ok bool) {
	result := "deleted"
	if !ok {
		result = "failed"
	}
	compensations.WithLabelValues(result).Inc()
}

// ObserveCacheLookup counts a cache hit or miss.
func ObserveCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(result).Inc()
}
