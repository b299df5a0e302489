// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for the MDT API. Labels stay
// bounded:
//
//   - method:  HTTP verb
//   - path:    the registered route (e.g. /api/v1/citizens/:id/notes), or
//     "unmatched" when no route matched
//   - status:  numeric status code as a string
//   - caller:  officer, bot or anonymous (never the caller's identity)
//
// Citizen search responses also report their X-Cache outcome.
package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

const unmatchedPath = "unmatched"

var (
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdt_http_requests_total",
			Help: "HTTP requests by route, status and caller kind.",
		},
		[]string{"method", "path", "status", "caller"},
	)

	// Status is left out to keep the histogram small.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mdt_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	// Event streams stay in flight for as long as the client listens.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mdt_http_requests_inflight",
			Help: "Requests currently being served.",
		},
	)

	httpRespSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mdt_http_response_size_bytes",
			Help:    "Size of HTTP responses in bytes.",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8), // 256B..4MiB
		},
		[]string{"method", "path"},
	)

	searchCacheResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdt_search_cache_results_total",
			Help: "Citizen search responses by cache outcome (hit or miss).",
		},
		[]string{"result"},
	)

	rateLimited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mdt_rate_limited_total",
			Help: "Requests rejected by the rate limiter, by caller kind.",
		},
		[]string{"caller"},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, httpRespSize, searchCacheResults, rateLimited)
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
// The caller label is read after the chain ran, so it reflects whatever the
// route's auth middleware set.
//
//	r.Use(middleware.Metrics())
//	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedPath
		}
		method := c.Request.Method
		caller := CallerKind(c.GetString(ctxKeyUserID))

		httpReqs.WithLabelValues(method, path, strconv.Itoa(c.Writer.Status()), caller).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
		// Size is -1 when nothing was written (e.g. hijacked websockets).
		if size := c.Writer.Size(); size >= 0 {
			httpRespSize.WithLabelValues(method, path).Observe(float64(size))
		}
		if xc := c.Writer.Header().Get("X-Cache"); xc != "" {
			searchCacheResults.WithLabelValues(strings.ToLower(xc)).Inc()
		}
	}
}
