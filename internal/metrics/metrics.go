package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rath_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rath_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// OTPIssued counts codes generated, by channel.
	OTPIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rath_otp_issued_total",
			Help: "One-time codes issued",
		},
		[]string{"channel"},
	)

	// OTPVerified counts verification attempts, by channel and outcome.
	OTPVerified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rath_otp_verifications_total",
			Help: "One-time code verification attempts",
		},
		[]string{"channel", "outcome"},
	)

	TripsPosted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rath_trips_posted_total",
		Help: "Trips created by drivers",
	})

	// Bookings counts book-seat and cancel outcomes.
	Bookings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rath_bookings_total",
			Help: "Seat bookings by outcome",
		},
		[]string{"outcome"},
	)
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }

func skip(path string) bool {
	return strings.HasPrefix(path, "/metrics") || strings.HasPrefix(path, "/health")
}

// Middleware records request count and latency by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if skip(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
