package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"forumdb/pkg/store"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forumdb_http_requests_total",
		Help: "HTTP requests by route, method and status code.",
	}, []string{"route", "method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forumdb_http_request_duration_seconds",
		Help:    "HTTP request latency by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// ThreadsCreated counts successful thread creations.
	ThreadsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forumdb_threads_created_total",
		Help: "Threads created since process start.",
	})

	// MessagesCreated counts successful message writes (creates and updates).
	MessagesCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forumdb_messages_created_total",
		Help: "Message versions written since process start.",
	})

	// TreesBuilt counts reply-tree constructions served by the API.
	TreesBuilt = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forumdb_trees_built_total",
		Help: "Reply trees built since process start.",
	})

	_ = promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "forumdb_store_disk_bytes",
		Help: "Best-effort on-disk size of the Pebble store.",
	}, func() float64 { return float64(store.DiskUsage()) })
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Middleware records request counts and latency per mux route template.
// Using the route template (not the raw path) keeps label cardinality
// bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)

		route := "unmatched"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(srw.status)).Inc()
		requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
