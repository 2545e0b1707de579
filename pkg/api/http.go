package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"forumdb/pkg/api/handlers"
	"forumdb/pkg/store"
	"forumdb/pkg/telemetry"
)

// NewRouter assembles the versioned HTTP API. Telemetry runs as mux
// middleware so request metrics are labeled with the matched route
// template. Security middleware is layered on top by the caller, so the
// router itself stays testable without keys.
func NewRouter() http.Handler {
	r := mux.NewRouter()
	r.Use(telemetry.Middleware)

	r.HandleFunc("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !store.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"store not ready"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}).Methods(http.MethodGet)

	v1 := r.PathPrefix("/v1").Subrouter()
	handlers.RegisterThreads(v1)
	handlers.RegisterMessages(v1)
	handlers.RegisterAdmin(v1)
	return r
}
