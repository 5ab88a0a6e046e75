package http

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/msgstore/msgstore/internal/telemetry"
)

// Router builds the store's route table. Every route is wrapped in the
// security-headers middleware, and every route except /events in the
// per-route metrics middleware, matching the teacher's layered-middleware
// wiring.
func (s *Server) Router(metrics *telemetry.Registry) http.Handler {
	r := mux.NewRouter()

	route := func(path, name string, methods string, handler http.HandlerFunc) {
		r.Handle(path, metricsMiddleware(name, metrics.HTTP(), handler)).Methods(methods)
	}

	route("/healthz", "healthz", http.MethodGet, s.handleHealth)
	route("/metrics", "metrics", http.MethodGet, func(w http.ResponseWriter, r *http.Request) {
		telemetry.Handler().ServeHTTP(w, r)
	})

	route("/msg", "msg.add", http.MethodPost, s.handleAdd)
	route("/msg", "msg.get", http.MethodGet, s.handleGet)
	route("/msg/{id}", "msg.get_by_id", http.MethodGet, s.handleGet)
	route("/msg/{id}", "msg.delete", http.MethodDelete, s.handleDelete)

	route("/group/{priority}", "group.delete", http.MethodDelete, s.handleDeleteGroup)
	route("/config/group/{priority}", "config.group.put", http.MethodPut, s.handlePutGroupDefault)
	route("/config/group/{priority}", "config.group.delete", http.MethodDelete, s.handleDeleteGroupDefault)
	route("/config/store", "config.store.put", http.MethodPut, s.handlePutStoreDefault)
	route("/config", "config.get", http.MethodGet, s.handleConfig)

	route("/stats", "stats.get", http.MethodGet, s.handleStats)
	route("/snapshot", "snapshot.get", http.MethodGet, s.handleSnapshot)

	r.HandleFunc("/events", s.handleEvents)

	return securityHeaders(r)
}
