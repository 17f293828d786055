package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/evsmart/core/coordinator"
	"github.com/kilianp07/evsmart/core/decisionlog"
	"github.com/kilianp07/evsmart/infra/metrics"
)

// StatusProvider is the read side of the coordinator.
type StatusProvider interface {
	Status() coordinator.Status
	ValidateInputs() error
}

// Options configures NewRouter.
type Options struct {
	// Token protects /api/decisions when non-empty.
	Token string
	// Gatherer serves /metrics; nil uses the default registry.
	Gatherer prometheus.Gatherer
}

// NewRouter returns the HTTP routes. A nil store serves an empty history.
func NewRouter(src StatusProvider, store decisionlog.Store, o Options) *mux.Router {
	if store == nil {
		store = decisionlog.NopStore{}
	}
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthHandler(src)).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler(o.Gatherer)).Methods(http.MethodGet)

	a := r.PathPrefix("/api").Subrouter()
	a.HandleFunc("/status", statusHandler(src)).Methods(http.MethodGet)
	a.HandleFunc("/schedule", scheduleHandler(src)).Methods(http.MethodGet)
	a.HandleFunc("/chart", chartHandler(src)).Methods(http.MethodGet)
	a.Handle("/decisions", requireToken(o.Token, NewDecisionHandler(store))).Methods(http.MethodGet)
	return r
}

// requireToken checks the bearer token when token is non-empty.
func requireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	want := []byte("Bearer " + token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := []byte(r.Header.Get("Authorization"))
		if subtle.ConstantTimeCompare(got, want) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
