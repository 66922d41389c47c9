// control/http.go
// Author: momentics <momentics@gmail.com>
//
// Optional debug/metrics HTTP surface (C15): a small chi router exposing
// /metrics (Prometheus exposition format), /debug/state (probe dump as
// JSON), and /healthz. Entirely optional — nothing in the dispatch core
// depends on this being mounted.

package control

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// NewDebugRouter builds the debug/metrics HTTP surface. metrics may be nil
// (no /metrics route mounted); probes may be nil (no /debug/state route).
func NewDebugRouter(metrics *Metrics, probes *DebugProbes) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET"},
	}))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	if probes != nil {
		r.Get("/debug/state", func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(probes.DumpState())
		})
	}

	return r
}
