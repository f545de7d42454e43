// Package health serves liveness and readiness probes.
package health

import (
	"encoding/json"
	"net/http"
)

func Liveness() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}
}

// ReadinessReporter is implemented by the Kafka invalidation runner.
type ReadinessReporter interface {
	Readiness() (ready bool, partitions []int32)
}

// Readiness is ready when every named reporter is. A nil reporter is skipped,
// so a service with no optional dependencies is always ready.
func Readiness(reporters map[string]ReadinessReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		type component struct {
			Status     string  `json:"status"`
			Partitions []int32 `json:"partitions,omitempty"`
		}
		type resp struct {
			Status     string               `json:"status"`
			Components map[string]component `json:"components,omitempty"`
		}

		out := resp{Status: "ready", Components: map[string]component{}}
		for name, rr := range reporters {
			if rr == nil {
				continue
			}
			ready, parts := rr.Readiness()
			c := component{Status: "not_ready"}
			if ready {
				c = component{Status: "ready", Partitions: parts}
			} else {
				out.Status = "not_ready"
			}
			out.Components[name] = c
		}

		w.Header().Set("Content-Type", "application/json")
		if out.Status != "ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(out)
	}
}
