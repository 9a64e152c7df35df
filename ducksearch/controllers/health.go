package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

// Check reports whether one optional dependency is reachable.
type Check func(ctx context.Context) error

type HealthController struct {
	checks map[string]Check
}

func NewHealthController() *HealthController {
	return &HealthController{checks: map[string]Check{}}
}

// AddCheck registers a dependency probe run on every health request.
func (h *HealthController) AddCheck(name string, check Check) {
	h.checks[name] = check
}

func (h *HealthController) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if len(h.checks) == 0 {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	var failing []string
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failing = append(failing, name)
		}
	}
	if len(failing) == 0 {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
		return
	}
	sort.Strings(failing)
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(map[string]any{"status": "degraded", "failing": failing})
}
