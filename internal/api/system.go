package api

import (
	"context"
	"net/http"
	"time"
)

// healthCheckTimeout bounds each dependency check in /health.
const healthCheckTimeout = 2 * time.Second

// Dependency states reported by /health.
const (
	stateOK       = "ok"
	stateDown     = "down"
	stateDisabled = "disabled"
)

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status       string            `json:"status"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

// handleHealth reports "healthy" when every enabled dependency passes its
// check and "degraded" otherwise. Both are served with 200 so a dead broker
// does not take the API out of a load balancer.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	deps := map[string]string{
		"database": stateDisabled,
		"mqtt":     stateDisabled,
		"influxdb": stateDisabled,
	}
	if s.db != nil {
		deps["database"] = checkDependency(ctx, s.db.HealthCheck)
	}
	if s.mqtt != nil {
		deps["mqtt"] = checkDependency(ctx, s.mqtt.HealthCheck)
	}
	if s.influx != nil {
		deps["influxdb"] = checkDependency(ctx, s.influx.HealthCheck)
	}

	status := "healthy"
	for _, state := range deps {
		if state == stateDown {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:       status,
		Version:      s.version,
		Dependencies: deps,
	})
}

func checkDependency(ctx context.Context, check func(context.Context) error) string {
	if err := check(ctx); err != nil {
		return stateDown
	}
	return stateOK
}

// handleCurrentTime returns the server clock in the configured zone.
func (s *Server) handleCurrentTime(w http.ResponseWriter, _ *http.Request) {
	now := time.Now().In(s.location)
	writeJSON(w, http.StatusOK, map[string]any{
		"current_time":   now.Format(time.RFC3339Nano),
		"timezone":       s.location.String(),
		"unix_timestamp": float64(now.UnixMicro()) / 1e6,
	})
}
