// Package metrics exposes service counters and gauges for Prometheus.
//
// A Metrics value owns its own registry; the HTTP layer mounts Handler at
// the configured path (default /metrics). Sensor and controller gauges are
// labelled by sensor id and device address, and are removed with
// ForgetSensor / ForgetDevice when the registry entry goes away.
package metrics
