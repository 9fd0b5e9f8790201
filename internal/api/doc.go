// Package api implements the HTTP REST API and WebSocket server for offgrid-core.
//
// This package provides:
//   - REST endpoints for the DS18B20 sensor registry and the charge
//     controller registry
//   - Time entry CRUD and timers
//   - WebSocket hub that pushes poll snapshots on the "readings" channel
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//   - Prometheus scrape endpoint when metrics are enabled
//
// # Errors
//
// Every error response uses the same envelope:
//
//	{"error": {"status": 404, "code": "not_found", "message": "Sensor not found"}}
//
// # Graceful Degradation
//
// MQTT and InfluxDB are optional. When they are absent or down the API keeps
// serving; /api/v1/health reports their state.
package api
