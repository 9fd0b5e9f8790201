package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	if s.prometheus != nil && s.metricsCfg.Enabled {
		path := s.metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, s.prometheus.Handler())
	}

	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/time", s.handleCurrentTime)
		r.Get("/system", s.handleSystemMetrics)

		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleListSensors)
			r.Post("/", s.handleAddSensor)
			r.Post("/discover", s.handleDiscoverSensors)
			r.Get("/temperatures", s.handleAllTemperatures)
			r.Get("/summary", s.handleSensorSummary)

			r.Route("/{sensorID}", func(r chi.Router) {
				r.Get("/", s.handleGetSensor)
				r.Delete("/", s.handleRemoveSensor)
				r.Get("/temperature", s.handleSensorTemperature)
			})
		})

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Post("/", s.handleAddDevice)
			r.Post("/connect-all", s.handleConnectAll)
			r.Post("/disconnect-all", s.handleDisconnectAll)
			r.Get("/data", s.handleAllDeviceData)

			r.Route("/{address}", func(r chi.Router) {
				r.Get("/", s.handleGetDevice)
				r.Delete("/", s.handleRemoveDevice)
				r.Post("/connect", s.handleConnectDevice)
				r.Post("/disconnect", s.handleDisconnectDevice)
				r.Get("/data", s.handleDeviceData)
			})
		})

		r.Route("/time-entries", func(r chi.Router) {
			r.Get("/", s.handleListEntries)
			r.Post("/", s.handleCreateEntry)
			r.Get("/statistics", s.handleEntryStatistics)
			r.Get("/active_timers", s.handleActiveTimers)
			r.Post("/start_timer", s.handleStartTimer)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetEntry)
				r.Put("/", s.handleUpdateEntry)
				r.Patch("/", s.handleUpdateEntry)
				r.Delete("/", s.handleDeleteEntry)
				r.Post("/stop_timer", s.handleStopTimer)
			})
		})
	})

	return r
}
