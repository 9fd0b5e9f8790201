package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/offgridlab/offgrid-core/internal/onewire"
	"github.com/offgridlab/offgrid-core/internal/telemetry"
)

// AddSensorRequest is the body of POST /sensors.
type AddSensorRequest struct {
	SensorID   string `json:"sensor_id"`
	SensorName string `json:"sensor_name"`
}

const msgSensorNotFound = "Sensor not found"

// handleListSensors returns every registered sensor with a live
// availability check.
func (s *Server) handleListSensors(w http.ResponseWriter, _ *http.Request) {
	sensors := s.sensors.List()
	writeJSON(w, http.StatusOK, map[string]any{
		"sensors":     sensors,
		"total_count": len(sensors),
	})
}

// handleAddSensor registers a sensor. The id does not have to be on the bus.
func (s *Server) handleAddSensor(w http.ResponseWriter, r *http.Request) {
	var req AddSensorRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req.SensorID = strings.TrimSpace(req.SensorID)
	if req.SensorID == "" {
		writeValidationError(w, "sensor_id is required")
		return
	}
	if strings.TrimSpace(req.SensorName) == "" {
		writeValidationError(w, "sensor_name is required")
		return
	}

	sensor, added := s.sensors.AddIfAbsent(req.SensorID, req.SensorName)
	if !added {
		writeConflict(w, "Sensor already exists")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message":      "Sensor added successfully",
		"sensor_id":    sensor.ID(),
		"sensor_name":  sensor.Name(),
		"is_available": sensor.Available(),
	})
}

func (s *Server) handleRemoveSensor(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sensorID")
	if !s.sensors.Remove(id) {
		writeNotFound(w, msgSensorNotFound)
		return
	}
	if s.prometheus != nil {
		s.prometheus.ForgetSensor(id)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "Sensor removed successfully",
		"sensor_id": id,
	})
}

func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	sensor, ok := s.sensors.Get(chi.URLParam(r, "sensorID"))
	if !ok {
		writeNotFound(w, msgSensorNotFound)
		return
	}
	writeJSON(w, http.StatusOK, sensor.Info())
}

// handleSensorTemperature reads one sensor. A failed read is still a 200;
// the reading carries is_valid=false and the error message.
func (s *Server) handleSensorTemperature(w http.ResponseWriter, r *http.Request) {
	reading, ok := s.sensors.ReadTemperature(r.Context(), chi.URLParam(r, "sensorID"))
	if !ok {
		writeNotFound(w, msgSensorNotFound)
		return
	}
	s.observeReadings(reading)
	writeJSON(w, http.StatusOK, reading)
}

func (s *Server) handleDiscoverSensors(w http.ResponseWriter, _ *http.Request) {
	ids := s.sensors.Discover()
	writeJSON(w, http.StatusOK, map[string]any{
		"sensor_ids": ids,
		"count":      len(ids),
	})
}

// handleAllTemperatures reads every registered sensor, present or not.
func (s *Server) handleAllTemperatures(w http.ResponseWriter, r *http.Request) {
	readings := s.sensors.ReadAll(r.Context())
	s.observeReadings(readings...)
	writeJSON(w, http.StatusOK, map[string]any{
		"readings":       readings,
		"total_sensors":  len(readings),
		"valid_readings": telemetry.CountValid(readings),
	})
}

func (s *Server) handleSensorSummary(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sensors.Summary())
}

func (s *Server) observeReadings(readings ...onewire.TemperatureReading) {
	if s.prometheus == nil {
		return
	}
	for _, r := range readings {
		s.prometheus.ObserveSensorRead(r.SensorID, r.Celsius, r.Valid)
	}
}
