package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/offgridlab/offgrid-core/internal/renogy"
	"github.com/offgridlab/offgrid-core/internal/telemetry"
)

// AddDeviceRequest is the body of POST /devices. Timeout is in seconds.
type AddDeviceRequest struct {
	DeviceAddress string   `json:"device_address"`
	Timeout       *float64 `json:"timeout"`
}

const msgDeviceNotFound = "Device not found"

// lookupDevice writes a 404 and returns false when the address is unknown.
func (s *Server) lookupDevice(w http.ResponseWriter, r *http.Request) (*renogy.Device, bool) {
	dev, ok := s.devices.Get(chi.URLParam(r, "address"))
	if !ok {
		writeNotFound(w, msgDeviceNotFound)
	}
	return dev, ok
}

func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	statuses := s.devices.Statuses()
	writeJSON(w, http.StatusOK, map[string]any{
		"devices":     statuses,
		"total_count": len(statuses),
	})
}

// handleAddDevice validates the address and registers a disconnected device.
func (s *Server) handleAddDevice(w http.ResponseWriter, r *http.Request) {
	var req AddDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	req.DeviceAddress = strings.TrimSpace(req.DeviceAddress)
	if req.DeviceAddress == "" {
		writeValidationError(w, "device_address is required")
		return
	}
	if err := renogy.ValidateAddress(req.DeviceAddress); err != nil {
		writeValidationError(w, "Invalid Bluetooth address format")
		return
	}
	var timeout time.Duration
	if req.Timeout != nil {
		if *req.Timeout <= 0 {
			writeValidationError(w, "timeout must be positive")
			return
		}
		timeout = time.Duration(*req.Timeout * float64(time.Second))
	}

	dev, added := s.devices.AddIfAbsent(req.DeviceAddress, timeout)
	if !added {
		writeConflict(w, "Device already exists")
		return
	}
	writeJSON(w, http.StatusCreated, deviceResponse("Device added successfully", dev.Status()))
}

func (s *Server) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	address := renogy.NormalizeAddress(chi.URLParam(r, "address"))
	if !s.devices.Remove(address) {
		writeNotFound(w, msgDeviceNotFound)
		return
	}
	if s.prometheus != nil {
		s.prometheus.ForgetDevice(address)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":        "Device removed successfully",
		"device_address": address,
	})
}

func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, dev.Status())
}

func (s *Server) handleConnectDevice(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	if dev.IsConnected() {
		writeJSON(w, http.StatusOK, deviceResponse("Device already connected", dev.Status()))
		return
	}

	connected := dev.Connect(r.Context())
	if s.prometheus != nil {
		s.prometheus.ObserveConnect(connected)
	}
	if !connected {
		writeInternalError(w, "Failed to connect to device")
		return
	}
	writeJSON(w, http.StatusOK, deviceResponse("Device connected successfully", dev.Status()))
}

func (s *Server) handleDisconnectDevice(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	if !dev.IsConnected() {
		writeJSON(w, http.StatusOK, deviceResponse("Device already disconnected", dev.Status()))
		return
	}
	dev.Disconnect(r.Context())
	writeJSON(w, http.StatusOK, deviceResponse("Device disconnected successfully", dev.Status()))
}

// handleDeviceData reads one device. The record is returned with 200 even
// when the device is disconnected or the read failed; connection_status
// and error_message then say why.
func (s *Server) handleDeviceData(w http.ResponseWriter, r *http.Request) {
	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	rec := dev.ReadData(r.Context())
	s.observeRecords(rec)
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleConnectAll(w http.ResponseWriter, r *http.Request) {
	results := s.devices.ConnectAll(r.Context())
	if s.prometheus != nil {
		for _, ok := range results {
			s.prometheus.ObserveConnect(ok)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":                "Connection attempt completed",
		"results":                results,
		"total_devices":          len(results),
		"successful_connections": telemetry.CountSuccesses(results),
	})
}

func (s *Server) handleDisconnectAll(w http.ResponseWriter, r *http.Request) {
	s.devices.DisconnectAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"message":       "All devices disconnected successfully",
		"total_devices": s.devices.Len(),
	})
}

// handleAllDeviceData reads every device. Disconnected devices appear with
// connection_status "disconnected" and no telemetry.
func (s *Server) handleAllDeviceData(w http.ResponseWriter, r *http.Request) {
	records := s.devices.ReadAll(r.Context())
	for _, rec := range records {
		s.observeRecords(rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"devices":           records,
		"total_devices":     len(records),
		"connected_devices": telemetry.CountConnected(records),
	})
}

func (s *Server) observeRecords(records ...renogy.Record) {
	if s.prometheus == nil {
		return
	}
	for _, rec := range records {
		s.prometheus.ObserveDeviceRead(telemetry.DeviceSample(rec))
	}
}

// deviceMessage is a DeviceStatus with a human-readable outcome.
type deviceMessage struct {
	Message string `json:"message"`
	renogy.DeviceStatus
}

func deviceResponse(message string, status renogy.DeviceStatus) deviceMessage {
	return deviceMessage{Message: message, DeviceStatus: status}
}
