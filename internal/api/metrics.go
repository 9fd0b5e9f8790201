package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/offgridlab/offgrid-core/internal/telemetry"
)

// SystemMetrics is the body of GET /api/v1/system.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          LinkMetrics     `json:"mqtt"`
	InfluxDB      LinkMetrics     `json:"influxdb"`
	Sensors       SensorMetrics   `json:"sensors"`
	Devices       DeviceMetrics   `json:"devices"`
	Database      DatabaseMetrics `json:"database"`
	Poller        PollerMetrics   `json:"poller"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// LinkMetrics describes an optional outbound connection.
type LinkMetrics struct {
	Enabled   bool `json:"enabled"`
	Connected bool `json:"connected"`
}

// SensorMetrics counts registered sensors. It does not read them.
type SensorMetrics struct {
	Registered int `json:"registered"`
}

// DeviceMetrics counts registered charge controllers.
type DeviceMetrics struct {
	Registered int    `json:"registered"`
	Connected  int    `json:"connected"`
	Driver     string `json:"driver"`
}

// PollerMetrics describes the background poller and its last cycle.
// LastPoll is empty until the first cycle has run.
type PollerMetrics struct {
	Enabled          bool     `json:"enabled"`
	IntervalSeconds  float64  `json:"interval_seconds,omitempty"`
	Sinks            []string `json:"sinks,omitempty"`
	LastPoll         string   `json:"last_poll,omitempty"`
	Readings         int      `json:"readings"`
	ValidReadings    int      `json:"valid_readings"`
	Devices          int      `json:"devices"`
	ConnectedDevices int      `json:"connected_devices"`
}

// DatabaseMetrics contains database connection pool statistics.
type DatabaseMetrics struct {
	OpenConnections int   `json:"open_connections"`
	InUse           int   `json:"in_use"`
	Idle            int   `json:"idle"`
	WaitCount       int64 `json:"wait_count"`
}

// handleSystemMetrics returns a JSON overview of the process and its links.
// Nothing here touches the sensor bus or the controllers.
func (s *Server) handleSystemMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{ConnectedClients: s.Hub().ClientCount()},
		Sensors:   SensorMetrics{Registered: s.sensors.Len()},
	}

	if s.mqtt != nil {
		m.MQTT = LinkMetrics{Enabled: true, Connected: s.mqtt.IsConnected()}
	}
	if s.influx != nil {
		m.InfluxDB = LinkMetrics{Enabled: true, Connected: s.influx.IsConnected()}
	}

	statuses := s.devices.Statuses()
	connected := 0
	for _, st := range statuses {
		if st.Connected {
			connected++
		}
	}
	m.Devices = DeviceMetrics{
		Registered: len(statuses),
		Connected:  connected,
		Driver:     s.devices.DriverName(),
	}

	if s.db != nil {
		stats := s.db.Stats()
		m.Database = DatabaseMetrics{
			OpenConnections: stats.OpenConnections,
			InUse:           stats.InUse,
			Idle:            stats.Idle,
			WaitCount:       stats.WaitCount,
		}
	}

	if s.poller != nil {
		m.Poller = PollerMetrics{
			Enabled:         true,
			IntervalSeconds: s.poller.Interval().Seconds(),
			Sinks:           s.poller.Sinks(),
		}
		if snap, ok := s.poller.Latest(); ok {
			m.Poller.LastPoll = snap.Time.UTC().Format(time.RFC3339)
			m.Poller.Readings = len(snap.Readings)
			m.Poller.ValidReadings = telemetry.CountValid(snap.Readings)
			m.Poller.Devices = len(snap.Records)
			m.Poller.ConnectedDevices = telemetry.CountConnected(snap.Records)
		}
	}

	writeJSON(w, http.StatusOK, m)
}
