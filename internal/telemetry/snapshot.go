package telemetry

import (
	"sort"
	"time"

	"github.com/offgridlab/offgrid-core/internal/onewire"
	"github.com/offgridlab/offgrid-core/internal/renogy"
)

// Snapshot is the result of one poll cycle.
type Snapshot struct {
	Time     time.Time
	Readings []onewire.TemperatureReading
	Records  map[string]renogy.Record
}

// Addresses returns the record keys in sorted order.
func (s Snapshot) Addresses() []string {
	addrs := make([]string, 0, len(s.Records))
	for addr := range s.Records {
		addrs = append(addrs, addr)
	}
	sort.Strings(addrs)
	return addrs
}

// snapshotJSON is the payload pushed to WebSocket subscribers.
type snapshotJSON struct {
	Timestamp        string                       `json:"timestamp"`
	Readings         []onewire.TemperatureReading `json:"readings"`
	Devices          map[string]renogy.Record     `json:"devices"`
	ValidReadings    int                          `json:"valid_readings"`
	ConnectedDevices int                          `json:"connected_devices"`
}

func (s Snapshot) payload() snapshotJSON {
	readings := s.Readings
	if readings == nil {
		readings = []onewire.TemperatureReading{}
	}
	devices := s.Records
	if devices == nil {
		devices = map[string]renogy.Record{}
	}
	return snapshotJSON{
		Timestamp:        s.Time.UTC().Format(time.RFC3339Nano),
		Readings:         readings,
		Devices:          devices,
		ValidReadings:    CountValid(s.Readings),
		ConnectedDevices: CountConnected(s.Records),
	}
}

// CountValid returns how many readings are valid.
func CountValid(readings []onewire.TemperatureReading) int {
	n := 0
	for _, r := range readings {
		if r.Valid {
			n++
		}
	}
	return n
}

// CountSuccesses returns how many entries of a ConnectAll result are true.
func CountSuccesses(results map[string]bool) int {
	n := 0
	for _, ok := range results {
		if ok {
			n++
		}
	}
	return n
}

// CountConnected returns how many records were read from a connected device.
func CountConnected(records map[string]renogy.Record) int {
	n := 0
	for _, r := range records {
		if r.Connected() {
			n++
		}
	}
	return n
}
