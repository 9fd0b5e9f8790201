package renogy

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRecord_MarshalJSON(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("connected", func(t *testing.T) {
		battery := MockBattery
		pv := MockPV
		load := MockLoad
		rec := Record{
			Address:   "AA:BB:CC:DD:EE:FF",
			Battery:   &battery,
			PV:        &pv,
			Load:      &load,
			Timestamp: ts,
			Status:    StatusConnected,
		}

		m := decodeRecord(t, rec)
		if m["device_address"] != "AA:BB:CC:DD:EE:FF" {
			t.Errorf("device_address = %v", m["device_address"])
		}
		if m["battery_soc"] != float64(85) {
			t.Errorf("battery_soc = %v", m["battery_soc"])
		}
		if m["pv_power"] != 32.76 {
			t.Errorf("pv_power = %v", m["pv_power"])
		}
		if m["load_power"] != 6.05 {
			t.Errorf("load_power = %v", m["load_power"])
		}
		if m["connection_status"] != "connected" {
			t.Errorf("connection_status = %v", m["connection_status"])
		}
		if v, ok := m["error_message"]; !ok || v != nil {
			t.Errorf("error_message = %v (present %v), want null", v, ok)
		}
		if m["timestamp"] != "2026-03-01T12:00:00Z" {
			t.Errorf("timestamp = %v", m["timestamp"])
		}
	})

	t.Run("error", func(t *testing.T) {
		rec := Record{
			Address:   "AA:BB:CC:DD:EE:FF",
			Timestamp: ts,
			Status:    StatusError,
			Error:     "link lost",
		}

		m := decodeRecord(t, rec)
		for _, field := range []string{"battery_voltage", "battery_soc", "pv_voltage", "load_power"} {
			if v, ok := m[field]; !ok || v != nil {
				t.Errorf("%s = %v (present %v), want null", field, v, ok)
			}
		}
		if m["error_message"] != "link lost" {
			t.Errorf("error_message = %v", m["error_message"])
		}
		if m["connection_status"] != "error" {
			t.Errorf("connection_status = %v", m["connection_status"])
		}
	})
}

func TestRecord_Connected(t *testing.T) {
	if !(Record{Status: StatusConnected}).Connected() {
		t.Error("connected record reports not connected")
	}
	if (Record{Status: StatusError}).Connected() {
		t.Error("error record reports connected")
	}
}

func decodeRecord(t *testing.T, rec Record) map[string]any {
	t.Helper()
	data, err := json.Marshal(rec)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return m
}
