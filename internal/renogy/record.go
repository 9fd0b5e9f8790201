package renogy

import (
	"encoding/json"
	"time"
)

// ConnectionStatus is the state a Record was captured in.
type ConnectionStatus string

// Connection states.
const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
)

// BatteryData is the battery telemetry domain.
type BatteryData struct {
	Voltage     float64 // V
	Current     float64 // A, charging current
	Power       float64 // W
	SOC         int     // state of charge, percent
	Temperature float64 // °C
}

// PVData is the solar array telemetry domain.
type PVData struct {
	Voltage float64
	Current float64
	Power   float64
}

// LoadData is the load output telemetry domain.
type LoadData struct {
	Voltage float64
	Current float64
	Power   float64
}

// Record is one ReadData result. A nil domain was not reported.
type Record struct {
	Address   string
	Battery   *BatteryData
	PV        *PVData
	Load      *LoadData
	Timestamp time.Time
	Status    ConnectionStatus

	// Error is only set with StatusError or StatusDisconnected.
	Error string
}

// Connected reports whether the record was captured from a connected device.
func (r Record) Connected() bool {
	return r.Status == StatusConnected
}

type recordJSON struct {
	DeviceAddress      string   `json:"device_address"`
	BatteryVoltage     *float64 `json:"battery_voltage"`
	BatteryCurrent     *float64 `json:"battery_current"`
	BatteryPower       *float64 `json:"battery_power"`
	BatterySOC         *int     `json:"battery_soc"`
	BatteryTemperature *float64 `json:"battery_temperature"`
	PVVoltage          *float64 `json:"pv_voltage"`
	PVCurrent          *float64 `json:"pv_current"`
	PVPower            *float64 `json:"pv_power"`
	LoadVoltage        *float64 `json:"load_voltage"`
	LoadCurrent        *float64 `json:"load_current"`
	LoadPower          *float64 `json:"load_power"`
	Timestamp          string   `json:"timestamp"`
	ConnectionStatus   string   `json:"connection_status"`
	ErrorMessage       *string  `json:"error_message"`
}

// MarshalJSON flattens the domains into battery_*, pv_* and load_* fields,
// null when a domain is absent.
func (r Record) MarshalJSON() ([]byte, error) {
	out := recordJSON{
		DeviceAddress:    r.Address,
		Timestamp:        r.Timestamp.Format(time.RFC3339Nano),
		ConnectionStatus: string(r.Status),
	}
	if b := r.Battery; b != nil {
		out.BatteryVoltage = &b.Voltage
		out.BatteryCurrent = &b.Current
		out.BatteryPower = &b.Power
		out.BatterySOC = &b.SOC
		out.BatteryTemperature = &b.Temperature
	}
	if pv := r.PV; pv != nil {
		out.PVVoltage = &pv.Voltage
		out.PVCurrent = &pv.Current
		out.PVPower = &pv.Power
	}
	if l := r.Load; l != nil {
		out.LoadVoltage = &l.Voltage
		out.LoadCurrent = &l.Current
		out.LoadPower = &l.Power
	}
	if r.Error != "" {
		msg := r.Error
		out.ErrorMessage = &msg
	}
	return json.Marshal(out)
}
