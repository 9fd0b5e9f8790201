package onewire

import (
	"encoding/json"
	"math"
	"time"
)

// TemperatureReading is the outcome of one ReadTemperature call.
// A new value is produced for every read; it is never updated afterwards.
type TemperatureReading struct {
	SensorID   string
	SensorName string
	Celsius    float64
	Fahrenheit float64

	// Timestamp is taken when the read starts.
	Timestamp time.Time

	Valid bool

	// Error is set exactly when Valid is false.
	Error string
}

// CelsiusToFahrenheit converts a Celsius value.
func CelsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func validReading(s *Sensor, start time.Time, celsius float64) TemperatureReading {
	return TemperatureReading{
		SensorID:   s.id,
		SensorName: s.name,
		Celsius:    celsius,
		Fahrenheit: CelsiusToFahrenheit(celsius),
		Timestamp:  start,
		Valid:      true,
	}
}

func invalidReading(s *Sensor, start time.Time, msg string) TemperatureReading {
	return TemperatureReading{
		SensorID:   s.id,
		SensorName: s.name,
		Timestamp:  start,
		Error:      msg,
	}
}

type readingJSON struct {
	SensorID              string  `json:"sensor_id"`
	SensorName            string  `json:"sensor_name"`
	TemperatureCelsius    float64 `json:"temperature_celsius"`
	TemperatureFahrenheit float64 `json:"temperature_fahrenheit"`
	Timestamp             string  `json:"timestamp"`
	IsValid               bool    `json:"is_valid"`
	ErrorMessage          *string `json:"error_message"`
}

// MarshalJSON renders temperatures to two decimals and the timestamp as RFC 3339.
func (r TemperatureReading) MarshalJSON() ([]byte, error) {
	out := readingJSON{
		SensorID:              r.SensorID,
		SensorName:            r.SensorName,
		TemperatureCelsius:    Round2(r.Celsius),
		TemperatureFahrenheit: Round2(r.Fahrenheit),
		Timestamp:             r.Timestamp.Format(time.RFC3339Nano),
		IsValid:               r.Valid,
	}
	if !r.Valid {
		msg := r.Error
		out.ErrorMessage = &msg
	}
	return json.Marshal(out)
}
