package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementTemperature      = "temperature"
	MeasurementChargeController = "charge_controller"
)

// TemperaturePoint builds a temperature sample tagged with the sensor id
// and name.
func TemperaturePoint(sensorID, sensorName string, celsius, fahrenheit float64, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementTemperature,
		map[string]string{
			"sensor_id":   sensorID,
			"sensor_name": sensorName,
		},
		map[string]interface{}{
			"celsius":    celsius,
			"fahrenheit": fahrenheit,
		},
		ts,
	)
}

// ChargeControllerPoint builds a controller sample tagged with the device
// address. Fields are written as given; callers omit domains the
// controller did not report.
func ChargeControllerPoint(address string, fields map[string]interface{}, ts time.Time) *write.Point {
	return write.NewPoint(
		MeasurementChargeController,
		map[string]string{"device_address": address},
		fields,
		ts,
	)
}

// WriteTemperature queues a temperature sample.
func (c *Client) WriteTemperature(sensorID, sensorName string, celsius, fahrenheit float64, ts time.Time) {
	c.WritePoint(TemperaturePoint(sensorID, sensorName, celsius, fahrenheit, ts))
}

// WriteChargeController queues a controller sample. Empty field sets are
// dropped because InfluxDB rejects points without fields.
func (c *Client) WriteChargeController(address string, fields map[string]interface{}, ts time.Time) {
	if len(fields) == 0 {
		return
	}
	c.WritePoint(ChargeControllerPoint(address, fields, ts))
}

// WritePoint queues p. Points written while disconnected are discarded.
func (c *Client) WritePoint(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}
