// Package influxdb stores offgrid telemetry in InfluxDB v2 using
// influxdb-client-go.
//
// Two measurements are written:
//
//	temperature        tags: sensor_id, sensor_name     fields: celsius, fahrenheit
//	charge_controller  tags: device_address             fields: battery_*, pv_*, load_*
//
// Writes are non-blocking and batched (batch_size points or every
// flush_interval seconds). Asynchronous failures reach the callback set
// with SetOnError.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteTemperature("28-0000000000ab", "Battery box", 21.5, 70.7, time.Now())
package influxdb
