// Package telemetry turns registry reads into published samples.
//
// A Poller reads every available temperature sensor and every charge
// controller on a fixed interval and hands the resulting Snapshot to each
// configured Sink:
//
//	MQTTSink       retained state under offgrid/state/...
//	InfluxSink     temperature and charge_controller points
//	MetricsSink    Prometheus gauges and counters
//	BroadcastSink  WebSocket "readings" channel
//
// Sink failures are logged and counted; they never stop the poll loop.
//
// The package also holds the aggregation helpers shared with the HTTP API
// (CountValid, CountSuccesses, CountConnected).
package telemetry
