package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/offgridlab/offgrid-core/internal/infrastructure/metrics"
	"github.com/offgridlab/offgrid-core/internal/infrastructure/mqtt"
	"github.com/offgridlab/offgrid-core/internal/renogy"
)

// ReadingsChannel is the WebSocket channel poll snapshots are broadcast on.
const ReadingsChannel = "readings"

// Sink receives every poll snapshot.
type Sink interface {
	Name() string
	Publish(ctx context.Context, snap Snapshot) error
}

// ─── MQTT ───────────────────────────────────────────────────────────

// StatePublisher is the part of the MQTT client the sink needs.
type StatePublisher interface {
	PublishState(topic string, v any) error
	Topics() mqtt.Topics
}

// MQTTSink publishes each valid reading and each record as retained state.
// Invalid readings are skipped so the retained value stays the last good one.
type MQTTSink struct {
	pub StatePublisher
}

// NewMQTTSink creates an MQTT sink.
func NewMQTTSink(pub StatePublisher) *MQTTSink {
	return &MQTTSink{pub: pub}
}

// Name implements Sink.
func (s *MQTTSink) Name() string { return "mqtt" }

// Publish implements Sink. It keeps going after a failed publish and
// returns every failure joined.
func (s *MQTTSink) Publish(_ context.Context, snap Snapshot) error {
	topics := s.pub.Topics()
	var errs []error

	for _, r := range snap.Readings {
		if !r.Valid {
			continue
		}
		if err := s.pub.PublishState(topics.SensorState(r.SensorID), r); err != nil {
			errs = append(errs, fmt.Errorf("sensor %s: %w", r.SensorID, err))
		}
	}
	for _, addr := range snap.Addresses() {
		if err := s.pub.PublishState(topics.DeviceState(addr), snap.Records[addr]); err != nil {
			errs = append(errs, fmt.Errorf("device %s: %w", addr, err))
		}
	}
	return errors.Join(errs...)
}

// ─── InfluxDB ───────────────────────────────────────────────────────

// PointWriter is the part of the InfluxDB client the sink needs.
type PointWriter interface {
	WriteTemperature(sensorID, sensorName string, celsius, fahrenheit float64, ts time.Time)
	WriteChargeController(address string, fields map[string]interface{}, ts time.Time)
}

// InfluxSink writes valid readings and connected records as points. Writes
// are batched by the client; its errors surface through the client's
// error callback, not here.
type InfluxSink struct {
	w PointWriter
}

// NewInfluxSink creates an InfluxDB sink.
func NewInfluxSink(w PointWriter) *InfluxSink {
	return &InfluxSink{w: w}
}

// Name implements Sink.
func (s *InfluxSink) Name() string { return "influxdb" }

// Publish implements Sink.
func (s *InfluxSink) Publish(_ context.Context, snap Snapshot) error {
	for _, r := range snap.Readings {
		if r.Valid {
			s.w.WriteTemperature(r.SensorID, r.SensorName, r.Celsius, r.Fahrenheit, r.Timestamp)
		}
	}
	for _, addr := range snap.Addresses() {
		rec := snap.Records[addr]
		if !rec.Connected() {
			continue
		}
		s.w.WriteChargeController(addr, RecordFields(rec), rec.Timestamp)
	}
	return nil
}

// RecordFields flattens the domains a record carries into point fields.
// Absent domains contribute nothing.
func RecordFields(rec renogy.Record) map[string]interface{} {
	fields := make(map[string]interface{}, 11)
	if b := rec.Battery; b != nil {
		fields["battery_voltage"] = b.Voltage
		fields["battery_current"] = b.Current
		fields["battery_power"] = b.Power
		fields["battery_soc"] = b.SOC
		fields["battery_temperature"] = b.Temperature
	}
	if pv := rec.PV; pv != nil {
		fields["pv_voltage"] = pv.Voltage
		fields["pv_current"] = pv.Current
		fields["pv_power"] = pv.Power
	}
	if l := rec.Load; l != nil {
		fields["load_voltage"] = l.Voltage
		fields["load_current"] = l.Current
		fields["load_power"] = l.Power
	}
	return fields
}

// ─── Prometheus ─────────────────────────────────────────────────────

// MetricsSink updates the Prometheus collectors.
type MetricsSink struct {
	m *metrics.Metrics
}

// NewMetricsSink creates a metrics sink.
func NewMetricsSink(m *metrics.Metrics) *MetricsSink {
	return &MetricsSink{m: m}
}

// Name implements Sink.
func (s *MetricsSink) Name() string { return "metrics" }

// Publish implements Sink.
func (s *MetricsSink) Publish(_ context.Context, snap Snapshot) error {
	for _, r := range snap.Readings {
		s.m.ObserveSensorRead(r.SensorID, r.Celsius, r.Valid)
	}
	for _, addr := range snap.Addresses() {
		s.m.ObserveDeviceRead(DeviceSample(snap.Records[addr]))
	}
	return nil
}

// DeviceSample converts a record into the metrics representation.
func DeviceSample(rec renogy.Record) metrics.DeviceSample {
	sample := metrics.DeviceSample{
		Address: rec.Address,
		Status:  string(rec.Status),
	}
	if b := rec.Battery; b != nil {
		sample.HasBattery = true
		sample.BatterySOC = float64(b.SOC)
		sample.BatteryVoltage = b.Voltage
	}
	if pv := rec.PV; pv != nil {
		sample.HasPV = true
		sample.PVPower = pv.Power
	}
	if l := rec.Load; l != nil {
		sample.HasLoad = true
		sample.LoadPower = l.Power
	}
	return sample
}

// ─── WebSocket ──────────────────────────────────────────────────────

// Broadcaster pushes a payload to every subscriber of a channel.
type Broadcaster interface {
	Broadcast(channel string, payload any)
}

// BroadcastSink pushes the whole snapshot on ReadingsChannel.
type BroadcastSink struct {
	b Broadcaster
}

// NewBroadcastSink creates a WebSocket sink.
func NewBroadcastSink(b Broadcaster) *BroadcastSink {
	return &BroadcastSink{b: b}
}

// Name implements Sink.
func (s *BroadcastSink) Name() string { return "websocket" }

// Publish implements Sink.
func (s *BroadcastSink) Publish(_ context.Context, snap Snapshot) error {
	s.b.Broadcast(ReadingsChannel, snap.payload())
	return nil
}
