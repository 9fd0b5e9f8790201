package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/offgridlab/offgrid-core/internal/infrastructure/metrics"
	"github.com/offgridlab/offgrid-core/internal/infrastructure/mqtt"
	"github.com/offgridlab/offgrid-core/internal/onewire"
	"github.com/offgridlab/offgrid-core/internal/renogy"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func validReading(id string, c float64) onewire.TemperatureReading {
	return onewire.TemperatureReading{
		SensorID:   id,
		SensorName: "sensor " + id,
		Celsius:    c,
		Fahrenheit: onewire.CelsiusToFahrenheit(c),
		Timestamp:  testTime,
		Valid:      true,
	}
}

func invalidReading(id string) onewire.TemperatureReading {
	return onewire.TemperatureReading{SensorID: id, Timestamp: testTime, Error: "CRC check failed"}
}

func connectedRecord(addr string) renogy.Record {
	return renogy.Record{
		Address:   addr,
		Battery:   &renogy.BatteryData{Voltage: 12.8, Current: 5.2, Power: 66.56, SOC: 85, Temperature: 25},
		PV:        &renogy.PVData{Voltage: 18.5, Current: 3.2, Power: 59.2},
		Load:      &renogy.LoadData{Voltage: 12.8, Current: 1.5, Power: 19.2},
		Timestamp: testTime,
		Status:    renogy.StatusConnected,
	}
}

func disconnectedRecord(addr string) renogy.Record {
	return renogy.Record{Address: addr, Timestamp: testTime, Status: renogy.StatusDisconnected, Error: "Device not connected"}
}

func testSnapshot() Snapshot {
	return Snapshot{
		Time: testTime,
		Readings: []onewire.TemperatureReading{
			validReading("28-000000000001", 21.5),
			invalidReading("28-000000000002"),
		},
		Records: map[string]renogy.Record{
			"BB:00:00:00:00:02": disconnectedRecord("BB:00:00:00:00:02"),
			"AA:00:00:00:00:01": connectedRecord("AA:00:00:00:00:01"),
		},
	}
}

// ─── Aggregation ────────────────────────────────────────────────────

func TestCountHelpers(t *testing.T) {
	snap := testSnapshot()

	if got := CountValid(snap.Readings); got != 1 {
		t.Errorf("CountValid() = %d, want 1", got)
	}
	if got := CountValid(nil); got != 0 {
		t.Errorf("CountValid(nil) = %d, want 0", got)
	}
	if got := CountConnected(snap.Records); got != 1 {
		t.Errorf("CountConnected() = %d, want 1", got)
	}
	results := map[string]bool{"a": true, "b": false, "c": true}
	if got := CountSuccesses(results); got != 2 {
		t.Errorf("CountSuccesses() = %d, want 2", got)
	}
}

func TestSnapshot_Addresses(t *testing.T) {
	got := testSnapshot().Addresses()
	want := []string{"AA:00:00:00:00:01", "BB:00:00:00:00:02"}
	if len(got) != len(want) {
		t.Fatalf("Addresses() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Addresses()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// ─── MQTT sink ──────────────────────────────────────────────────────

type fakeStatePublisher struct {
	topics []string
	failOn string
}

func (f *fakeStatePublisher) PublishState(topic string, _ any) error {
	f.topics = append(f.topics, topic)
	if topic == f.failOn {
		return mqtt.ErrNotConnected
	}
	return nil
}

func (f *fakeStatePublisher) Topics() mqtt.Topics { return mqtt.DefaultTopics() }

func TestMQTTSink_Publish(t *testing.T) {
	pub := &fakeStatePublisher{}
	sink := NewMQTTSink(pub)

	if err := sink.Publish(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	want := []string{
		"offgrid/state/onewire/28-000000000001",
		"offgrid/state/renogy/AA:00:00:00:00:01",
		"offgrid/state/renogy/BB:00:00:00:00:02",
	}
	if len(pub.topics) != len(want) {
		t.Fatalf("published topics = %v, want %v", pub.topics, want)
	}
	for i := range want {
		if pub.topics[i] != want[i] {
			t.Errorf("topic[%d] = %q, want %q", i, pub.topics[i], want[i])
		}
	}
}

func TestMQTTSink_ContinuesAfterFailure(t *testing.T) {
	pub := &fakeStatePublisher{failOn: "offgrid/state/onewire/28-000000000001"}
	sink := NewMQTTSink(pub)

	err := sink.Publish(context.Background(), testSnapshot())
	if !errors.Is(err, mqtt.ErrNotConnected) {
		t.Fatalf("Publish() error = %v, want ErrNotConnected", err)
	}
	if len(pub.topics) != 3 {
		t.Errorf("published %d topics after failure, want 3", len(pub.topics))
	}
}

// ─── InfluxDB sink ──────────────────────────────────────────────────

type fakePointWriter struct {
	temps   []string
	devices map[string]map[string]interface{}
}

func (f *fakePointWriter) WriteTemperature(sensorID, _ string, _, _ float64, _ time.Time) {
	f.temps = append(f.temps, sensorID)
}

func (f *fakePointWriter) WriteChargeController(address string, fields map[string]interface{}, _ time.Time) {
	if f.devices == nil {
		f.devices = make(map[string]map[string]interface{})
	}
	f.devices[address] = fields
}

func TestInfluxSink_Publish(t *testing.T) {
	w := &fakePointWriter{}
	if err := NewInfluxSink(w).Publish(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(w.temps) != 1 || w.temps[0] != "28-000000000001" {
		t.Errorf("temperature points = %v, want only the valid sensor", w.temps)
	}
	if len(w.devices) != 1 {
		t.Fatalf("controller points = %d, want 1", len(w.devices))
	}
	fields, ok := w.devices["AA:00:00:00:00:01"]
	if !ok {
		t.Fatal("connected controller not written")
	}
	if fields["battery_soc"] != 85 {
		t.Errorf("battery_soc = %v, want 85", fields["battery_soc"])
	}
}

func TestRecordFields(t *testing.T) {
	rec := connectedRecord("AA:00:00:00:00:01")
	rec.PV = nil

	fields := RecordFields(rec)
	if len(fields) != 8 {
		t.Errorf("len(fields) = %d, want 8", len(fields))
	}
	if _, ok := fields["pv_power"]; ok {
		t.Error("absent PV domain produced pv_power")
	}
	if fields["load_power"] != 19.2 {
		t.Errorf("load_power = %v, want 19.2", fields["load_power"])
	}

	if got := RecordFields(disconnectedRecord("X")); len(got) != 0 {
		t.Errorf("disconnected record fields = %v, want none", got)
	}
}

// ─── Metrics sink ───────────────────────────────────────────────────

func gaugeValue(t *testing.T, m *metrics.Metrics, name, label, value string) (float64, bool) {
	t.Helper()
	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			for _, lp := range metric.GetLabel() {
				if lp.GetName() == label && lp.GetValue() == value {
					return metric.GetGauge().GetValue(), true
				}
			}
		}
	}
	return 0, false
}

func TestMetricsSink_Publish(t *testing.T) {
	m := metrics.New()
	if err := NewMetricsSink(m).Publish(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if v, ok := gaugeValue(t, m, "offgrid_sensor_temperature_celsius", "sensor_id", "28-000000000001"); !ok || v != 21.5 {
		t.Errorf("sensor gauge = %v (found %v), want 21.5", v, ok)
	}
	if _, ok := gaugeValue(t, m, "offgrid_sensor_temperature_celsius", "sensor_id", "28-000000000002"); ok {
		t.Error("invalid reading set a temperature gauge")
	}
	if v, ok := gaugeValue(t, m, "offgrid_battery_soc_percent", "address", "AA:00:00:00:00:01"); !ok || v != 85 {
		t.Errorf("battery SOC gauge = %v (found %v), want 85", v, ok)
	}
	if _, ok := gaugeValue(t, m, "offgrid_battery_soc_percent", "address", "BB:00:00:00:00:02"); ok {
		t.Error("disconnected record set a battery gauge")
	}
}

func TestDeviceSample(t *testing.T) {
	s := DeviceSample(connectedRecord("AA:00:00:00:00:01"))
	if !s.HasBattery || !s.HasPV || !s.HasLoad {
		t.Errorf("sample domains = %+v, want all present", s)
	}
	if s.Status != "connected" || s.BatterySOC != 85 || s.PVPower != 59.2 {
		t.Errorf("sample = %+v", s)
	}
}

// ─── WebSocket sink ─────────────────────────────────────────────────

type fakeBroadcaster struct {
	channel string
	payload any
}

func (f *fakeBroadcaster) Broadcast(channel string, payload any) {
	f.channel = channel
	f.payload = payload
}

func TestBroadcastSink_Publish(t *testing.T) {
	b := &fakeBroadcaster{}
	if err := NewBroadcastSink(b).Publish(context.Background(), testSnapshot()); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if b.channel != ReadingsChannel {
		t.Errorf("channel = %q, want %q", b.channel, ReadingsChannel)
	}
	p, ok := b.payload.(snapshotJSON)
	if !ok {
		t.Fatalf("payload type = %T", b.payload)
	}
	if p.ValidReadings != 1 || p.ConnectedDevices != 1 {
		t.Errorf("payload counts = %d/%d, want 1/1", p.ValidReadings, p.ConnectedDevices)
	}
	if p.Timestamp != "2026-03-01T12:00:00Z" {
		t.Errorf("Timestamp = %q", p.Timestamp)
	}
}

func TestSnapshot_PayloadEmpty(t *testing.T) {
	p := Snapshot{Time: testTime}.payload()
	if p.Readings == nil || p.Devices == nil {
		t.Error("empty snapshot payload should carry empty collections, not null")
	}
}

// ─── Poller ─────────────────────────────────────────────────────────

type sensorFunc func(ctx context.Context) []onewire.TemperatureReading

func (f sensorFunc) ReadAvailable(ctx context.Context) []onewire.TemperatureReading { return f(ctx) }

type recordingSink struct {
	name string
	err  error

	mu    sync.Mutex
	snaps []Snapshot
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snaps)
}

type fakeObserver struct {
	mu         sync.Mutex
	polls      int
	sinkErrors []string
}

func (o *fakeObserver) ObservePoll(time.Duration) {
	o.mu.Lock()
	o.polls++
	o.mu.Unlock()
}

func (o *fakeObserver) ObserveSinkError(sink string) {
	o.mu.Lock()
	o.sinkErrors = append(o.sinkErrors, sink)
	o.mu.Unlock()
}

func TestNewPoller_DefaultInterval(t *testing.T) {
	p := NewPoller(nil, nil, 0)
	if p.Interval() != DefaultInterval {
		t.Errorf("Interval() = %v, want %v", p.Interval(), DefaultInterval)
	}
	if _, ok := p.Latest(); ok {
		t.Error("Latest() before any cycle should report false")
	}
}

func TestPoller_PollOnce(t *testing.T) {
	ctx := context.Background()

	devices := renogy.NewRegistry(renogy.NewMockDriver())
	devices.Add("aa:bb:cc:dd:ee:01", time.Second)
	devices.Add("aa:bb:cc:dd:ee:02", time.Second)
	devices.ConnectAll(ctx)
	if d, ok := devices.Get("AA:BB:CC:DD:EE:02"); ok {
		d.Disconnect(ctx)
	}

	sensors := sensorFunc(func(context.Context) []onewire.TemperatureReading {
		return []onewire.TemperatureReading{validReading("28-000000000001", 20)}
	})

	failing := &recordingSink{name: "broken", err: errors.New("boom")}
	good := &recordingSink{name: "ok"}
	obs := &fakeObserver{}

	p := NewPoller(sensors, devices, time.Minute, failing, good)
	p.now = func() time.Time { return testTime }
	p.SetObserver(obs)

	snap := p.PollOnce(ctx)

	if !snap.Time.Equal(testTime) {
		t.Errorf("Time = %v, want %v", snap.Time, testTime)
	}
	if len(snap.Readings) != 1 || len(snap.Records) != 2 {
		t.Fatalf("snapshot has %d readings / %d records, want 1 / 2", len(snap.Readings), len(snap.Records))
	}
	if CountConnected(snap.Records) != 1 {
		t.Errorf("connected records = %d, want 1", CountConnected(snap.Records))
	}
	if failing.count() != 1 || good.count() != 1 {
		t.Errorf("sink calls = %d/%d, want 1/1", failing.count(), good.count())
	}
	if obs.polls != 1 {
		t.Errorf("observed polls = %d, want 1", obs.polls)
	}
	if len(obs.sinkErrors) != 1 || obs.sinkErrors[0] != "broken" {
		t.Errorf("sink errors = %v, want [broken]", obs.sinkErrors)
	}

	latest, polled := p.Latest()
	if !polled || len(latest.Records) != 2 {
		t.Errorf("Latest() = %d records, polled %v", len(latest.Records), polled)
	}
	devices.Close(ctx)
}

func TestPoller_NilSources(t *testing.T) {
	sink := &recordingSink{name: "ok"}
	snap := NewPoller(nil, nil, time.Minute, sink).PollOnce(context.Background())

	if snap.Readings != nil || snap.Records != nil {
		t.Errorf("snapshot = %+v, want empty", snap)
	}
	if sink.count() != 1 {
		t.Errorf("sink calls = %d, want 1", sink.count())
	}
}

func TestPoller_Sinks(t *testing.T) {
	p := NewPoller(nil, nil, time.Minute,
		NewMQTTSink(&fakeStatePublisher{}),
		NewInfluxSink(&fakePointWriter{}),
		NewMetricsSink(metrics.New()),
		NewBroadcastSink(&fakeBroadcaster{}),
	)
	want := []string{"mqtt", "influxdb", "metrics", "websocket"}
	got := p.Sinks()
	if len(got) != len(want) {
		t.Fatalf("Sinks() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sinks()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	sink := &recordingSink{name: "ok"}
	p := NewPoller(nil, nil, 10*time.Millisecond, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for sink.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("sink called %d times before deadline, want >= 2", sink.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}
