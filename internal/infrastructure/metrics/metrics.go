package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "offgrid_"

	resultSuccess = "success"
	resultError   = "error"
	resultValid   = "valid"
	resultInvalid = "invalid"
)

// Metrics owns a Prometheus registry and the collectors the service
// updates. Each instance is independent, so tests can build their own.
type Metrics struct {
	registry *prometheus.Registry

	sensorReads       *prometheus.CounterVec
	sensorTemperature *prometheus.GaugeVec

	deviceConnects *prometheus.CounterVec
	deviceReads    *prometheus.CounterVec
	batterySOC     *prometheus.GaugeVec
	batteryVoltage *prometheus.GaugeVec
	pvPower        *prometheus.GaugeVec
	loadPower      *prometheus.GaugeVec

	pollCycles   prometheus.Counter
	pollDuration prometheus.Histogram
	sinkErrors   *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec
}

// New creates the collectors and registers them, along with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		sensorReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sensor_reads_total",
				Help: "Temperature sensor reads by result",
			},
			[]string{"result"},
		),
		sensorTemperature: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "sensor_temperature_celsius",
				Help: "Last valid temperature per sensor",
			},
			[]string{"sensor_id"},
		),

		deviceConnects: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "device_connects_total",
				Help: "Charge controller connection attempts by result",
			},
			[]string{"result"},
		),
		deviceReads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "device_reads_total",
				Help: "Charge controller reads by connection status",
			},
			[]string{"status"},
		),
		batterySOC: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "battery_soc_percent",
				Help: "Battery state of charge per controller",
			},
			[]string{"address"},
		),
		batteryVoltage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "battery_voltage_volts",
				Help: "Battery voltage per controller",
			},
			[]string{"address"},
		),
		pvPower: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "pv_power_watts",
				Help: "Solar array power per controller",
			},
			[]string{"address"},
		),
		loadPower: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: metricPrefix + "load_power_watts",
				Help: "Load output power per controller",
			},
			[]string{"address"},
		),

		pollCycles: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "poll_cycles_total",
			Help: "Completed telemetry poll cycles",
		}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "poll_duration_seconds",
			Help:    "Telemetry poll cycle duration in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		sinkErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sink_errors_total",
				Help: "Failed telemetry publishes by sink",
			},
			[]string{"sink"},
		),

		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by method, route and status code",
			},
			[]string{"method", "route", "code"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.sensorReads,
		m.sensorTemperature,
		m.deviceConnects,
		m.deviceReads,
		m.batterySOC,
		m.batteryVoltage,
		m.pvPower,
		m.loadPower,
		m.pollCycles,
		m.pollDuration,
		m.sinkErrors,
		m.httpRequests,
		m.httpLatency,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveSensorRead counts a temperature read and, when valid, records it.
func (m *Metrics) ObserveSensorRead(sensorID string, celsius float64, valid bool) {
	if !valid {
		m.sensorReads.WithLabelValues(resultInvalid).Inc()
		return
	}
	m.sensorReads.WithLabelValues(resultValid).Inc()
	m.sensorTemperature.WithLabelValues(sensorID).Set(celsius)
}

// ForgetSensor drops the per-sensor series.
func (m *Metrics) ForgetSensor(sensorID string) {
	m.sensorTemperature.DeleteLabelValues(sensorID)
}

// ObserveConnect counts a connection attempt.
func (m *Metrics) ObserveConnect(ok bool) {
	if ok {
		m.deviceConnects.WithLabelValues(resultSuccess).Inc()
		return
	}
	m.deviceConnects.WithLabelValues(resultError).Inc()
}

// DeviceSample carries the gauges published for one controller read.
type DeviceSample struct {
	Address        string
	Status         string
	HasBattery     bool
	BatterySOC     float64
	BatteryVoltage float64
	HasPV          bool
	PVPower        float64
	HasLoad        bool
	LoadPower      float64
}

// ObserveDeviceRead counts a controller read and updates the gauges for
// the domains it carried.
func (m *Metrics) ObserveDeviceRead(s DeviceSample) {
	m.deviceReads.WithLabelValues(s.Status).Inc()
	if s.HasBattery {
		m.batterySOC.WithLabelValues(s.Address).Set(s.BatterySOC)
		m.batteryVoltage.WithLabelValues(s.Address).Set(s.BatteryVoltage)
	}
	if s.HasPV {
		m.pvPower.WithLabelValues(s.Address).Set(s.PVPower)
	}
	if s.HasLoad {
		m.loadPower.WithLabelValues(s.Address).Set(s.LoadPower)
	}
}

// ForgetDevice drops the per-controller series.
func (m *Metrics) ForgetDevice(address string) {
	m.batterySOC.DeleteLabelValues(address)
	m.batteryVoltage.DeleteLabelValues(address)
	m.pvPower.DeleteLabelValues(address)
	m.loadPower.DeleteLabelValues(address)
}

// ObservePoll records one completed poll cycle.
func (m *Metrics) ObservePoll(d time.Duration) {
	m.pollCycles.Inc()
	m.pollDuration.Observe(d.Seconds())
}

// ObserveSinkError counts a failed publish to sink.
func (m *Metrics) ObserveSinkError(sink string) {
	m.sinkErrors.WithLabelValues(sink).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(d.Seconds())
}
