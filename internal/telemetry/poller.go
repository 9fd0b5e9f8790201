package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/offgridlab/offgrid-core/internal/onewire"
	"github.com/offgridlab/offgrid-core/internal/renogy"
)

// DefaultInterval is the poll interval used when none is configured.
const DefaultInterval = 30 * time.Second

// SensorSource supplies temperature readings. *onewire.Registry satisfies it.
type SensorSource interface {
	ReadAvailable(ctx context.Context) []onewire.TemperatureReading
}

// DeviceSource supplies controller records. *renogy.Registry satisfies it.
type DeviceSource interface {
	ReadAll(ctx context.Context) map[string]renogy.Record
}

// PollObserver is told about completed cycles and failed sinks.
// *metrics.Metrics satisfies it.
type PollObserver interface {
	ObservePoll(d time.Duration)
	ObserveSinkError(sink string)
}

// Logger defines the logging interface used by the Poller.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type noopObserver struct{}

func (noopObserver) ObservePoll(time.Duration) {}
func (noopObserver) ObserveSinkError(string)   {}

// Poller periodically reads both registries and fans the snapshot out to
// its sinks. A nil source is skipped.
type Poller struct {
	sensors  SensorSource
	devices  DeviceSource
	sinks    []Sink
	interval time.Duration
	now      func() time.Time

	logger   Logger
	observer PollObserver

	mu     sync.RWMutex
	latest Snapshot
	polled bool
}

// NewPoller creates a poller. A non-positive interval means DefaultInterval.
func NewPoller(sensors SensorSource, devices DeviceSource, interval time.Duration, sinks ...Sink) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		sensors:  sensors,
		devices:  devices,
		sinks:    sinks,
		interval: interval,
		now:      time.Now,
		logger:   noopLogger{},
		observer: noopObserver{},
	}
}

// SetLogger sets the logger for poll and sink failures.
func (p *Poller) SetLogger(logger Logger) {
	p.logger = logger
}

// SetObserver sets the receiver of cycle timings and sink failures.
func (p *Poller) SetObserver(o PollObserver) {
	p.observer = o
}

// Interval returns the time between cycles.
func (p *Poller) Interval() time.Duration { return p.interval }

// Sinks returns the names of the configured sinks in publish order.
func (p *Poller) Sinks() []string {
	names := make([]string, 0, len(p.sinks))
	for _, s := range p.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Run polls once immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("poller started", "interval", p.interval, "sinks", p.Sinks())

	p.PollOnce(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("poller stopped")
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce performs one read-and-publish cycle and returns the snapshot.
func (p *Poller) PollOnce(ctx context.Context) Snapshot {
	start := time.Now()

	snap := Snapshot{Time: p.now()}
	if p.sensors != nil {
		snap.Readings = p.sensors.ReadAvailable(ctx)
	}
	if p.devices != nil {
		snap.Records = p.devices.ReadAll(ctx)
	}

	p.mu.Lock()
	p.latest = snap
	p.polled = true
	p.mu.Unlock()

	for _, sink := range p.sinks {
		if ctx.Err() != nil {
			break
		}
		if err := sink.Publish(ctx, snap); err != nil {
			p.observer.ObserveSinkError(sink.Name())
			p.logger.Warn("sink publish failed", "sink", sink.Name(), "error", err)
		}
	}

	elapsed := time.Since(start)
	p.observer.ObservePoll(elapsed)
	p.logger.Debug("poll cycle complete",
		"readings", len(snap.Readings),
		"valid_readings", CountValid(snap.Readings),
		"devices", len(snap.Records),
		"connected_devices", CountConnected(snap.Records),
		"duration", elapsed,
	)
	return snap
}

// Latest returns the most recent snapshot and whether a cycle has run.
func (p *Poller) Latest() (Snapshot, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.latest, p.polled
}
