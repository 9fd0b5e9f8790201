package onewire

import (
	"context"
	"io/fs"
	"os"
	"sort"
	"sync"
)

// Defaults for Config fields left empty.
const (
	DefaultBaseDir      = "/sys/bus/w1/devices"
	DefaultFamilyPrefix = "28"
)

// Logger defines the logging interface used by the Registry.
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

// Config configures a Registry.
type Config struct {
	// BaseDir is the bus directory holding one entry per slave.
	BaseDir string

	// FamilyPrefix filters Discover results. Defaults to "28" (DS18B20).
	FamilyPrefix string

	// Retry is used by ReadAll and ReadAvailable. Zero means DefaultRetryPolicy.
	Retry RetryPolicy
}

// Summary counts registered sensors by current availability.
type Summary struct {
	TotalSensors       int          `json:"total_sensors"`
	AvailableSensors   int          `json:"available_sensors"`
	UnavailableSensors int          `json:"unavailable_sensors"`
	Sensors            []SensorInfo `json:"sensors"`
}

// Registry holds the registered sensors, keyed by sensor id.
//
// All public methods are thread-safe. Reads take a snapshot of the handles
// under the lock and then touch the filesystem without holding it.
type Registry struct {
	fsys    fs.FS
	baseDir string
	prefix  string
	retry   RetryPolicy

	sensors map[string]*Sensor
	mu      sync.RWMutex
	logger  Logger
}

// NewRegistry creates a registry rooted at cfg.BaseDir on the host filesystem.
func NewRegistry(cfg Config) *Registry {
	if cfg.BaseDir == "" {
		cfg.BaseDir = DefaultBaseDir
	}
	return NewRegistryFS(os.DirFS(cfg.BaseDir), cfg)
}

// NewRegistryFS creates a registry over fsys, which stands in for the bus
// directory cfg.BaseDir. cfg.BaseDir is then only used for reported paths.
func NewRegistryFS(fsys fs.FS, cfg Config) *Registry {
	if cfg.BaseDir == "" {
		cfg.BaseDir = DefaultBaseDir
	}
	if cfg.FamilyPrefix == "" {
		cfg.FamilyPrefix = DefaultFamilyPrefix
	}
	if cfg.Retry == (RetryPolicy{}) {
		cfg.Retry = DefaultRetryPolicy()
	}
	return &Registry{
		fsys:    fsys,
		baseDir: cfg.BaseDir,
		prefix:  cfg.FamilyPrefix,
		retry:   cfg.Retry,
		sensors: make(map[string]*Sensor),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry and the sensors it creates.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
	for _, s := range r.sensors {
		s.logger = logger
	}
}

// BaseDir returns the bus directory the registry reads from.
func (r *Registry) BaseDir() string { return r.baseDir }

// RetryPolicy returns the policy used for bulk reads.
func (r *Registry) RetryPolicy() RetryPolicy { return r.retry }

// Discover lists the bus entries whose names start with the family prefix.
// The order is whatever the directory scan yields. A failed scan returns an
// empty list.
func (r *Registry) Discover() []string {
	matches, err := fs.Glob(r.fsys, r.prefix+"*")
	if err != nil {
		r.logger.Warn("sensor discovery failed", "base_dir", r.baseDir, "error", err)
		return []string{}
	}
	if matches == nil {
		matches = []string{}
	}
	r.logger.Debug("sensor discovery complete", "count", len(matches))
	return matches
}

// Add registers a sensor and returns its handle. Registering an id again
// replaces the previous handle, which is how a sensor is renamed. The
// sensor does not need to exist on the bus.
func (r *Registry) Add(id, name string) *Sensor {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := NewSensor(r.fsys, r.baseDir, id, name)
	s.logger = r.logger
	r.sensors[id] = s

	r.logger.Info("sensor added", "sensor_id", id, "sensor_name", name)
	return s
}

// AddIfAbsent registers a sensor unless id is already taken. It reports
// false, and returns the existing handle, when it was.
func (r *Registry) AddIfAbsent(id, name string) (*Sensor, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sensors[id]; ok {
		return existing, false
	}

	s := NewSensor(r.fsys, r.baseDir, id, name)
	s.logger = r.logger
	r.sensors[id] = s

	r.logger.Info("sensor added", "sensor_id", id, "sensor_name", name)
	return s, true
}

// Remove unregisters a sensor and reports whether it was registered.
func (r *Registry) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sensors[id]; !ok {
		return false
	}
	delete(r.sensors, id)

	r.logger.Info("sensor removed", "sensor_id", id)
	return true
}

// Get returns the handle registered under id.
func (r *Registry) Get(id string) (*Sensor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sensors[id]
	return s, ok
}

// Len returns the number of registered sensors.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sensors)
}

// List returns info for every registered sensor, ordered by id, with a
// live availability check for each.
func (r *Registry) List() []SensorInfo {
	sensors := r.snapshot()
	infos := make([]SensorInfo, 0, len(sensors))
	for _, s := range sensors {
		infos = append(infos, s.Info())
	}
	return infos
}

// ReadTemperature reads one registered sensor with the registry's retry
// policy. It reports false when id is not registered.
func (r *Registry) ReadTemperature(ctx context.Context, id string) (TemperatureReading, bool) {
	s, ok := r.Get(id)
	if !ok {
		return TemperatureReading{}, false
	}
	return s.ReadTemperature(ctx, r.retry), true
}

// ReadAll reads every registered sensor one after another and returns one
// reading per sensor, including unavailable ones.
func (r *Registry) ReadAll(ctx context.Context) []TemperatureReading {
	sensors := r.snapshot()
	readings := make([]TemperatureReading, 0, len(sensors))
	for _, s := range sensors {
		readings = append(readings, s.ReadTemperature(ctx, r.retry))
	}
	return readings
}

// ReadAvailable is ReadAll restricted to sensors that are present right now.
func (r *Registry) ReadAvailable(ctx context.Context) []TemperatureReading {
	sensors := r.snapshot()
	readings := make([]TemperatureReading, 0, len(sensors))
	for _, s := range sensors {
		if !s.Available() {
			continue
		}
		readings = append(readings, s.ReadTemperature(ctx, r.retry))
	}
	return readings
}

// Summary counts sensors by availability and embeds the List output.
func (r *Registry) Summary() Summary {
	infos := r.List()
	available := 0
	for _, info := range infos {
		if info.IsAvailable {
			available++
		}
	}
	return Summary{
		TotalSensors:       len(infos),
		AvailableSensors:   available,
		UnavailableSensors: len(infos) - available,
		Sensors:            infos,
	}
}

// snapshot returns the registered handles ordered by id.
func (r *Registry) snapshot() []*Sensor {
	r.mu.RLock()
	sensors := make([]*Sensor, 0, len(r.sensors))
	for _, s := range r.sensors {
		sensors = append(sensors, s)
	}
	r.mu.RUnlock()

	sort.Slice(sensors, func(i, j int) bool {
		return sensors[i].id < sensors[j].id
	})
	return sensors
}
