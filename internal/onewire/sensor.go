package onewire

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"
)

// dataFile is the name of the w1-therm slave file inside a sensor directory.
const dataFile = "w1_slave"

// Default retry settings for ReadTemperature.
const (
	DefaultMaxRetries = 3
	DefaultRetryDelay = 200 * time.Millisecond
)

// RetryPolicy bounds how often a temperature read is attempted.
type RetryPolicy struct {
	// MaxRetries is the total number of attempts. Values below 1 mean 1.
	MaxRetries int

	// Delay is the pause between attempts. There is no pause after the last one.
	Delay time.Duration
}

// DefaultRetryPolicy returns 3 attempts 200ms apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: DefaultMaxRetries, Delay: DefaultRetryDelay}
}

func (p RetryPolicy) attempts() int {
	if p.MaxRetries < 1 {
		return 1
	}
	return p.MaxRetries
}

// SensorInfo describes a registered sensor and whether it is present now.
type SensorInfo struct {
	SensorID    string `json:"sensor_id"`
	SensorName  string `json:"sensor_name"`
	DevicePath  string `json:"device_path"`
	DeviceFile  string `json:"device_file"`
	IsAvailable bool   `json:"is_available"`
	BaseDir     string `json:"base_dir"`
}

// Sensor is the handle for one DS18B20 probe. It carries identity and
// location only; every call goes back to the filesystem.
type Sensor struct {
	id      string
	name    string
	baseDir string
	fsys    fs.FS
	logger  Logger
}

// NewSensor creates a handle for sensor id under fsys, whose root is the
// bus directory baseDir. The sensor does not have to exist yet.
func NewSensor(fsys fs.FS, baseDir, id, name string) *Sensor {
	return &Sensor{
		id:      id,
		name:    name,
		baseDir: baseDir,
		fsys:    fsys,
		logger:  noopLogger{},
	}
}

// ID returns the sensor id, e.g. "28-0000000000ab".
func (s *Sensor) ID() string { return s.id }

// Name returns the human label.
func (s *Sensor) Name() string { return s.name }

// DevicePath returns the sensor's directory on the host.
func (s *Sensor) DevicePath() string { return filepath.Join(s.baseDir, s.id) }

// DeviceFile returns the path of the sensor's w1_slave file on the host.
func (s *Sensor) DeviceFile() string { return filepath.Join(s.baseDir, s.id, dataFile) }

// Available reports whether both the sensor directory and its data file
// exist right now.
func (s *Sensor) Available() bool {
	return s.exists(s.id) && s.exists(s.dataPath())
}

// Info returns a snapshot of the sensor, including a fresh availability check.
func (s *Sensor) Info() SensorInfo {
	return SensorInfo{
		SensorID:    s.id,
		SensorName:  s.name,
		DevicePath:  s.DevicePath(),
		DeviceFile:  s.DeviceFile(),
		IsAvailable: s.Available(),
		BaseDir:     s.baseDir,
	}
}

// ReadTemperature reads the sensor, retrying per policy.
//
// A missing sensor directory fails immediately without touching the data
// file. Otherwise each attempt reads and parses w1_slave, returning as soon
// as one succeeds. Failure is reported in the returned reading, never as a
// Go error. Cancelling ctx stops the wait between attempts.
func (s *Sensor) ReadTemperature(ctx context.Context, policy RetryPolicy) TemperatureReading {
	start := time.Now()

	if !s.exists(s.id) {
		return invalidReading(s, start, fmt.Sprintf("Sensor %s not found", s.id))
	}

	attempts := policy.attempts()
	for attempt := 1; attempt <= attempts; attempt++ {
		lines, err := s.readRaw()
		switch {
		case err != nil:
			s.logger.Debug("sensor raw read failed", "sensor_id", s.id, "attempt", attempt, "error", err)
			if attempt == attempts {
				return invalidReading(s, start, "Failed to read sensor data")
			}
		default:
			if celsius, ok := ParseTemperature(lines); ok {
				return validReading(s, start, celsius)
			}
			s.logger.Debug("sensor data not ready", "sensor_id", s.id, "attempt", attempt)
		}

		if attempt < attempts {
			if err := sleep(ctx, policy.Delay); err != nil {
				return invalidReading(s, start, fmt.Sprintf("Read cancelled: %v", err))
			}
		}
	}

	s.logger.Warn("sensor read exhausted retries", "sensor_id", s.id, "attempts", attempts)
	return invalidReading(s, start, fmt.Sprintf("Failed to read valid temperature after %d attempts", attempts))
}

// readRaw returns the lines of w1_slave.
func (s *Sensor) readRaw() ([]string, error) {
	if !validID(s.id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSensorID, s.id)
	}
	data, err := fs.ReadFile(s.fsys, s.dataPath())
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", s.DeviceFile(), err)
	}
	return splitLines(string(data)), nil
}

func (s *Sensor) dataPath() string {
	return s.id + "/" + dataFile
}

// exists stats name inside the bus filesystem. Ids that are not a single
// path element never exist.
func (s *Sensor) exists(name string) bool {
	if !validID(s.id) || !fs.ValidPath(name) {
		return false
	}
	_, err := fs.Stat(s.fsys, name)
	return err == nil
}

// validID reports whether id names a single directory entry of the bus.
func validID(id string) bool {
	return id != "" && id != "." && !strings.Contains(id, "/") && fs.ValidPath(id)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
