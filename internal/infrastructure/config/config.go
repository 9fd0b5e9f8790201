package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Renogy driver names accepted in renogy.driver.
const (
	DriverMock   = "mock"
	DriverModbus = "modbus"
)

// Config is the root configuration structure for offgrid-core.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	OneWire   OneWireConfig   `yaml:"onewire"`
	Renogy    RenogyConfig    `yaml:"renogy"`
	Poller    PollerConfig    `yaml:"poller"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings in seconds.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// OneWireConfig contains DS18B20 sensor settings.
type OneWireConfig struct {
	// BaseDir is the sysfs directory the w1 bus exposes its slaves under.
	BaseDir string `yaml:"base_dir"`

	// FamilyPrefix selects which slave directories discovery reports.
	FamilyPrefix string `yaml:"family_prefix"`

	// MaxRetries is the number of read attempts per temperature read.
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay is the pause between attempts (e.g. "200ms").
	RetryDelay time.Duration `yaml:"retry_delay"`

	// LoadModules runs modprobe for w1-gpio and w1-therm at startup.
	LoadModules bool `yaml:"load_modules"`

	// Sensors are registered at startup.
	Sensors []SensorEntry `yaml:"sensors"`
}

// SensorEntry is a sensor registered from configuration.
type SensorEntry struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// RenogyConfig contains charge controller settings.
type RenogyConfig struct {
	// Driver is "mock" or "modbus".
	Driver string `yaml:"driver"`

	// Timeout is the default per-device timeout in seconds.
	Timeout int `yaml:"timeout"`

	Modbus RenogyModbusConfig `yaml:"modbus"`

	// Devices are registered at startup.
	Devices []DeviceEntry `yaml:"devices"`
}

// RenogyModbusConfig configures the Modbus RTU driver.
type RenogyModbusConfig struct {
	SlaveID  int    `yaml:"slave_id"`
	DataBits int    `yaml:"data_bits"`
	StopBits int    `yaml:"stop_bits"`
	Parity   string `yaml:"parity"`

	// Ports maps a device address to the serial port bound to it
	// (for example an rfcomm device created by the BT-1 module pairing).
	Ports map[string]string `yaml:"ports"`
}

// DeviceEntry is a device registered from configuration.
type DeviceEntry struct {
	Address string `yaml:"address"`
	Timeout int    `yaml:"timeout"`
	Connect bool   `yaml:"connect"`
}

// PollerConfig controls the periodic read loop.
type PollerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: OFFGRID_SECTION_KEY
// For example: OFFGRID_DATABASE_PATH, OFFGRID_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=value pairs from the given files into the process
// environment. Missing files are skipped and variables that are already
// set are never overwritten.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "site-001",
			Name:     "Off-grid cabin",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/offgrid.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "offgrid-core",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8000,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		OneWire: OneWireConfig{
			BaseDir:      "/sys/bus/w1/devices",
			FamilyPrefix: "28",
			MaxRetries:   3,
			RetryDelay:   200 * time.Millisecond,
		},
		Renogy: RenogyConfig{
			Driver:  DriverMock,
			Timeout: 10,
			Modbus: RenogyModbusConfig{
				SlaveID:  1,
				DataBits: 8,
				StopBits: 1,
				Parity:   "N",
			},
		},
		Poller: PollerConfig{
			Interval: 30 * time.Second,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: OFFGRID_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Database
	if v := os.Getenv("OFFGRID_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("OFFGRID_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("OFFGRID_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("OFFGRID_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("OFFGRID_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("OFFGRID_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OFFGRID_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}

	// InfluxDB
	if v := os.Getenv("OFFGRID_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Hardware
	if v := os.Getenv("OFFGRID_ONEWIRE_BASE_DIR"); v != "" {
		cfg.OneWire.BaseDir = v
	}
	if v := os.Getenv("OFFGRID_RENOGY_DRIVER"); v != "" {
		cfg.Renogy.Driver = v
	}

	// Logging
	if v := os.Getenv("OFFGRID_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

var addressPattern = regexp.MustCompile(`^([0-9A-Fa-f]{2}:){5}[0-9A-Fa-f]{2}$`)

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.OneWire.BaseDir == "" {
		errs = append(errs, "onewire.base_dir is required")
	}
	if c.OneWire.MaxRetries < 1 {
		errs = append(errs, "onewire.max_retries must be at least 1")
	}
	if c.OneWire.RetryDelay < 0 {
		errs = append(errs, "onewire.retry_delay must not be negative")
	}
	for i, s := range c.OneWire.Sensors {
		if s.ID == "" || s.Name == "" {
			errs = append(errs, fmt.Sprintf("onewire.sensors[%d] needs both id and name", i))
		}
	}

	switch c.Renogy.Driver {
	case DriverMock, DriverModbus:
	default:
		errs = append(errs, fmt.Sprintf("renogy.driver %q must be %q or %q", c.Renogy.Driver, DriverMock, DriverModbus))
	}
	if c.Renogy.Timeout < 1 {
		errs = append(errs, "renogy.timeout must be at least 1 second")
	}
	for i, d := range c.Renogy.Devices {
		if !addressPattern.MatchString(d.Address) {
			errs = append(errs, fmt.Sprintf("renogy.devices[%d] has invalid address %q", i, d.Address))
		}
	}

	if c.Poller.Enabled && c.Poller.Interval <= 0 {
		errs = append(errs, "poller.interval must be positive when the poller is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}

// GetDeviceTimeout returns the default Renogy device timeout as a Duration.
func (c *Config) GetDeviceTimeout() time.Duration {
	return time.Duration(c.Renogy.Timeout) * time.Second
}
