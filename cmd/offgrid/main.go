// offgrid-core - telemetry service for small off-grid power systems.
//
// It reads DS18B20 temperature probes from the Linux 1-Wire bus and Renogy
// charge controllers over their BT-1 serial bridge, keeps a log of manual
// time entries, and exposes all of it over a REST/WebSocket API. Poll
// snapshots can additionally be published to MQTT, InfluxDB and Prometheus.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/offgridlab/offgrid-core/internal/api"
	"github.com/offgridlab/offgrid-core/internal/infrastructure/config"
	"github.com/offgridlab/offgrid-core/internal/infrastructure/database"
	"github.com/offgridlab/offgrid-core/internal/infrastructure/influxdb"
	"github.com/offgridlab/offgrid-core/internal/infrastructure/logging"
	"github.com/offgridlab/offgrid-core/internal/infrastructure/metrics"
	"github.com/offgridlab/offgrid-core/internal/infrastructure/mqtt"
	"github.com/offgridlab/offgrid-core/internal/onewire"
	"github.com/offgridlab/offgrid-core/internal/renogy"
	"github.com/offgridlab/offgrid-core/internal/telemetry"
	"github.com/offgridlab/offgrid-core/internal/timetrack"
	"github.com/offgridlab/offgrid-core/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// shutdownTimeout bounds device disconnects on the way out.
const shutdownTimeout = 15 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on a clean shutdown.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting offgrid-core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	if err := config.LoadDotEnv(".env"); err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	loc, err := time.LoadLocation(cfg.Site.Timezone)
	if err != nil {
		return fmt.Errorf("loading site timezone %q: %w", cfg.Site.Timezone, err)
	}

	// Database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx, migrations.FS); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	tracker := timetrack.NewTracker(timetrack.NewSQLiteRepository(db.DB))

	// Hardware registries
	sensors := setupSensors(ctx, cfg.OneWire, log)
	log.Info("sensor registry initialised", "sensors", sensors.Len(), "base_dir", sensors.BaseDir())

	devices := renogy.NewRegistry(newDriver(cfg.Renogy))
	devices.SetLogger(log.Component("renogy"))
	registerDevices(ctx, devices, cfg.Renogy, log)
	defer func() {
		log.Info("disconnecting charge controllers")
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		devices.Close(closeCtx)
	}()
	log.Info("device registry initialised", "devices", devices.Len(), "driver", devices.DriverName())

	// MQTT (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		mqttClient.SetLogger(log.Component("mqtt"))
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		log.Info("MQTT connected",
			"broker", mqtt.BrokerURL(cfg.MQTT),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	var prom *metrics.Metrics
	if cfg.Metrics.Enabled {
		prom = metrics.New()
	}

	// The hub is created here so the poller can broadcast on it.
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	go hub.Run(ctx)

	var poller *telemetry.Poller
	if cfg.Poller.Enabled {
		poller = telemetry.NewPoller(sensors, devices, cfg.Poller.Interval,
			buildSinks(hub, mqttClient, influxClient, prom)...)
		poller.SetLogger(log.Component("poller"))
		if prom != nil {
			poller.SetObserver(prom)
		}
		go poller.Run(ctx)
	} else {
		log.Info("poller disabled")
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	srv, err := api.New(api.Deps{
		Config:     cfg.API,
		WS:         cfg.WebSocket,
		Metrics:    cfg.Metrics,
		Logger:     log,
		Sensors:    sensors,
		Devices:    devices,
		Tracker:    tracker,
		DB:         db,
		MQTT:       mqttClient,
		InfluxDB:   influxClient,
		Prometheus: prom,
		Poller:     poller,
		Hub:        hub,
		Location:   loc,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := srv.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred calls run in reverse order: API server, InfluxDB, MQTT,
	// charge controllers, database.

	log.Info("offgrid-core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses OFFGRID_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("OFFGRID_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// setupSensors builds the 1-Wire registry and registers configured sensors.
// Kernel module loading failures are logged only; the bus may already be up.
func setupSensors(ctx context.Context, cfg config.OneWireConfig, log *logging.Logger) *onewire.Registry {
	if cfg.LoadModules {
		if err := onewire.LoadKernelModules(ctx, log); err != nil {
			log.Warn("1-Wire kernel modules not loaded", "error", err)
		}
	}

	reg := onewire.NewRegistry(onewire.Config{
		BaseDir:      cfg.BaseDir,
		FamilyPrefix: cfg.FamilyPrefix,
		Retry: onewire.RetryPolicy{
			MaxRetries: cfg.MaxRetries,
			Delay:      cfg.RetryDelay,
		},
	})
	reg.SetLogger(log.Component("onewire"))

	for _, s := range cfg.Sensors {
		sensor := reg.Add(s.ID, s.Name)
		if !sensor.Available() {
			log.Warn("configured sensor not present on bus", "sensor_id", s.ID, "path", sensor.DevicePath())
		}
	}
	return reg
}

// newDriver selects the charge controller driver named in cfg.
func newDriver(cfg config.RenogyConfig) renogy.Driver {
	if cfg.Driver == config.DriverModbus {
		return renogy.NewModbusDriver(renogy.ModbusConfig{
			SlaveID:  byte(cfg.Modbus.SlaveID),
			DataBits: cfg.Modbus.DataBits,
			StopBits: cfg.Modbus.StopBits,
			Parity:   cfg.Modbus.Parity,
			Ports:    cfg.Modbus.Ports,
		})
	}
	return renogy.NewMockDriver()
}

// registerDevices adds configured devices and connects those marked with
// connect. A failed connect is logged and the device stays registered.
func registerDevices(ctx context.Context, reg *renogy.Registry, cfg config.RenogyConfig, log *logging.Logger) {
	defaultTimeout := time.Duration(cfg.Timeout) * time.Second
	for _, d := range cfg.Devices {
		timeout := defaultTimeout
		if d.Timeout > 0 {
			timeout = time.Duration(d.Timeout) * time.Second
		}
		dev := reg.Add(d.Address, timeout)
		if d.Connect && !dev.Connect(ctx) {
			log.Warn("configured device did not connect", "address", dev.Address())
		}
	}
}

// buildSinks returns the poll sinks for the links that are up. The
// WebSocket hub is always a sink.
func buildSinks(hub *api.Hub, mqttClient *mqtt.Client, influxClient *influxdb.Client, prom *metrics.Metrics) []telemetry.Sink {
	sinks := []telemetry.Sink{telemetry.NewBroadcastSink(hub)}
	if mqttClient != nil {
		sinks = append(sinks, telemetry.NewMQTTSink(mqttClient))
	}
	if influxClient != nil {
		sinks = append(sinks, telemetry.NewInfluxSink(influxClient))
	}
	if prom != nil {
		sinks = append(sinks, telemetry.NewMetricsSink(prom))
	}
	return sinks
}

// healthCheck verifies the enabled infrastructure connections. MQTT and
// InfluxDB are skipped when nil.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
