package renogy

import (
	"context"
	"sync"
	"time"
)

// DefaultTimeout is the per-device timeout when none is given.
const DefaultTimeout = 10 * time.Second

// notConnectedMessage is the error carried by records read while disconnected.
const notConnectedMessage = "Device not connected"

// DeviceStatus is a point-in-time copy of a device's state.
type DeviceStatus struct {
	Address   string           `json:"device_address"`
	Connected bool             `json:"connected"`
	Timeout   float64          `json:"timeout"`
	Status    ConnectionStatus `json:"status"`
}

// Device is the handle for one controller. Its connection state changes
// only through Connect and Disconnect.
//
// Two locks are used: io serialises driver calls (open, domain reads,
// close) and mu guards the state fields. mu is never held across driver
// I/O, so IsConnected and Status return at once while a slow open or read
// is in flight.
type Device struct {
	address string
	timeout time.Duration
	driver  Driver

	io sync.Mutex

	mu        sync.Mutex
	logger    Logger
	session   Session
	connected bool
}

// NewDevice creates a disconnected handle. The address is normalised and a
// non-positive timeout means DefaultTimeout.
func NewDevice(address string, timeout time.Duration, driver Driver) *Device {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Device{
		address: NormalizeAddress(address),
		timeout: timeout,
		driver:  driver,
		logger:  noopLogger{},
	}
}

// Address returns the normalised address.
func (d *Device) Address() string { return d.address }

// Timeout returns the configured connection timeout.
func (d *Device) Timeout() time.Duration { return d.timeout }

// IsConnected reports the current connection state.
func (d *Device) IsConnected() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connected
}

func (d *Device) log() Logger {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logger
}

// Status returns a copy of the device state.
func (d *Device) Status() DeviceStatus {
	connected := d.IsConnected()
	status := StatusDisconnected
	if connected {
		status = StatusConnected
	}
	return DeviceStatus{
		Address:   d.address,
		Connected: connected,
		Timeout:   d.timeout.Seconds(),
		Status:    status,
	}
}

// Connect opens a session and reports whether the device is connected
// afterwards. Connecting a connected device does nothing and returns true.
// Driver failures are logged and leave the device disconnected.
func (d *Device) Connect(ctx context.Context) bool {
	d.io.Lock()
	defer d.io.Unlock()

	if d.IsConnected() {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	session, err := d.driver.Open(ctx, d.address, d.timeout)

	d.mu.Lock()
	logger := d.logger
	if err != nil {
		d.session = nil
		d.connected = false
		d.mu.Unlock()
		logger.Error("device connect failed", "address", d.address, "driver", d.driver.Name(), "error", err)
		return false
	}
	d.session = session
	d.connected = true
	d.mu.Unlock()

	logger.Info("device connected", "address", d.address, "driver", d.driver.Name())
	return true
}

// Disconnect closes the session if there is one. It always leaves the
// device disconnected; close errors are logged. It waits for an in-flight
// Connect or ReadData on the same device.
func (d *Device) Disconnect(_ context.Context) {
	d.io.Lock()
	defer d.io.Unlock()

	d.mu.Lock()
	session, wasConnected, logger := d.session, d.connected, d.logger
	d.session = nil
	d.connected = false
	d.mu.Unlock()

	if session != nil {
		if err := session.Close(); err != nil {
			logger.Warn("device disconnect error", "address", d.address, "error", err)
		}
	}
	if wasConnected {
		logger.Info("device disconnected", "address", d.address)
	}
}

// ReadData reads the three telemetry domains in order: battery, pv, load.
//
// A disconnected device returns StatusDisconnected without any I/O. If any
// domain read fails the record carries StatusError and the message, and
// domains read before the failure are dropped.
func (d *Device) ReadData(ctx context.Context) Record {
	rec := Record{
		Address:   d.address,
		Timestamp: time.Now(),
	}

	d.io.Lock()
	defer d.io.Unlock()

	d.mu.Lock()
	session, connected := d.session, d.connected
	d.mu.Unlock()

	if !connected || session == nil {
		rec.Status = StatusDisconnected
		rec.Error = notConnectedMessage
		return rec
	}

	battery, err := session.ReadBattery(ctx)
	if err != nil {
		return d.readFailed(rec, "battery", err)
	}
	pv, err := session.ReadPV(ctx)
	if err != nil {
		return d.readFailed(rec, "pv", err)
	}
	load, err := session.ReadLoad(ctx)
	if err != nil {
		return d.readFailed(rec, "load", err)
	}

	rec.Battery = battery
	rec.PV = pv
	rec.Load = load
	rec.Status = StatusConnected
	return rec
}

func (d *Device) readFailed(rec Record, domain string, err error) Record {
	d.log().Error("device read failed", "address", d.address, "domain", domain, "error", err)
	rec.Status = StatusError
	rec.Error = err.Error()
	return rec
}
