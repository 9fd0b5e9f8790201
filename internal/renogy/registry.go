package renogy

import (
	"context"
	"sort"
	"sync"
	"time"
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

// Registry holds devices keyed by normalised address.
//
// All public methods are thread-safe. Bulk operations work on a snapshot
// of the handles and visit them one at a time, so their latency grows with
// the number of devices.
//
// Removing (or replacing) a connected device drops it from the map at once
// and disconnects it in a background goroutine. Close waits for those.
type Registry struct {
	driver Driver

	devices map[string]*Device
	mu      sync.RWMutex
	logger  Logger

	pending sync.WaitGroup
}

// NewRegistry creates an empty registry whose devices use driver.
func NewRegistry(driver Driver) *Registry {
	if driver == nil {
		driver = NewMockDriver()
	}
	return &Registry{
		driver:  driver,
		devices: make(map[string]*Device),
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the registry and the devices it creates.
func (r *Registry) SetLogger(logger Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
	for _, d := range r.devices {
		d.mu.Lock()
		d.logger = logger
		d.mu.Unlock()
	}
}

// DriverName returns the name of the driver devices are opened with.
func (r *Registry) DriverName() string { return r.driver.Name() }

// Add creates a disconnected device for address and stores it. An existing
// device under the same address is replaced and disconnected in the
// background.
func (r *Registry) Add(address string, timeout time.Duration) *Device {
	dev, _ := r.add(address, timeout, true)
	return dev
}

// AddIfAbsent stores a new disconnected device for address unless one is
// already registered. It reports false, and returns the existing handle,
// when the address was taken.
func (r *Registry) AddIfAbsent(address string, timeout time.Duration) (*Device, bool) {
	return r.add(address, timeout, false)
}

func (r *Registry) add(address string, timeout time.Duration, replace bool) (*Device, bool) {
	dev := NewDevice(address, timeout, r.driver)

	r.mu.Lock()
	old, exists := r.devices[dev.address]
	if exists && !replace {
		r.mu.Unlock()
		return old, false
	}
	dev.logger = r.logger
	r.devices[dev.address] = dev
	logger := r.logger
	r.mu.Unlock()

	if exists {
		r.disconnectDetached(old)
	}

	logger.Info("device added", "address", dev.address, "timeout", dev.timeout)
	return dev, true
}

// Get returns the device stored under address, in any letter case.
func (r *Registry) Get(address string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[NormalizeAddress(address)]
	return d, ok
}

// Remove deletes the device and reports whether it existed. A connected
// device is disconnected in the background; Remove does not wait for it.
func (r *Registry) Remove(address string) bool {
	key := NormalizeAddress(address)

	r.mu.Lock()
	dev, ok := r.devices[key]
	delete(r.devices, key)
	logger := r.logger
	r.mu.Unlock()

	if !ok {
		return false
	}

	r.disconnectDetached(dev)
	logger.Info("device removed", "address", key)
	return true
}

// disconnectDetached disconnects dev in a tracked goroutine. The caller
// never touches the device, so a connect or read still running on it does
// not hold up removal. The outcome is only logged.
func (r *Registry) disconnectDetached(dev *Device) {
	r.pending.Add(1)
	go func() {
		defer r.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dev.Timeout())
		defer cancel()
		dev.Disconnect(ctx)
		dev.log().Debug("background disconnect finished", "address", dev.Address())
	}()
}

// List returns the registered addresses in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	addrs := make([]string, 0, len(r.devices))
	for addr := range r.devices {
		addrs = append(addrs, addr)
	}
	r.mu.RUnlock()

	sort.Strings(addrs)
	return addrs
}

// Len returns the number of registered devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Statuses returns a copy of every device's state, ordered by address.
func (r *Registry) Statuses() []DeviceStatus {
	devices := r.snapshot()
	out := make([]DeviceStatus, 0, len(devices))
	for _, d := range devices {
		out = append(out, d.Status())
	}
	return out
}

// ConnectAll connects every device in turn and returns the outcome per address.
func (r *Registry) ConnectAll(ctx context.Context) map[string]bool {
	devices := r.snapshot()
	results := make(map[string]bool, len(devices))
	for _, d := range devices {
		results[d.address] = d.Connect(ctx)
	}
	return results
}

// DisconnectAll disconnects every connected device in turn.
func (r *Registry) DisconnectAll(ctx context.Context) {
	for _, d := range r.snapshot() {
		if d.IsConnected() {
			d.Disconnect(ctx)
		}
	}
}

// ReadAll reads every device in turn. Disconnected devices contribute a
// StatusDisconnected record without I/O.
func (r *Registry) ReadAll(ctx context.Context) map[string]Record {
	devices := r.snapshot()
	records := make(map[string]Record, len(devices))
	for _, d := range devices {
		records[d.address] = d.ReadData(ctx)
	}
	return records
}

// Close disconnects every device and waits for background disconnects
// started by Remove or Add.
func (r *Registry) Close(ctx context.Context) {
	r.DisconnectAll(ctx)
	r.pending.Wait()
}

// snapshot returns the registered handles ordered by address.
func (r *Registry) snapshot() []*Device {
	r.mu.RLock()
	devices := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, d)
	}
	r.mu.RUnlock()

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].address < devices[j].address
	})
	return devices
}
