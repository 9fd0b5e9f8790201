package renogy

import (
	"context"
	"time"
)

// BaudRate is the serial speed Renogy controllers use on their RS-232/RS-485
// port, and the rate the Bluetooth modules bridge at.
const BaudRate = 9600

// Driver opens sessions to controllers. Implementations are chosen once,
// when the Registry is built.
type Driver interface {
	// Name identifies the driver in logs and status output.
	Name() string

	// Open connects to the controller at address and checks that it
	// answers. It returns an error if either step fails.
	Open(ctx context.Context, address string, timeout time.Duration) (Session, error)
}

// Session is an open connection owned by exactly one Device.
//
// Each Read method returns the populated domain, nil when the controller
// does not report that domain, or an error when the exchange failed.
type Session interface {
	ReadBattery(ctx context.Context) (*BatteryData, error)
	ReadPV(ctx context.Context) (*PVData, error)
	ReadLoad(ctx context.Context) (*LoadData, error)
	Close() error
}

// Fixed values returned by the mock driver.
var (
	MockBattery = BatteryData{Voltage: 12.5, Current: 2.3, Power: 28.75, SOC: 85, Temperature: 25.5}
	MockPV      = PVData{Voltage: 18.2, Current: 1.8, Power: 32.76}
	MockLoad    = LoadData{Voltage: 12.1, Current: 0.5, Power: 6.05}
)

// MockDriver simulates a controller. Open always succeeds and every read
// returns the Mock* values. It is used when no real hardware path is
// configured.
type MockDriver struct{}

// NewMockDriver returns the simulation driver.
func NewMockDriver() *MockDriver { return &MockDriver{} }

// Name implements Driver.
func (*MockDriver) Name() string { return "mock" }

// Open implements Driver.
func (*MockDriver) Open(context.Context, string, time.Duration) (Session, error) {
	return mockSession{}, nil
}

type mockSession struct{}

func (mockSession) ReadBattery(context.Context) (*BatteryData, error) {
	b := MockBattery
	return &b, nil
}

func (mockSession) ReadPV(context.Context) (*PVData, error) {
	pv := MockPV
	return &pv, nil
}

func (mockSession) ReadLoad(context.Context) (*LoadData, error) {
	l := MockLoad
	return &l, nil
}

func (mockSession) Close() error { return nil }
