package renogy

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/goburrow/modbus"
)

// Renogy Rover holding registers.
const (
	regSystemRating = 0x000A // rated voltage (high byte) and current (low byte)

	regBatterySOC   = 0x0100
	regBatteryBlock = 4 // SOC, voltage, charging current, temperatures
	regLoadVoltage  = 0x0104
	regLoadBlock    = 3 // voltage, current, power
	regPVVoltage    = 0x0107
	regPVBlock      = 3 // voltage, current, power

	bytesPerRegister   = 2
	defaultModbusSlave = 1
)

// ModbusConfig configures ModbusDriver.
type ModbusConfig struct {
	// SlaveID is the controller's Modbus address (1 by default; BT-1 modules often use 255).
	SlaveID  byte
	DataBits int
	StopBits int
	Parity   string

	// Ports maps normalised device addresses to serial ports.
	Ports map[string]string
}

// registerClient is the part of modbus.Client a session uses.
type registerClient interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// transport opens a register client on a serial port.
type transport func(port string, cfg ModbusConfig, timeout time.Duration) (registerClient, io.Closer, error)

// ModbusDriver talks Modbus RTU to a controller over the serial port bound
// to its Bluetooth module.
type ModbusDriver struct {
	cfg  ModbusConfig
	dial transport
}

// NewModbusDriver returns a driver using cfg. Port keys are normalised.
func NewModbusDriver(cfg ModbusConfig) *ModbusDriver {
	ports := make(map[string]string, len(cfg.Ports))
	for addr, port := range cfg.Ports {
		ports[NormalizeAddress(addr)] = port
	}
	cfg.Ports = ports
	if cfg.SlaveID == 0 {
		cfg.SlaveID = defaultModbusSlave
	}
	if cfg.DataBits == 0 {
		cfg.DataBits = 8
	}
	if cfg.StopBits == 0 {
		cfg.StopBits = 1
	}
	if cfg.Parity == "" {
		cfg.Parity = "N"
	}
	return &ModbusDriver{cfg: cfg, dial: dialRTU}
}

// Name implements Driver.
func (*ModbusDriver) Name() string { return "modbus" }

// Open implements Driver. The self-test reads the system rating register.
func (d *ModbusDriver) Open(ctx context.Context, address string, timeout time.Duration) (Session, error) {
	port, ok := d.cfg.Ports[NormalizeAddress(address)]
	if !ok {
		return nil, fmt.Errorf("%w for %s", ErrNoSerialPort, address)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client, closer, err := d.dial(port, d.cfg, timeout)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", port, err)
	}

	if _, err := readRegisters(ctx, client, regSystemRating, 1); err != nil {
		closer.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("self-test on %s: %w", port, err)
	}

	return &modbusSession{client: client, closer: closer}, nil
}

func dialRTU(port string, cfg ModbusConfig, timeout time.Duration) (registerClient, io.Closer, error) {
	handler := modbus.NewRTUClientHandler(port)
	handler.BaudRate = BaudRate
	handler.DataBits = cfg.DataBits
	handler.StopBits = cfg.StopBits
	handler.Parity = cfg.Parity
	handler.SlaveId = cfg.SlaveID
	handler.Timeout = timeout

	if err := handler.Connect(); err != nil {
		return nil, nil, err
	}
	return modbus.NewClient(handler), handler, nil
}

type modbusSession struct {
	client registerClient
	closer io.Closer
}

func (s *modbusSession) ReadBattery(ctx context.Context) (*BatteryData, error) {
	data, err := readRegisters(ctx, s.client, regBatterySOC, regBatteryBlock)
	if err != nil {
		return nil, fmt.Errorf("reading battery registers: %w", err)
	}
	return decodeBattery(data), nil
}

func (s *modbusSession) ReadPV(ctx context.Context) (*PVData, error) {
	data, err := readRegisters(ctx, s.client, regPVVoltage, regPVBlock)
	if err != nil {
		return nil, fmt.Errorf("reading pv registers: %w", err)
	}
	pv := PVData(decodeTriple(data))
	return &pv, nil
}

func (s *modbusSession) ReadLoad(ctx context.Context) (*LoadData, error) {
	data, err := readRegisters(ctx, s.client, regLoadVoltage, regLoadBlock)
	if err != nil {
		return nil, fmt.Errorf("reading load registers: %w", err)
	}
	load := LoadData(decodeTriple(data))
	return &load, nil
}

func (s *modbusSession) Close() error {
	return s.closer.Close()
}

// readRegisters reads quantity holding registers and checks the length.
func readRegisters(ctx context.Context, c registerClient, address, quantity uint16) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := c.ReadHoldingRegisters(address, quantity)
	if err != nil {
		return nil, err
	}
	if want := int(quantity) * bytesPerRegister; len(data) < want {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrShortResponse, len(data), want)
	}
	return data, nil
}

func register(data []byte, i int) uint16 {
	return binary.BigEndian.Uint16(data[i*bytesPerRegister:])
}

// decodeBattery decodes registers 0x0100-0x0103.
func decodeBattery(data []byte) *BatteryData {
	voltage := float64(register(data, 1)) / 10
	current := float64(register(data, 2)) / 100
	return &BatteryData{
		SOC:         int(register(data, 0)),
		Voltage:     voltage,
		Current:     current,
		Power:       math.Round(voltage*current*100) / 100,
		Temperature: float64(signMagnitude(byte(register(data, 3) & 0xFF))),
	}
}

type triple struct {
	Voltage float64
	Current float64
	Power   float64
}

// decodeTriple decodes a voltage (0.1 V), current (0.01 A), power (1 W) block.
func decodeTriple(data []byte) triple {
	return triple{
		Voltage: float64(register(data, 0)) / 10,
		Current: float64(register(data, 1)) / 100,
		Power:   float64(register(data, 2)),
	}
}

// signMagnitude decodes Renogy's temperature bytes: bit 7 is the sign.
func signMagnitude(b byte) int {
	v := int(b & 0x7F)
	if b&0x80 != 0 {
		return -v
	}
	return v
}
