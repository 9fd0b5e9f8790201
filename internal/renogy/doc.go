// Package renogy manages Renogy solar charge controllers reached through a
// BT-1/BT-2 Bluetooth module.
//
// Each controller is a Device keyed by its Bluetooth address, normalised to
// upper case. A Device moves between disconnected and connected only
// through Connect and Disconnect; ReadData returns one Record with the
// three telemetry domains the controller reports:
//
//   - battery: voltage, current, power, state of charge, temperature
//   - pv: solar array voltage, current, power
//   - load: load output voltage, current, power
//
// The hardware is reached through a Driver chosen when the Registry is
// built. MockDriver always connects and returns fixed plausible values;
// ModbusDriver speaks Modbus RTU to the controller over the serial port the
// Bluetooth module is bound to.
//
// No registry method returns an I/O error. Connect reports success as a
// bool and ReadData encodes failure in Record.Status and Record.Error.
//
// # Usage
//
//	reg := renogy.NewRegistry(renogy.NewMockDriver())
//	reg.SetLogger(logger)
//	dev := reg.Add("f8:55:48:17:99:eb", 10*time.Second)
//	if dev.Connect(ctx) {
//	    rec := dev.ReadData(ctx)
//	    fmt.Println(rec.Battery.Voltage)
//	}
package renogy
