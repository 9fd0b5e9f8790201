package renogy

import "errors"

// Domain errors for the renogy package.
var (
	// ErrInvalidAddress is returned when an address is not six colon-separated hex octets.
	ErrInvalidAddress = errors.New("renogy: invalid device address")

	// ErrNoSerialPort is returned by ModbusDriver when no port is mapped to an address.
	ErrNoSerialPort = errors.New("renogy: no serial port configured")

	// ErrShortResponse is returned when a register read returns fewer bytes than requested.
	ErrShortResponse = errors.New("renogy: short register response")
)
