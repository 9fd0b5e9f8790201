package renogy

import (
	"fmt"
	"regexp"
	"strings"
)

var addressPattern = regexp.MustCompile(`^([0-9A-F]{2}:){5}[0-9A-F]{2}$`)

// NormalizeAddress returns the canonical (trimmed, upper-case) form of a
// Bluetooth address. Every registry lookup goes through it.
func NormalizeAddress(address string) string {
	return strings.ToUpper(strings.TrimSpace(address))
}

// ValidateAddress checks that address, once normalised, has the form
// XX:XX:XX:XX:XX:XX with hexadecimal octets.
func ValidateAddress(address string) error {
	if !addressPattern.MatchString(NormalizeAddress(address)) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return nil
}
