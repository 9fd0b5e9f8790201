package onewire

import (
	"math"
	"strconv"
	"strings"
)

const (
	// crcOKMarker terminates the first w1_slave line when the CRC matched.
	crcOKMarker = "YES"

	// temperatureMarker precedes the milli-degree value on the second line.
	temperatureMarker = "t="

	milliDegrees = 1000.0
)

// ParseTemperature extracts degrees Celsius from the lines of a w1_slave
// file. It reports false when the data is incomplete, the CRC flag is not
// set, or the value is missing or malformed.
func ParseTemperature(lines []string) (float64, bool) {
	if len(lines) < 2 {
		return 0, false
	}

	if !strings.HasSuffix(strings.TrimSpace(lines[0]), crcOKMarker) {
		return 0, false
	}

	idx := strings.Index(lines[1], temperatureMarker)
	if idx < 0 {
		return 0, false
	}

	raw := strings.TrimSpace(lines[1][idx+len(temperatureMarker):])
	// ParseFloat also takes hex floats and digit separators; the driver
	// only writes plain decimals.
	if strings.ContainsAny(raw, "xX_") {
		return 0, false
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}

	return value / milliDegrees, true
}

// splitLines splits file content into lines that keep their trailing
// newline, dropping the empty tail after a final newline.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
