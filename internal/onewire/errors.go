package onewire

import "errors"

// ErrInvalidSensorID is wrapped by raw reads for ids that are not a single
// directory name (empty, ".", or containing a slash).
var ErrInvalidSensorID = errors.New("onewire: invalid sensor id")
