package mqtt

import "strings"

// DefaultTopicPrefix is the root every offgrid topic lives under.
const DefaultTopicPrefix = "offgrid"

// Topic category names, the second level of every topic.
const (
	categoryState  = "state"
	categorySystem = "system"

	protocolOneWire = "onewire"
	protocolRenogy  = "renogy"
)

// Topics builds offgrid topic names:
//
//	offgrid/state/onewire/{sensor_id}
//	offgrid/state/renogy/{device_address}
//	offgrid/system/status
type Topics struct {
	Prefix string
}

// DefaultTopics returns the builder for DefaultTopicPrefix.
func DefaultTopics() Topics {
	return Topics{Prefix: DefaultTopicPrefix}
}

func (t Topics) join(parts ...string) string {
	prefix := t.Prefix
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "/" + strings.Join(parts, "/")
}

// SensorState is the retained state topic for one temperature sensor.
func (t Topics) SensorState(sensorID string) string {
	return t.join(categoryState, protocolOneWire, sanitizeLevel(sensorID))
}

// DeviceState is the retained state topic for one charge controller.
// Colons in the address are kept; they are legal in MQTT topic levels.
func (t Topics) DeviceState(address string) string {
	return t.join(categoryState, protocolRenogy, sanitizeLevel(address))
}

// SystemStatus is the online/offline status topic, also used for the LWT.
func (t Topics) SystemStatus() string {
	return t.join(categorySystem, "status")
}

// AllState matches every state topic.
func (t Topics) AllState() string {
	return t.join(categoryState, "#")
}

// sanitizeLevel replaces characters that would split or wildcard a topic level.
func sanitizeLevel(s string) string {
	return strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
}
