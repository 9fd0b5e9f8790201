// Package mqtt publishes offgrid state to an MQTT broker using
// eclipse/paho.mqtt.golang.
//
// Topic hierarchy:
//
//	offgrid/state/onewire/{sensor_id}       retained temperature reading
//	offgrid/state/renogy/{device_address}   retained charge controller record
//	offgrid/system/status                   online / offline (also the LWT)
//
// The client only publishes; nothing in the service consumes broker
// messages. Connection loss is handled by paho's auto-reconnect and the
// client re-announces itself as online on every reconnect.
package mqtt
