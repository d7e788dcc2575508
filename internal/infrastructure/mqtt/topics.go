package mqtt

import "fmt"

// Topic prefixes for the hwcore MQTT surface.
//
// Device topics use the flat scheme: hwcore/device/{device_id}/{category}
const (
	// TopicPrefix is the base for all hwcore topics.
	TopicPrefix = "hwcore"

	// TopicPrefixDevice is the base for per-device topics.
	TopicPrefixDevice = "hwcore/device"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "hwcore/system"
)

// Topics provides builders for hwcore MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("camera0")
//	// Returns: "hwcore/device/camera0/state"
type Topics struct{}

// DeviceCommand returns the topic commands for a device arrive on.
//
// Example: hwcore/device/camera0/command
func (Topics) DeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/%s/command", TopicPrefixDevice, deviceID)
}

// DeviceAck returns the topic command acknowledgements are published to.
//
// Example: hwcore/device/camera0/ack
func (Topics) DeviceAck(deviceID string) string {
	return fmt.Sprintf("%s/%s/ack", TopicPrefixDevice, deviceID)
}

// DeviceState returns the retained topic carrying a device's current
// state and controls.
//
// Example: hwcore/device/camera0/state
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/%s/state", TopicPrefixDevice, deviceID)
}

// SystemStatus returns the system status topic.
//
// Example: hwcore/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: hwcore/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// AllDeviceCommands returns a pattern matching commands for every device.
//
// Pattern: hwcore/device/+/command
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/+/command", TopicPrefixDevice)
}

// AllDeviceStates returns a pattern matching all device state updates.
//
// Pattern: hwcore/device/+/state
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/+/state", TopicPrefixDevice)
}

// AllTopics returns a pattern matching all hwcore topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: hwcore/#
func (Topics) AllTopics() string {
	return "hwcore/#"
}
