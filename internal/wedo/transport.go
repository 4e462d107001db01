// Package wedo models a connected WeDo 2.0 hub: its two motor ports, the
// light and tone outputs, and the tilt and distance sensors.
package wedo

// Outbound command names understood by the device manager.
const (
	CmdMotorOn    = "motorOn"
	CmdMotorBrake = "motorBrake"
	CmdMotorOff   = "motorOff"
	CmdSetLED     = "setLED"
	CmdPlayTone   = "playTone"
	CmdStopTone   = "stopTone"
)

// Inbound event names raised by the device manager.
const (
	EventSensorChanged = "sensorChanged"
	EventDeviceClosed  = "deviceWasClosed"
	EventDisconnect    = "disconnect"
)

// Sensor names reported with EventSensorChanged.
const (
	SensorTiltX    = "tiltX"
	SensorTiltY    = "tiltY"
	SensorDistance = "distance"
)

// Transport is the device-manager socket a Session talks through.
// Send is fire-and-forget: the hub never acknowledges commands.
type Transport interface {
	Send(message string, details map[string]interface{}) error
	// On registers handler for the named event and returns a function that
	// removes the registration.
	On(event string, handler func(details map[string]interface{})) (unsubscribe func())
}
