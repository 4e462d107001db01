package wedo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func setTilt(transport *fakeTransport, x, y float64) {
	transport.emit(EventSensorChanged, map[string]interface{}{"name": SensorTiltX, "value": x})
	transport.emit(EventSensorChanged, map[string]interface{}{"name": SensorTiltY, "value": y})
}

func TestTiltAngleSymmetry(t *testing.T) {
	var s, transport, _ = newTestSession(t)

	for _, reading := range [][2]float64{{0, 0}, {10, -4}, {-45, 30}, {3.5, 90}} {
		setTilt(transport, reading[0], reading[1])
		assert.Equal(t, -s.TiltAngle(TiltDown), s.TiltAngle(TiltUp), "reading %v", reading)
		assert.Equal(t, -s.TiltAngle(TiltRight), s.TiltAngle(TiltLeft), "reading %v", reading)
	}
}

func TestTiltedUp(t *testing.T) {
	var s, transport, _ = newTestSession(t)
	setTilt(transport, 0, -16)

	assert.Equal(t, 16.0, s.TiltAngle(TiltUp))
	assert.True(t, s.IsTilted(TiltUp))
	assert.True(t, s.IsTilted(TiltAny))
	assert.False(t, s.IsTilted(TiltDown))
}

func TestTiltedAnyThreshold(t *testing.T) {
	var s, transport, _ = newTestSession(t)

	setTilt(transport, 14.9, -14.9)
	assert.False(t, s.IsTilted(TiltAny))

	setTilt(transport, -15, 0)
	assert.True(t, s.IsTilted(TiltAny))
	assert.True(t, s.IsTilted(TiltLeft))
	assert.False(t, s.IsTilted(TiltRight))
}

func TestTiltUnknownDirection(t *testing.T) {
	var s, transport, _ = newTestSession(t)
	setTilt(transport, 40, 40)

	assert.Zero(t, s.TiltAngle("sideways"))
	assert.False(t, s.IsTilted("sideways"))
}
