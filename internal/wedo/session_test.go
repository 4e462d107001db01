package wedo

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dnbeesley/wedo-agent/internal/clock"
)

func TestSessionSensorsDefaultToZero(t *testing.T) {
	var s, _, _ = newTestSession(t)

	assert.Zero(t, s.TiltX())
	assert.Zero(t, s.TiltY())
	assert.Zero(t, s.Distance())
}

func TestSessionDistanceIsScaled(t *testing.T) {
	var s, transport, _ = newTestSession(t)

	transport.emit(EventSensorChanged, map[string]interface{}{"name": SensorDistance, "value": 7.0})

	assert.Equal(t, 70.0, s.Distance())
	assert.Equal(t, 7.0, s.Sensor(SensorDistance))
}

func TestSessionSensorLastWriteWins(t *testing.T) {
	var s, transport, _ = newTestSession(t)

	transport.emit(EventSensorChanged, map[string]interface{}{"name": SensorTiltX, "value": 20.0})
	transport.emit(EventSensorChanged, map[string]interface{}{"name": SensorTiltX, "value": json.Number("-3")})

	assert.Equal(t, -3.0, s.TiltX())
}

func TestSessionStoresUnknownSensor(t *testing.T) {
	var s, transport, _ = newTestSession(t)

	transport.emit(EventSensorChanged, map[string]interface{}{"name": "colour", "value": 4})

	assert.Equal(t, 4.0, s.Sensor("colour"))
}

func TestSessionSensorObserver(t *testing.T) {
	var transport = newFakeTransport()
	var seen = map[string]float64{}
	NewSession(transport, Options{
		Clock: clock.NewMock(time.Unix(0, 0)),
		OnSensor: func(name string, value float64) {
			seen[name] = value
		},
	})

	transport.emit(EventSensorChanged, map[string]interface{}{"name": SensorTiltY, "value": "12.5"})

	assert.Equal(t, map[string]float64{SensorTiltY: 12.5}, seen)
}

func TestSessionRelaysOutputs(t *testing.T) {
	var s, transport, _ = newTestSession(t)

	s.SetLight(0xFF0000)
	assert.Equal(t, sentCommand{CmdSetLED, map[string]interface{}{"rgb": 0xFF0000}}, transport.last())

	s.PlayTone(440, 1500*time.Millisecond)
	assert.Equal(t, sentCommand{CmdPlayTone, map[string]interface{}{"tone": 440.0, "ms": int64(1500)}}, transport.last())

	s.StopTone()
	assert.Equal(t, CmdStopTone, transport.last().message)
}

func TestSessionStopAll(t *testing.T) {
	var s, transport, c = newTestSession(t)
	s.Motor(0).TurnOnFor(time.Second)
	s.Motor(1).TurnOn()
	transport.reset()

	s.StopAll()
	c.Advance(time.Minute)

	assert.Equal(t, []string{CmdMotorOff, CmdMotorOff, CmdStopTone}, transport.messages())
	assert.Equal(t, MotorOff, s.Motor(0).Status())
	assert.Equal(t, MotorOff, s.Motor(1).Status())
}

func TestSessionDetachesOnClose(t *testing.T) {
	for _, event := range []string{EventDeviceClosed, EventDisconnect} {
		t.Run(event, func(t *testing.T) {
			var s, transport, _ = newTestSession(t)
			require.Equal(t, 3, transport.subscriptions())

			transport.emit(event, nil)

			assert.True(t, s.Closed())
			assert.Equal(t, 0, transport.subscriptions())
			select {
			case <-s.Done():
			default:
				t.Fatal("session done channel not closed")
			}

			transport.emit(EventSensorChanged, map[string]interface{}{"name": SensorDistance, "value": 9.0})
			assert.Zero(t, s.Distance())
		})
	}
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	var s, _, _ = newTestSession(t)

	s.Close()
	s.Close()

	assert.True(t, s.Closed())
}

func TestSessionDisconnectWhileBraking(t *testing.T) {
	var s, transport, c = newTestSession(t)
	var m = s.Motor(0)

	m.TurnOnFor(50 * time.Millisecond)
	c.Advance(50 * time.Millisecond)
	require.Equal(t, MotorBraking, m.Status())

	transport.emit(EventDisconnect, nil)
	transport.down = true
	c.Advance(BrakeDuration)

	assert.Equal(t, MotorOff, m.Status())
	assert.Equal(t, []string{CmdMotorOn, CmdMotorBrake}, transport.messages())
}

func TestSessionSendFailureIsNotFatal(t *testing.T) {
	var s, transport, _ = newTestSession(t)
	transport.down = true

	s.Motor(0).TurnOn()

	assert.True(t, s.Motor(0).IsOn())
	assert.Empty(t, transport.messages())
}
