package wedo

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dnbeesley/wedo-agent/internal/clock"
)

// MotorCount is the number of motor ports on a hub.
const MotorCount = 2

type Options struct {
	// Clock drives motor timers. Defaults to the wall clock.
	Clock clock.Clock
	// OnSensor is called after every sensor update.
	OnSensor func(name string, value float64)
}

// Session is the live connection to one hub. It owns the hub's motors and
// the last reading of every sensor.
type Session struct {
	id        uuid.UUID
	transport Transport
	motors    [MotorCount]*Motor
	onSensor  func(name string, value float64)

	lock    sync.RWMutex
	sensors map[string]float64
	unsubs  []func()
	closed  bool
	done    chan struct{}
}

// NewSession wraps transport and subscribes to its sensor and close events.
func NewSession(transport Transport, opts Options) *Session {
	var c = opts.Clock
	if c == nil {
		c = clock.New()
	}

	var s = &Session{
		id:        uuid.New(),
		transport: transport,
		onSensor:  opts.OnSensor,
		sensors: map[string]float64{
			SensorTiltX:    0,
			SensorTiltY:    0,
			SensorDistance: 0,
		},
		done: make(chan struct{}),
	}

	for i := range s.motors {
		s.motors[i] = newMotor(i, s.send, c)
	}

	s.unsubs = []func(){
		transport.On(EventSensorChanged, s.handleSensorChanged),
		transport.On(EventDeviceClosed, s.handleClosed),
		transport.On(EventDisconnect, s.handleClosed),
	}

	log.Info().Str("session", s.id.String()).Msg("Hub session started")
	return s
}

func (s *Session) ID() uuid.UUID {
	return s.id
}

// Motor returns the motor on port index, which must be 0 or 1.
func (s *Session) Motor(index int) *Motor {
	return s.motors[index]
}

func (s *Session) Motors() []*Motor {
	return s.motors[:]
}

// SetLight sets the hub LED to a 24-bit RGB colour.
func (s *Session) SetLight(rgb int) {
	s.send(CmdSetLED, map[string]interface{}{
		"rgb": rgb,
	})
}

func (s *Session) PlayTone(toneHz float64, d time.Duration) {
	s.send(CmdPlayTone, map[string]interface{}{
		"tone": toneHz,
		"ms":   d.Milliseconds(),
	})
}

func (s *Session) StopTone() {
	s.send(CmdStopTone, map[string]interface{}{})
}

// StopAll switches off both motors and silences the hub.
func (s *Session) StopAll() {
	for _, m := range s.motors {
		m.TurnOff()
	}

	s.StopTone()
}

// Sensor returns the last value reported for name, or 0.
func (s *Session) Sensor(name string) float64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.sensors[name]
}

func (s *Session) TiltX() float64 {
	return s.Sensor(SensorTiltX)
}

func (s *Session) TiltY() float64 {
	return s.Sensor(SensorTiltY)
}

// Distance is the raw distance reading scaled by 10.
func (s *Session) Distance() float64 {
	return s.Sensor(SensorDistance) * 10
}

// Done is closed once the hub has gone away.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) Closed() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.closed
}

// Close detaches the session from its transport. Pending motor actions are
// left to run; their commands are dropped.
func (s *Session) Close() {
	s.lock.Lock()
	if s.closed {
		s.lock.Unlock()
		return
	}

	s.closed = true
	var unsubs = s.unsubs
	s.unsubs = nil
	close(s.done)
	s.lock.Unlock()

	for _, unsubscribe := range unsubs {
		unsubscribe()
	}

	log.Info().Str("session", s.id.String()).Msg("Hub session closed")
}

func (s *Session) send(message string, details map[string]interface{}) {
	if s.Closed() {
		log.Debug().
			Str("session", s.id.String()).
			Str("message", message).
			Msg("Dropping command for closed hub")
		return
	}

	if err := s.transport.Send(message, details); err != nil {
		log.Warn().Err(err).
			Str("session", s.id.String()).
			Str("message", message).
			Msg("Failed to send command to hub")
	}
}

func (s *Session) handleSensorChanged(details map[string]interface{}) {
	var name, _ = details["name"].(string)
	var value = toFloat(details["value"])

	s.lock.Lock()
	s.sensors[name] = value
	s.lock.Unlock()

	if s.onSensor != nil {
		s.onSensor(name, value)
	}
}

func (s *Session) handleClosed(map[string]interface{}) {
	s.Close()
}

func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	case json.Number:
		f, _ := n.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(n, 64)
		return f
	}

	return 0
}
