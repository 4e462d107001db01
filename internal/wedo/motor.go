package wedo

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dnbeesley/wedo-agent/internal/clock"
)

// BrakeDuration is how long a motor brakes before it is switched off.
const BrakeDuration = 1000 * time.Millisecond

const (
	MaxPower = 100
	MinPower = 0
)

type MotorStatus int

const (
	MotorOff MotorStatus = iota
	MotorRunning
	MotorBraking
)

func (s MotorStatus) String() string {
	switch s {
	case MotorOff:
		return "off"
	case MotorRunning:
		return "running"
	case MotorBraking:
		return "braking"
	}

	return "unknown"
}

type sendFunc func(message string, details map[string]interface{})

// Motor drives one motor port of the hub. Power and direction only take
// effect on the next TurnOn or TurnOnFor.
//
// A motor has at most one pending scheduled action: scheduling a new one
// always cancels the previous. Every schedule or cancel bumps gen, so a
// callback that was already running when it was replaced sees a stale
// generation and does nothing.
type Motor struct {
	lock      sync.Mutex
	index     int
	send      sendFunc
	clock     clock.Clock
	direction int
	power     int
	status    MotorStatus

	gen      uint64
	pending  clock.Timer
	deadline time.Time
	braking  bool // the pending action is the end of a timed run
}

func newMotor(index int, send sendFunc, c clock.Clock) *Motor {
	return &Motor{
		index:     index,
		send:      send,
		clock:     c,
		direction: 1,
		power:     MaxPower,
		status:    MotorOff,
	}
}

func (m *Motor) Index() int {
	return m.index
}

func (m *Motor) Direction() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.direction
}

// SetDirection stores -1 for any negative value and +1 otherwise.
func (m *Motor) SetDirection(direction float64) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if direction < 0 {
		m.direction = -1
	} else {
		m.direction = 1
	}
}

func (m *Motor) Power() int {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.power
}

// SetPower stores power clamped to [MinPower, MaxPower].
func (m *Motor) SetPower(power int) {
	m.lock.Lock()
	defer m.lock.Unlock()
	switch {
	case power < MinPower:
		m.power = MinPower
	case power > MaxPower:
		m.power = MaxPower
	default:
		m.power = power
	}
}

func (m *Motor) Status() MotorStatus {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.status
}

// IsOn reports whether the motor is running. A braking motor is not on.
func (m *Motor) IsOn() bool {
	return m.Status() == MotorRunning
}

// TurnOn starts the motor indefinitely, cancelling any pending action.
func (m *Motor) TurnOn() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.turnOn()
}

// TurnOnFor starts the motor and brakes it once d has elapsed. A negative
// duration is treated as zero; braking still happens asynchronously.
func (m *Motor) TurnOnFor(d time.Duration) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.turnOnFor(d)
}

// StartBraking brakes the motor and switches it off after BrakeDuration.
func (m *Motor) StartBraking() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.startBraking()
}

// TurnOff switches the motor off and drops any pending action.
func (m *Motor) TurnOff() {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.cancel()
	m.turnOff()
}

// Reapply re-sends the current power and direction to a running motor. A
// timed run keeps its remaining time.
func (m *Motor) Reapply() {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.status != MotorRunning {
		return
	}

	if m.pending != nil && m.braking {
		var remaining = m.deadline.Sub(m.clock.Now())
		m.turnOnFor(remaining)
		return
	}

	m.turnOn()
}

func (m *Motor) turnOn() {
	m.cancel()
	m.send(CmdMotorOn, map[string]interface{}{
		"motorIndex": m.index,
		"power":      m.direction * m.power,
	})
	m.status = MotorRunning
	log.Debug().Int("motor", m.index).Int("power", m.direction*m.power).Msg("Motor on")
}

func (m *Motor) turnOnFor(d time.Duration) {
	if d < 0 {
		d = 0
	}

	m.turnOn()
	m.schedule(d, true, m.startBraking)
}

func (m *Motor) startBraking() {
	m.send(CmdMotorBrake, map[string]interface{}{
		"motorIndex": m.index,
	})
	m.status = MotorBraking
	m.schedule(BrakeDuration, false, m.turnOff)
	log.Debug().Int("motor", m.index).Msg("Motor braking")
}

func (m *Motor) turnOff() {
	m.send(CmdMotorOff, map[string]interface{}{
		"motorIndex": m.index,
	})
	m.status = MotorOff
	log.Debug().Int("motor", m.index).Msg("Motor off")
}

// schedule replaces the pending action with action, run after d.
// Must be called with the lock held.
func (m *Motor) schedule(d time.Duration, braking bool, action func()) {
	m.cancel()
	var gen = m.gen
	m.deadline = m.clock.Now().Add(d)
	m.braking = braking
	m.pending = m.clock.AfterFunc(d, func() {
		m.lock.Lock()
		defer m.lock.Unlock()
		if m.gen != gen {
			return
		}

		m.pending = nil
		action()
	})
}

// cancel drops the pending action, if any. Must be called with the lock held.
func (m *Motor) cancel() {
	m.gen++
	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
}
