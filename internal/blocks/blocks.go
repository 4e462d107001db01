package blocks

import (
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dnbeesley/wedo-agent/internal/clock"
	"github.com/dnbeesley/wedo-agent/internal/wedo"
)

// Menu names.
const (
	MenuMotorID          = "motorID"
	MenuMotorDirection   = "motorDirection"
	MenuTiltDirection    = "tiltDirection"
	MenuTiltDirectionAny = "tiltDirectionAny"
	MenuOp               = "op"
)

// Motor selectors.
const (
	MotorDefault = "motor"
	MotorA       = "motor A"
	MotorB       = "motor B"
	MotorAll     = "all motors"
)

// Direction choices.
const (
	DirectionThisWay = "this way"
	DirectionThatWay = "that way"
	DirectionReverse = "reverse"
)

const (
	OpLessThan    = "<"
	OpGreaterThan = ">"
)

var menus = map[string][]string{
	MenuMotorID:          {MotorDefault, MotorA, MotorB, MotorAll},
	MenuMotorDirection:   {DirectionThisWay, DirectionThatWay, DirectionReverse},
	MenuTiltDirection:    {string(wedo.TiltUp), string(wedo.TiltDown), string(wedo.TiltLeft), string(wedo.TiltRight)},
	MenuTiltDirectionAny: {string(wedo.TiltUp), string(wedo.TiltDown), string(wedo.TiltLeft), string(wedo.TiltRight), string(wedo.TiltAny)},
	MenuOp:               {OpLessThan, OpGreaterThan},
}

// Registry builds the block table bound to e.
func (e *Extension) Registry() *Registry {
	var r = NewRegistry()
	for name, values := range menus {
		r.AddMenu(name, values)
	}

	var motorParam = Param{Name: "MOTOR_ID", Type: ParamMenu, Menu: MenuMotorID, Default: MotorDefault}
	for _, b := range []Block{
		{
			Opcode:  "droneOnFor",
			Kind:    KindCommand,
			Text:    "turn [MOTOR_ID] on for [DURATION] seconds",
			Params:  []Param{motorParam, {Name: "DURATION", Type: ParamNumber, Default: 1.0}},
			Handler: e.droneOnFor,
		},
		{
			Opcode:  "droneOn",
			Kind:    KindCommand,
			Text:    "turn [MOTOR_ID] on",
			Params:  []Param{motorParam},
			Handler: e.droneOn,
		},
		{
			Opcode:  "droneOff",
			Kind:    KindCommand,
			Text:    "turn [MOTOR_ID] off",
			Params:  []Param{motorParam},
			Handler: e.droneOff,
		},
		{
			Opcode:  "startDronePower",
			Kind:    KindCommand,
			Text:    "set [MOTOR_ID] power to [POWER]",
			Params:  []Param{motorParam, {Name: "POWER", Type: ParamNumber, Default: 100.0}},
			Handler: e.startDronePower,
		},
		{
			Opcode: "setDroneDirection",
			Kind:   KindCommand,
			Text:   "set [MOTOR_ID] direction to [MOTOR_DIRECTION]",
			Params: []Param{
				motorParam,
				{Name: "MOTOR_DIRECTION", Type: ParamMenu, Menu: MenuMotorDirection, Default: DirectionThisWay},
			},
			Handler: e.setDroneDirection,
		},
		{
			Opcode:  "setLightHue",
			Kind:    KindCommand,
			Text:    "set light color to [HUE]",
			Params:  []Param{{Name: "HUE", Type: ParamNumber, Default: 50.0}},
			Handler: e.setLightHue,
		},
		{
			Opcode: "playNoteFor",
			Kind:   KindCommand,
			Text:   "play note [NOTE] for [DURATION] seconds",
			Params: []Param{
				{Name: "NOTE", Type: ParamNumber, Default: 60.0},
				{Name: "DURATION", Type: ParamNumber, Default: 0.5},
			},
			Handler: e.playNoteFor,
		},
		{
			Opcode: "whenDistance",
			Kind:   KindHat,
			Text:   "when distance [OP] [REFERENCE]",
			Params: []Param{
				{Name: "OP", Type: ParamMenu, Menu: MenuOp, Default: OpLessThan},
				{Name: "REFERENCE", Type: ParamNumber, Default: 50.0},
			},
			Handler: e.whenDistance,
		},
		{
			Opcode:  "whenTilted",
			Kind:    KindHat,
			Text:    "when tilted [TILT_DIRECTION_ANY]",
			Params:  []Param{{Name: "TILT_DIRECTION_ANY", Type: ParamMenu, Menu: MenuTiltDirectionAny, Default: string(wedo.TiltAny)}},
			Handler: e.isTilted,
		},
		{
			Opcode:  "getDistance",
			Kind:    KindReporter,
			Text:    "distance",
			Handler: e.getDistance,
		},
		{
			Opcode:  "isTilted",
			Kind:    KindBoolean,
			Text:    "tilted [TILT_DIRECTION_ANY]?",
			Params:  []Param{{Name: "TILT_DIRECTION_ANY", Type: ParamMenu, Menu: MenuTiltDirectionAny, Default: string(wedo.TiltAny)}},
			Handler: e.isTilted,
		},
		{
			Opcode:  "getTiltAngle",
			Kind:    KindReporter,
			Text:    "tilt angle [TILT_DIRECTION]",
			Params:  []Param{{Name: "TILT_DIRECTION", Type: ParamMenu, Menu: MenuTiltDirection, Default: string(wedo.TiltUp)}},
			Handler: e.getTiltAngle,
		},
		{
			Opcode:  "stopAll",
			Kind:    KindCommand,
			Text:    "stop all",
			Handler: e.stopAll,
		},
	} {
		r.MustRegister(b)
	}

	return r
}

// motorIndexes resolves a motor selector to motor ports.
func motorIndexes(id string) ([]int, bool) {
	switch id {
	case MotorDefault, MotorAll:
		return []int{0, 1}, true
	case MotorA:
		return []int{0}, true
	case MotorB:
		return []int{1}, true
	}

	log.Warn().Str("motor", id).Msg("Unknown motor ID")
	return nil, false
}

// forEachMotor runs f on the selected motors of the connected hub.
func (e *Extension) forEachMotor(id string, f func(m *wedo.Motor)) {
	indexes, ok := motorIndexes(id)
	if !ok {
		return
	}

	session, ok := e.connectedSession()
	if !ok {
		return
	}

	for _, i := range indexes {
		f(session.Motor(i))
	}
}

func (e *Extension) connectedSession() (*wedo.Session, bool) {
	session, ok := e.Session()
	if !ok {
		log.Debug().Msg("No hub connected, skipping command")
	}

	return session, ok
}

// seconds converts a block duration, saturating at the longest
// representable duration.
func seconds(s float64) time.Duration {
	if s < 0 || math.IsNaN(s) {
		return 0
	}

	var ns = s * float64(time.Second)
	if ns >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(ns)
}

func (e *Extension) droneOnFor(args Args) Result {
	var d = seconds(args.Number("DURATION"))
	e.forEachMotor(args.String("MOTOR_ID"), func(m *wedo.Motor) {
		m.TurnOnFor(d)
	})

	return Result{Done: clock.After(e.clock, d)}
}

func (e *Extension) droneOn(args Args) Result {
	e.forEachMotor(args.String("MOTOR_ID"), func(m *wedo.Motor) {
		m.TurnOn()
	})

	return Result{}
}

func (e *Extension) droneOff(args Args) Result {
	e.forEachMotor(args.String("MOTOR_ID"), func(m *wedo.Motor) {
		m.TurnOff()
	})

	return Result{}
}

func (e *Extension) startDronePower(args Args) Result {
	var power = int(math.Round(args.Number("POWER")))
	e.forEachMotor(args.String("MOTOR_ID"), func(m *wedo.Motor) {
		m.SetPower(power)
		m.TurnOn()
	})

	return Result{}
}

func (e *Extension) setDroneDirection(args Args) Result {
	var direction = args.String("MOTOR_DIRECTION")
	switch direction {
	case DirectionThisWay, DirectionThatWay, DirectionReverse:
	default:
		log.Warn().Str("direction", direction).Msg("Unknown motor direction")
		return Result{}
	}

	e.forEachMotor(args.String("MOTOR_ID"), func(m *wedo.Motor) {
		switch direction {
		case DirectionThisWay:
			m.SetDirection(1)
		case DirectionThatWay:
			m.SetDirection(-1)
		case DirectionReverse:
			m.SetDirection(float64(-m.Direction()))
		}

		m.Reapply()
	})

	return Result{}
}

func (e *Extension) setLightHue(args Args) Result {
	if session, ok := e.connectedSession(); ok {
		session.SetLight(HueToRGB(args.Number("HUE")))
	}

	return Result{}
}

func (e *Extension) playNoteFor(args Args) Result {
	var d = seconds(args.Number("DURATION"))
	if session, ok := e.connectedSession(); ok {
		session.PlayTone(NoteToHz(args.Number("NOTE")), d)
	}

	return Result{Done: clock.After(e.clock, d)}
}

func (e *Extension) whenDistance(args Args) Result {
	var reference = args.Number("REFERENCE")
	var op = args.String("OP")
	var distance float64
	if session, ok := e.Session(); ok {
		distance = session.Distance()
	}

	switch op {
	case OpLessThan:
		return Result{Value: distance < reference}
	case OpGreaterThan:
		return Result{Value: distance > reference}
	}

	log.Warn().Str("op", op).Msg("Unknown comparison operator")
	return Result{Value: false}
}

func (e *Extension) getDistance(Args) Result {
	if session, ok := e.Session(); ok {
		return Result{Value: session.Distance()}
	}

	return Result{Value: 0.0}
}

func (e *Extension) isTilted(args Args) Result {
	if session, ok := e.Session(); ok {
		return Result{Value: session.IsTilted(wedo.TiltDirection(args.String("TILT_DIRECTION_ANY")))}
	}

	return Result{Value: false}
}

func (e *Extension) getTiltAngle(args Args) Result {
	if session, ok := e.Session(); ok {
		return Result{Value: session.TiltAngle(wedo.TiltDirection(args.String("TILT_DIRECTION")))}
	}

	return Result{Value: 0.0}
}

func (e *Extension) stopAll(Args) Result {
	if session, ok := e.connectedSession(); ok {
		session.StopAll()
	}

	return Result{}
}
