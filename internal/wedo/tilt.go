package wedo

import (
	"math"

	"github.com/rs/zerolog/log"
)

type TiltDirection string

const (
	TiltUp    TiltDirection = "up"
	TiltDown  TiltDirection = "down"
	TiltLeft  TiltDirection = "left"
	TiltRight TiltDirection = "right"
	TiltAny   TiltDirection = "any"
)

// TiltThreshold is the angle in degrees at which the hub counts as tilted.
const TiltThreshold = 15

// TiltAngle returns how far the hub leans towards dir. Unknown directions,
// including TiltAny, yield 0.
func (s *Session) TiltAngle(dir TiltDirection) float64 {
	switch dir {
	case TiltUp:
		return -s.TiltY()
	case TiltDown:
		return s.TiltY()
	case TiltLeft:
		return -s.TiltX()
	case TiltRight:
		return s.TiltX()
	}

	log.Warn().Str("direction", string(dir)).Msg("Unknown tilt direction")
	return 0
}

// IsTilted reports whether the hub leans at least TiltThreshold degrees
// towards dir, or in any direction for TiltAny.
func (s *Session) IsTilted(dir TiltDirection) bool {
	if dir == TiltAny {
		return math.Abs(s.TiltX()) >= TiltThreshold || math.Abs(s.TiltY()) >= TiltThreshold
	}

	switch dir {
	case TiltUp, TiltDown, TiltLeft, TiltRight:
		return s.TiltAngle(dir) >= TiltThreshold
	}

	log.Warn().Str("direction", string(dir)).Msg("Unknown tilt direction")
	return false
}
