package blocks

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"
)

// HueToDegrees maps a block hue in [0,100) onto the colour wheel. Values
// outside the range wrap around; NaN is treated as 0.
func HueToDegrees(hue float64) float64 {
	if math.IsNaN(hue) || math.IsInf(hue, 0) {
		return 0
	}

	var h = math.Mod(hue, 100)
	if h < 0 {
		h += 100
	}

	return h * 360 / 100
}

// HueToRGB returns the fully saturated, full brightness colour for hue as a
// 24-bit 0xRRGGBB value.
func HueToRGB(hue float64) int {
	var c = colorful.Hsv(HueToDegrees(hue), 1, 1)
	r, g, b := c.RGB255()
	return int(r)<<16 | int(g)<<8 | int(b)
}

// NoteToHz converts a MIDI note number to a frequency, A4 (69) being 440 Hz.
func NoteToHz(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}
