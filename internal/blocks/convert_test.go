package blocks

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoteToHz(t *testing.T) {
	assert.Equal(t, 440.0, NoteToHz(69))
	assert.Equal(t, 880.0, NoteToHz(81))
	assert.Equal(t, 220.0, NoteToHz(57))
	assert.InDelta(t, 261.63, NoteToHz(60), 0.01)
}

func TestHueToDegrees(t *testing.T) {
	assert.Equal(t, 180.0, HueToDegrees(50))
	assert.Equal(t, 0.0, HueToDegrees(0))
	assert.Equal(t, 0.0, HueToDegrees(100))
	assert.Equal(t, 90.0, HueToDegrees(125))
	assert.Equal(t, 324.0, HueToDegrees(-10))
	assert.Equal(t, 0.0, HueToDegrees(math.NaN()))
}

func TestHueToRGB(t *testing.T) {
	for _, tc := range []struct {
		hue  float64
		want int
	}{
		{0, 0xFF0000},
		{50, 0x00FFFF},
		{100, 0xFF0000},
	} {
		assert.Equal(t, tc.want, HueToRGB(tc.hue), "hue %v", tc.hue)
	}
}
