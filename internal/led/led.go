// Package led holds the color buffers painted onto the board LEDs and the
// compositor that flattens them into one frame.
package led

import (
	"fmt"

	"github.com/park285/Cheese-Board/internal/boardstate"
)

// Color is an RGB triple. The zero value is treated as transparent by the
// compositor, so pure black can never be painted over a lower layer.
type Color struct {
	R, G, B uint8
}

// RGB is a shorthand constructor.
func RGB(r, g, b uint8) Color { return Color{R: r, G: g, B: b} }

// IsZero reports whether c is the transparency sentinel.
func (c Color) IsZero() bool { return c.R == 0 && c.G == 0 && c.B == 0 }

// Clamp limits every channel to max.
func (c Color) Clamp(max uint8) Color {
	return Color{R: minU8(c.R, max), G: minU8(c.G, max), B: minU8(c.B, max)}
}

func (c Color) String() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

func minU8(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}

// Frame is one color per logical square.
type Frame [boardstate.Squares]Color

// Clamp returns a copy of f with every channel limited to max.
func (f Frame) Clamp(max uint8) Frame {
	var out Frame
	for i, c := range f {
		out[i] = c.Clamp(max)
	}
	return out
}

// Lit returns the number of non-transparent squares.
func (f Frame) Lit() int {
	n := 0
	for _, c := range f {
		if !c.IsZero() {
			n++
		}
	}
	return n
}

// Palette used by the game.
var (
	Off            = Color{}
	WhitePiece     = RGB(0, 0, 250)
	WhiteDimmed    = RGB(0, 0, 20)
	BlackPiece     = RGB(0, 250, 0)
	BlackDimmed    = RGB(0, 20, 0)
	LightSquare    = RGB(160, 160, 160)
	DarkSquare     = RGB(10, 10, 10)
	LiftHighlight  = RGB(0, 150, 255)
	LegalMove      = RGB(255, 255, 0)
	CaptureMove    = RGB(255, 0, 0)
	ErrorHighlight = RGB(255, 50, 50)
)

// DefaultMaxBrightness keeps 0xFE/0xFF free for the binary frame sentinels.
const DefaultMaxBrightness uint8 = 253
