package device

import (
	"errors"
	"fmt"

	"github.com/park285/Cheese-Board/internal/boardstate"
	"github.com/park285/Cheese-Board/internal/led"
)

const (
	frameStart byte = 0xFE
	frameEnd   byte = 0xFF

	// FrameSize is sentinel + 64*RGB + sentinel.
	FrameSize = 1 + boardstate.Squares*3 + 1
)

var ErrBadFrame = errors.New("malformed led frame")

// EncodeFrame clamps frame to max and lays it out in physical order between
// the start and end sentinels.
func EncodeFrame(frame led.Frame, m boardstate.Mapping, max uint8) []byte {
	out := make([]byte, FrameSize)
	out[0] = frameStart
	for logical, c := range frame {
		c = c.Clamp(max)
		off := 1 + m[logical]*3
		out[off] = c.R
		out[off+1] = c.G
		out[off+2] = c.B
	}
	out[FrameSize-1] = frameEnd
	return out
}

// DecodeFrame parses a binary frame the way the controller does and returns
// it in logical order.
func DecodeFrame(b []byte, m boardstate.Mapping) (led.Frame, error) {
	var f led.Frame
	if len(b) != FrameSize {
		return f, fmt.Errorf("%w: length %d", ErrBadFrame, len(b))
	}
	if b[0] != frameStart || b[FrameSize-1] != frameEnd {
		return f, fmt.Errorf("%w: missing sentinels", ErrBadFrame)
	}
	for logical := range f {
		off := 1 + m[logical]*3
		f[logical] = led.RGB(b[off], b[off+1], b[off+2])
	}
	return f, nil
}
