package led

import "github.com/park285/Cheese-Board/internal/boardstate"

// Layer is an independently owned color buffer with an enabled flag.
// A Layer is not safe for concurrent use; its owner serialises access.
type Layer struct {
	name    string
	colors  Frame
	enabled bool
}

// NewLayer returns an enabled, fully transparent layer.
func NewLayer(name string) *Layer {
	return &Layer{name: name, enabled: true}
}

func (l *Layer) Name() string { return l.name }

// Set paints one logical square. Out-of-range squares are ignored.
func (l *Layer) Set(square int, c Color) {
	if square < 0 || square >= boardstate.Squares {
		return
	}
	l.colors[square] = c
}

// At returns the color of one logical square.
func (l *Layer) At(square int) Color {
	if square < 0 || square >= boardstate.Squares {
		return Off
	}
	return l.colors[square]
}

// Fill paints every square.
func (l *Layer) Fill(c Color) {
	for i := range l.colors {
		l.colors[i] = c
	}
}

// Clear resets the layer to transparent.
func (l *Layer) Clear() { l.colors = Frame{} }

// Empty reports whether nothing is painted on the layer.
func (l *Layer) Empty() bool { return l.colors.Lit() == 0 }

func (l *Layer) SetEnabled(enabled bool) { l.enabled = enabled }

func (l *Layer) Enabled() bool { return l.enabled }

// Colors returns a copy of the layer buffer.
func (l *Layer) Colors() Frame { return l.colors }

// Stack is a bottom-to-top list of layers. It holds references only; the
// order is fixed when the stack is built.
type Stack struct {
	layers []*Layer
}

// NewStack builds a stack from bottom to top. Nil layers are dropped.
func NewStack(layers ...*Layer) *Stack {
	s := &Stack{layers: make([]*Layer, 0, len(layers))}
	for _, l := range layers {
		if l != nil {
			s.layers = append(s.layers, l)
		}
	}
	return s
}

// Layers returns the stack order, bottom first.
func (s *Stack) Layers() []*Layer {
	return append([]*Layer(nil), s.layers...)
}

// Compose flattens the stack.
func (s *Stack) Compose() Frame { return Compose(s.layers...) }

// Compose reduces layers, bottom first, into one frame: every enabled layer
// overwrites the squares where its color is non-zero.
func Compose(layers ...*Layer) Frame {
	var out Frame
	for _, l := range layers {
		if l == nil || !l.enabled {
			continue
		}
		for sq, c := range l.colors {
			if !c.IsZero() {
				out[sq] = c
			}
		}
	}
	return out
}

// Checkerboard paints alternating square colors; a1 takes light, matching
// the board's printed overlay.
func Checkerboard(l *Layer, light, dark Color) {
	for sq := 0; sq < boardstate.Squares; sq++ {
		row, col := sq/8, sq%8
		if (row+col)%2 == 0 {
			l.Set(sq, light)
		} else {
			l.Set(sq, dark)
		}
	}
}

// PaintOccupancy paints every occupied square of st with the side colors.
func PaintOccupancy(l *Layer, st boardstate.State, white, black Color) {
	for sq, o := range st {
		switch o {
		case boardstate.White:
			l.Set(sq, white)
		case boardstate.Black:
			l.Set(sq, black)
		default:
			l.Set(sq, Off)
		}
	}
}
