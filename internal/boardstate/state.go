// Package boardstate models the 64-square occupancy snapshot reported by the
// board sensors and infers moves from pairs of snapshots.
package boardstate

import (
	"fmt"
	"strings"
)

// Squares is the number of squares on the board.
const Squares = 64

// Occupancy is the sensor reading of a single square.
type Occupancy uint8

const (
	Empty Occupancy = iota
	White
	Black
)

// Device alphabet used by the sensor firmware.
const (
	codeEmpty = 'z'
	codeWhite = 's'
	codeBlack = 'n'
)

func (o Occupancy) String() string {
	switch o {
	case Empty:
		return "empty"
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return fmt.Sprintf("occupancy(%d)", uint8(o))
	}
}

// Code returns the device character for o.
func (o Occupancy) Code() byte {
	switch o {
	case White:
		return codeWhite
	case Black:
		return codeBlack
	default:
		return codeEmpty
	}
}

// Opponent returns the other side; Empty has no opponent.
func (o Occupancy) Opponent() Occupancy {
	switch o {
	case White:
		return Black
	case Black:
		return White
	default:
		return Empty
	}
}

// Occupied reports whether a piece of either side sits on the square.
func (o Occupancy) Occupied() bool { return o == White || o == Black }

// DecodeCode maps a device character to an occupancy. ok is false for
// characters outside the alphabet.
func DecodeCode(c byte) (Occupancy, bool) {
	switch c {
	case codeEmpty:
		return Empty, true
	case codeWhite:
		return White, true
	case codeBlack:
		return Black, true
	default:
		return Empty, false
	}
}

// State is one occupancy code per logical square, a1=0 through h8=63.
// The array type pins the cardinality; states compare with ==.
type State [Squares]Occupancy

// Count returns the number of squares holding side.
func (s State) Count(side Occupancy) int {
	n := 0
	for _, o := range s {
		if o == side {
			n++
		}
	}
	return n
}

// Occupied returns the logical indexes of all occupied squares in ascending order.
func (s State) Occupied() []int {
	out := make([]int, 0, 32)
	for i, o := range s {
		if o.Occupied() {
			out = append(out, i)
		}
	}
	return out
}

// String renders s in the device alphabet, logical order.
func (s State) String() string {
	var sb strings.Builder
	sb.Grow(Squares)
	for _, o := range s {
		sb.WriteByte(o.Code())
	}
	return sb.String()
}

// ParseState decodes text in the device alphabet. Characters outside the
// alphabet are skipped; the remaining codes must number exactly 64.
func ParseState(text string) (State, error) {
	var st State
	n := 0
	for i := 0; i < len(text); i++ {
		o, ok := DecodeCode(text[i])
		if !ok {
			continue
		}
		if n == Squares {
			return State{}, fmt.Errorf("%w: more than %d codes", ErrCardinality, Squares)
		}
		st[n] = o
		n++
	}
	if n != Squares {
		return State{}, fmt.Errorf("%w: got %d codes", ErrCardinality, n)
	}
	return st, nil
}

// Rows renders s as eight lines, rank 8 first, for log output.
func (s State) Rows() []string {
	rows := make([]string, 0, 8)
	for rank := 7; rank >= 0; rank-- {
		var sb strings.Builder
		for file := 0; file < 8; file++ {
			switch s[rank*8+file] {
			case White:
				sb.WriteByte('W')
			case Black:
				sb.WriteByte('B')
			default:
				sb.WriteByte('.')
			}
		}
		rows = append(rows, sb.String())
	}
	return rows
}

// MarshalText encodes s in the device alphabet.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	st, err := ParseState(string(b))
	if err != nil {
		return err
	}
	*s = st
	return nil
}
