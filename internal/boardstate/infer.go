package boardstate

import (
	"fmt"
	"strings"
)

// Change is one square whose occupancy switched between empty and occupied.
// Side is the occupying side (before for removals, after for additions).
type Change struct {
	Square int
	Side   Occupancy
}

// Delta lists removals and additions between two states in square order.
type Delta struct {
	Removed []Change
	Added   []Change
}

// Empty reports whether no square switched between empty and occupied.
func (d Delta) Empty() bool { return len(d.Removed) == 0 && len(d.Added) == 0 }

// Diff compares two states square by square. Squares that changed side
// without passing through empty appear in neither list.
func Diff(before, after State) Delta {
	var d Delta
	for sq := 0; sq < Squares; sq++ {
		b, a := before[sq], after[sq]
		switch {
		case b.Occupied() && a == Empty:
			d.Removed = append(d.Removed, Change{Square: sq, Side: b})
		case b == Empty && a.Occupied():
			d.Added = append(d.Added, Change{Square: sq, Side: a})
		}
	}
	return d
}

// FindLifted returns squares that went from occupied to empty, regardless of
// any additions elsewhere.
func FindLifted(before, after State) []Change {
	return Diff(before, after).Removed
}

// FindPlaced returns squares that went from empty to occupied.
func FindPlaced(before, after State) []Change {
	return Diff(before, after).Added
}

// Kind classifies an inference result.
type Kind int

const (
	NoMove Kind = iota
	Quiet
	Capture
	Invalid
)

func (k Kind) String() string {
	switch k {
	case NoMove:
		return "nomove"
	case Quiet:
		return "quiet"
	case Capture:
		return "capture"
	default:
		return "invalid"
	}
}

// Inference is the move deduced from two snapshots. From and To are only
// meaningful for Quiet and Capture.
type Inference struct {
	Kind Kind
	From int
	To   int
	Side Occupancy
}

// IsMove reports whether the inference produced a concrete move.
func (i Inference) IsMove() bool { return i.Kind == Quiet || i.Kind == Capture }

// UCI returns the move as from+to square names, e.g. "e2e4". Empty for
// non-moves.
func (i Inference) UCI() string {
	if !i.IsMove() {
		return ""
	}
	return SquareName(i.From) + SquareName(i.To)
}

func (i Inference) String() string {
	if i.IsMove() {
		return i.Kind.String() + " " + i.UCI()
	}
	return i.Kind.String()
}

// InferMove deduces the move between two snapshots. Patterns are tried in
// order: identical states, one lift plus one placement of the same side, one
// lift onto a square that flipped from the opposing side. Anything else is
// Invalid and needs a physical correction.
func InferMove(before, after State) Inference {
	if before == after {
		return Inference{Kind: NoMove}
	}
	d := Diff(before, after)

	if len(d.Removed) == 1 && len(d.Added) == 1 && d.Removed[0].Side == d.Added[0].Side {
		return Inference{Kind: Quiet, From: d.Removed[0].Square, To: d.Added[0].Square, Side: d.Removed[0].Side}
	}

	if len(d.Removed) == 1 && len(d.Added) == 0 {
		mover := d.Removed[0].Side
		victim := mover.Opponent()
		target := -1
		for sq := 0; sq < Squares; sq++ {
			if before[sq] != victim || after[sq] != mover {
				continue
			}
			if target >= 0 {
				// 두 칸 이상이 뒤집혔으면 판단 불가
				return Inference{Kind: Invalid}
			}
			target = sq
		}
		if target >= 0 {
			return Inference{Kind: Capture, From: d.Removed[0].Square, To: target, Side: mover}
		}
	}

	return Inference{Kind: Invalid}
}

// SquareName converts a logical index to algebraic notation ("a1".."h8").
func SquareName(sq int) string {
	if sq < 0 || sq >= Squares {
		return "??"
	}
	return string([]byte{byte('a' + sq%8), byte('1' + sq/8)})
}

// ParseSquare converts algebraic notation to a logical index.
func ParseSquare(name string) (int, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if len(name) != 2 {
		return 0, fmt.Errorf("invalid square %q", name)
	}
	file, rank := name[0], name[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return 0, fmt.Errorf("invalid square %q", name)
	}
	return int(rank-'1')*8 + int(file-'a'), nil
}
