package boardstate

import (
	"errors"
	"fmt"
)

var ErrCardinality = errors.New("board state must have exactly 64 squares")

// Mapping translates a logical square (a1=0) to the physical index used by
// the sensor and LED chain.
type Mapping [Squares]int

// DefaultMapping is the wiring of the production board: four quadrant
// spirals, each driven from the centre of the board outwards.
var DefaultMapping = Mapping{
	28, 24, 20, 16, 15, 14, 13, 12,
	29, 25, 21, 17, 11, 10, 9, 8,
	30, 26, 22, 18, 7, 6, 5, 4,
	31, 27, 23, 19, 3, 2, 1, 0,
	32, 33, 34, 35, 51, 55, 59, 63,
	36, 37, 38, 39, 50, 54, 58, 62,
	40, 41, 42, 43, 49, 53, 57, 61,
	44, 45, 46, 47, 48, 52, 56, 60,
}

// IdentityMapping maps every logical square to the same physical index.
func IdentityMapping() Mapping {
	var m Mapping
	for i := range m {
		m[i] = i
	}
	return m
}

// Validate checks that m is a bijection over 0..63.
func (m Mapping) Validate() error {
	var seen [Squares]bool
	for logical, physical := range m {
		if physical < 0 || physical >= Squares {
			return fmt.Errorf("square %d maps to out-of-range physical index %d", logical, physical)
		}
		if seen[physical] {
			return fmt.Errorf("physical index %d mapped twice", physical)
		}
		seen[physical] = true
	}
	return nil
}

// Inverse returns the physical to logical table.
func (m Mapping) Inverse() Mapping {
	var inv Mapping
	for logical, physical := range m {
		inv[physical] = logical
	}
	return inv
}

// Physical returns the physical index of a logical square.
func (m Mapping) Physical(logical int) int { return m[logical] }

// FromPhysical reorders a reading taken in device order into logical order.
func (m Mapping) FromPhysical(raw State) State {
	var st State
	for logical, physical := range m {
		st[logical] = raw[physical]
	}
	return st
}

// ToPhysical is the inverse of FromPhysical.
func (m Mapping) ToPhysical(st State) State {
	var raw State
	for logical, physical := range m {
		raw[physical] = st[logical]
	}
	return raw
}
