// Package camelot implements the 24-position harmonic wheel used to
// judge mixing compatibility: 12 numeric positions crossed with two
// modes (A = minor, B = major). Adjacent positions mix cleanly.
package camelot

import (
	"fmt"
	"strconv"
	"strings"
)

// Key is one slot on the wheel, e.g. 8A or 12B
type Key struct {
	Position int  // 1-12
	Mode     byte // 'A' or 'B'
}

// Distance tiers between two keys
const (
	DistanceSame     = 0 // identical key
	DistanceAdjacent = 1 // one wheel step or parallel mode
	DistanceFar      = 2 // anything else
)

// Parse converts Camelot notation ("1A".."12B", case-insensitive)
// into a Key. Anything else is an error.
func Parse(s string) (Key, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) < 2 || len(s) > 3 {
		return Key{}, fmt.Errorf("malformed camelot key: %q", s)
	}

	mode := s[len(s)-1]
	if mode != 'A' && mode != 'B' {
		return Key{}, fmt.Errorf("malformed camelot key: %q", s)
	}

	pos, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || pos < 1 || pos > 12 {
		return Key{}, fmt.Errorf("malformed camelot key: %q", s)
	}

	return Key{Position: pos, Mode: mode}, nil
}

// String renders the key back into Camelot notation
func (k Key) String() string {
	return fmt.Sprintf("%d%c", k.Position, k.Mode)
}

// Valid reports whether the key is a real wheel slot
func (k Key) Valid() bool {
	return k.Position >= 1 && k.Position <= 12 && (k.Mode == 'A' || k.Mode == 'B')
}

// Distance classifies the harmonic distance between two keys.
// Same key is 0; one numeric step in the same mode (with 12/1
// wraparound) or the parallel mode at the same position is 1;
// everything else is 2.
func Distance(a, b Key) int {
	if a == b {
		return DistanceSame
	}

	if a.Position == b.Position {
		// Parallel mode (8A <-> 8B)
		return DistanceAdjacent
	}

	if a.Mode == b.Mode {
		diff := a.Position - b.Position
		if diff < 0 {
			diff = -diff
		}
		// 12 and 1 are neighbors on the wheel
		if diff == 1 || diff == 11 {
			return DistanceAdjacent
		}
	}

	return DistanceFar
}

// Compatible reports whether two keys sit within one wheel step
func Compatible(a, b Key) bool {
	return Distance(a, b) <= DistanceAdjacent
}

// Neighbors returns the keys considered compatible with k: the key
// itself, one step up, one step down, and the parallel mode.
func Neighbors(k Key) []Key {
	up := k.Position + 1
	if up > 12 {
		up = 1
	}
	down := k.Position - 1
	if down < 1 {
		down = 12
	}

	parallel := byte('A')
	if k.Mode == 'A' {
		parallel = 'B'
	}

	return []Key{
		k,
		{Position: up, Mode: k.Mode},
		{Position: down, Mode: k.Mode},
		{Position: k.Position, Mode: parallel},
	}
}
