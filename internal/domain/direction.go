package domain

import (
	"errors"
	"fmt"
	"math"
)

// ErrUnknownDirection is returned when parsing an unrecognized direction symbol.
var ErrUnknownDirection = errors.New("unknown direction")

// Direction is one of the eight compass headings a weather effect drifts toward.
// Values are ordered counter-clockwise from EAST in 45° steps.
type Direction int

const (
	East Direction = iota
	NorthEast
	North
	NorthWest
	West
	SouthWest
	South
	SouthEast
)

var directionNames = [...]string{
	East:      "EAST",
	NorthEast: "NORTH_EAST",
	North:     "NORTH",
	NorthWest: "NORTH_WEST",
	West:      "WEST",
	SouthWest: "SOUTH_WEST",
	South:     "SOUTH",
	SouthEast: "SOUTH_EAST",
}

var directionLabels = [...]string{
	East:      "E",
	NorthEast: "NE",
	North:     "N",
	NorthWest: "NW",
	West:      "W",
	SouthWest: "SW",
	South:     "S",
	SouthEast: "SE",
}

var directionVectors = [...]Vector{
	East:      {X: 1, Y: 0},
	NorthEast: {X: 1, Y: 1},
	North:     {X: 0, Y: 1},
	NorthWest: {X: -1, Y: 1},
	West:      {X: -1, Y: 0},
	SouthWest: {X: -1, Y: -1},
	South:     {X: 0, Y: -1},
	SouthEast: {X: 1, Y: -1},
}

// Directions returns every direction in menu order, clockwise from NORTH.
func Directions() []Direction {
	return []Direction{North, NorthEast, East, SouthEast, South, SouthWest, West, NorthWest}
}

func (d Direction) valid() bool {
	return d >= East && d <= SouthEast
}

func (d Direction) String() string {
	if !d.valid() {
		return fmt.Sprintf("Direction(%d)", int(d))
	}
	return directionNames[d]
}

// Label returns the short compass label (N, NE, ...).
func (d Direction) Label() string {
	if !d.valid() {
		return "?"
	}
	return directionLabels[d]
}

// ParseDirection resolves a symbol such as "NORTH_WEST".
func ParseDirection(s string) (Direction, error) {
	for i, name := range directionNames {
		if name == s {
			return Direction(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownDirection, s)
}

func (d Direction) MarshalText() ([]byte, error) {
	if !d.valid() {
		return nil, fmt.Errorf("invalid direction %d", int(d))
	}
	return []byte(directionNames[d]), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// VectorToDirection snaps v to the nearest compass direction. It is total: the
// zero vector and vectors with NaN components resolve to EAST.
func VectorToDirection(v Vector) Direction {
	if math.IsNaN(v.X) || math.IsNaN(v.Y) || (v.X == 0 && v.Y == 0) {
		return East
	}
	degrees := mod(math.Atan2(v.Y, v.X)*(180/math.Pi), 360)
	sector := int(math.Floor(degrees/45+0.5)) % 8
	return Direction(sector)
}

// DirectionToVector is the inverse of VectorToDirection on the eight symbols.
// Unknown values map to the default drift vector.
func DirectionToVector(d Direction) Vector {
	if !d.valid() {
		return DefaultDirection
	}
	return directionVectors[d]
}

func mod(n, m float64) float64 {
	r := math.Mod(n, m)
	if r < 0 {
		r += m
	}
	return r
}
