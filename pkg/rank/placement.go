package rank

import "fmt"

// LobbySize is the number of players (and placements) in a match.
const LobbySize = 8

// Placement is a finishing position, First (1) through Eighth (8).
type Placement int

const (
	First Placement = iota + 1
	Second
	Third
	Fourth
	Fifth
	Sixth
	Seventh
	Eighth
)

var placementBase = [LobbySize + 1]float64{0, 80, 64, 48, 32, -33, -49, -65, -81}

// Placements returns 1st..8th in order.
func Placements() []Placement {
	out := make([]Placement, 0, LobbySize)
	for p := First; p <= Eighth; p++ {
		out = append(out, p)
	}
	return out
}

// Valid reports whether p is 1..8.
func (p Placement) Valid() bool { return p >= First && p <= Eighth }

// Base returns the fixed point value of the placement.
func (p Placement) Base() float64 {
	if !p.Valid() {
		return 0
	}
	return placementBase[p]
}

func (p Placement) String() string {
	switch p {
	case First:
		return "1st"
	case Second:
		return "2nd"
	case Third:
		return "3rd"
	}
	if p.Valid() {
		return fmt.Sprintf("%dth", int(p))
	}
	return fmt.Sprintf("placement(%d)", int(p))
}
