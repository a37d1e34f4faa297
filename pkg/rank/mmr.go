package rank

import (
	"fmt"
	"math"
)

// deltaWeight scales the lobby/player rating gap into the placement delta.
const deltaWeight = 0.15

// clampFloor is the minimum gain for a win and the minimum loss for last place.
const clampFloor = 15

// Change is the estimated rating delta for finishing at Placement.
type Change struct {
	Placement Placement `json:"placement"`
	Delta     float64   `json:"delta"`
}

// Estimate is the full MMR model output for one lobby.
type Estimate struct {
	Average float64  `json:"average"`
	Closest Rank     `json:"closest"`
	Current Rank     `json:"current"`
	Changes []Change `json:"changes"`
}

// ClosestRank returns the valued rank nearest to avg rounded up to a whole step.
// Ties keep the rank declared first.
func ClosestRank(avg float64) Rank {
	target := math.Ceil(avg/Step) * Step
	best := Pawn1
	diff := math.Inf(1)
	for _, r := range Valued() {
		v, _ := r.MMR()
		if d := math.Abs(float64(v) - target); d < diff {
			diff = d
			best = r
		}
	}
	return best
}

// Delta estimates the rating change for placement p given the lobby average and the player's rating.
func Delta(avg, current float64, p Placement) float64 {
	v := (avg-current)*deltaWeight + p.Base()
	if p == First && v < clampFloor {
		v = clampFloor
	}
	if p == Eighth && v > -clampFloor {
		v = -clampFloor
	}
	return v
}

// AverageMMR averages the lobby, leaving unranked players out of both the sum and the divisor.
func AverageMMR(ranks []Rank) (float64, error) {
	if len(ranks) != LobbySize {
		return 0, fmt.Errorf("%w: got %d", ErrLobbySize, len(ranks))
	}
	total := 0
	unranked := 0
	for _, r := range ranks {
		v, ok := r.MMR()
		if !ok {
			unranked++
			continue
		}
		total += v
	}
	if unranked == LobbySize {
		return 0, ErrInsufficientData
	}
	return float64(total) / float64(LobbySize-unranked), nil
}

// SelectionAverage is the running average over the slots that are currently set.
// Unset and unranked slots are skipped; ok is false when nothing contributes.
func SelectionAverage(ranks []Rank, set []bool) (float64, bool) {
	total, n := 0, 0
	for i, r := range ranks {
		if i < len(set) && !set[i] {
			continue
		}
		if v, ok := r.MMR(); ok {
			total += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return float64(total) / float64(n), true
}

// ComputeChanges runs the model for a lobby and returns the changes ordered by placement.
func ComputeChanges(selected []Rank, current Rank) (Estimate, error) {
	cur, ok := current.MMR()
	if !ok {
		return Estimate{}, ErrUnrankedCurrent
	}
	avg, err := AverageMMR(selected)
	if err != nil {
		return Estimate{}, err
	}
	est := Estimate{
		Average: avg,
		Closest: ClosestRank(avg),
		Current: current,
		Changes: make([]Change, 0, LobbySize),
	}
	for _, p := range Placements() {
		est.Changes = append(est.Changes, Change{Placement: p, Delta: Delta(avg, float64(cur), p)})
	}
	return est, nil
}
