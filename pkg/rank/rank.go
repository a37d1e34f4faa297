package rank

import (
	"fmt"
	"strings"
)

// Rank is a player rank badge. Declaration order is the ladder order.
type Rank int

const (
	Pawn1 Rank = iota
	Pawn2
	Pawn3
	Pawn4
	Pawn5
	Pawn6
	Pawn7
	Pawn8
	Pawn9
	Knight1
	Knight2
	Knight3
	Knight4
	Knight5
	Knight6
	Knight7
	Knight8
	Knight9
	Bishop1
	Bishop2
	Bishop3
	Bishop4
	Bishop5
	Bishop6
	Bishop7
	Bishop8
	Bishop9
	Rook1
	Rook2
	Rook3
	Rook4
	Rook5
	Rook6
	Rook7
	Rook8
	Rook9
	Unranked

	numRanks = int(Unranked) + 1
)

const (
	// BaseMMR is the value of the lowest rank and the extra offset applied on top of it for pawn2.
	BaseMMR = 250
	// Step is the uniform MMR distance between adjacent ranks.
	Step = 80
	// TiersPerPiece is the number of tiers each piece spans.
	TiersPerPiece = 9
)

// Pieces in ladder order.
var Pieces = []string{"pawn", "knight", "bishop", "rook"}

var (
	names  [numRanks]string
	values [numRanks]int
	byName = make(map[string]Rank, numRanks)
)

func init() {
	for i := 0; i < numRanks-1; i++ {
		piece := Pieces[i/TiersPerPiece]
		names[i] = fmt.Sprintf("%s%d", piece, i%TiersPerPiece+1)
		switch i {
		case 0:
			values[i] = BaseMMR
		case 1:
			// pawn2 sits a full base plus half a step above pawn1
			values[i] = values[0] + BaseMMR + Step/2
		default:
			values[i] = values[i-1] + Step
		}
	}
	names[Unranked] = "unranked"
	for i, n := range names {
		byName[n] = Rank(i)
	}
}

// String returns the canonical lower-case name (e.g. "knight3").
func (r Rank) String() string {
	if !r.Valid() {
		return fmt.Sprintf("rank(%d)", int(r))
	}
	return names[r]
}

// Valid reports whether r is one of the declared ranks.
func (r Rank) Valid() bool { return r >= Pawn1 && r <= Unranked }

// MMR returns the numeric rating of r. Unranked (and invalid values) report false.
func (r Rank) MMR() (int, bool) {
	if !r.Valid() || r == Unranked {
		return 0, false
	}
	return values[r], true
}

// Piece returns the piece name and tier (1..9) of a named rank.
func (r Rank) Piece() (string, int, bool) {
	if !r.Valid() || r == Unranked {
		return "", 0, false
	}
	return Pieces[int(r)/TiersPerPiece], int(r)%TiersPerPiece + 1, true
}

// ParseName maps a canonical name back to its Rank. Case and surrounding space are ignored.
func ParseName(s string) (Rank, error) {
	r, ok := byName[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRank, s)
	}
	return r, nil
}

// FromPiece builds the rank for a piece/tier pair.
func FromPiece(piece string, tier int) (Rank, bool) {
	if tier < 1 || tier > TiersPerPiece {
		return 0, false
	}
	for i, p := range Pieces {
		if p == piece {
			return Rank(i*TiersPerPiece + tier - 1), true
		}
	}
	return 0, false
}

// All returns every rank in declaration order, unranked last.
func All() []Rank {
	out := make([]Rank, numRanks)
	for i := range out {
		out[i] = Rank(i)
	}
	return out
}

// Valued returns the ranks that carry a numeric MMR value, in declaration order.
func Valued() []Rank {
	return All()[:numRanks-1]
}

// MarshalText encodes the rank by name so JSON payloads read "pawn3" rather than 2.
func (r Rank) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRank, int(r))
	}
	return []byte(names[r]), nil
}

// UnmarshalText decodes a rank name.
func (r *Rank) UnmarshalText(b []byte) error {
	v, err := ParseName(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}
