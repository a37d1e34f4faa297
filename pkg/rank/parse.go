package rank

import (
	"regexp"
	"strings"
)

var rankTokenRE = regexp.MustCompile(`(bishop|knight|rook|pawn)([0-9])|unranked`)

// dashes, spaces and line breaks OCR puts between the piece and the tier digit
var tokenNoise = strings.NewReplacer(" ", "", "\t", "", "\r", "", "\n", "", "-", "", "–", "", "—", "")

// Clean strips whitespace and dash variants (hyphen-minus, en dash, em dash) and lowercases the rest.
func Clean(s string) string {
	return strings.ToLower(tokenNoise.Replace(s))
}

// MatchToken returns the first rank-shaped token in already cleaned text, or "".
func MatchToken(cleaned string) string {
	return rankTokenRE.FindString(cleaned)
}

// ParseText extracts a rank from raw OCR output. Tokens are tried left to right
// and the first one naming a known rank wins, so "pawn0 knight3" gives knight3.
// Text without such a token reports false; it never errors.
func ParseText(text string) (Rank, bool) {
	for _, m := range rankTokenRE.FindAllStringSubmatch(Clean(text), -1) {
		if m[0] == "unranked" {
			return Unranked, true
		}
		if r, ok := FromPiece(m[1], int(m[2][0]-'0')); ok {
			return r, true
		}
	}
	return 0, false
}

// AssignSelections overwrites slot i of current with resolved[i] wherever ok[i] holds.
// Slots are paired by position, so an unresolved region never shifts later ones.
func AssignSelections(current []Rank, resolved []Rank, ok []bool) []Rank {
	out := make([]Rank, len(current))
	copy(out, current)
	for i := range out {
		if i < len(resolved) && i < len(ok) && ok[i] {
			out[i] = resolved[i]
		}
	}
	return out
}
