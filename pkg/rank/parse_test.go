package rank

import "testing"

func TestCleanStripsDashesAndSpaces(t *testing.T) {
	got := Clean("Pawn - 3 – x — y.z\n\tw")
	if got != "pawn3xy.zw" {
		t.Fatalf("unexpected clean result %q", got)
	}
}

func TestParseText(t *testing.T) {
	cases := []struct {
		in   string
		want Rank
		ok   bool
	}{
		{"pawn3", Pawn3, true},
		{"Pawn-3\n", Pawn3, true},
		{"KNIGHT – 7", Knight7, true},
		{"  bishop—9 ", Bishop9, true},
		{"rook 1", Rook1, true},
		{"Unranked", Unranked, true},
		{"un ranked", Unranked, true},
		{"xx rook-2 knight-4", Rook2, true},
		{"pawn0 knight3", Knight3, true},
		{"pawn\n3", Pawn3, true},
		{"bishop\r\n- 5", Bishop5, true},
		{"pawn0", 0, false},
		{"queen5", 0, false},
		{"#@!garbage", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseText(c.in)
		if ok != c.ok || (ok && got != c.want) {
			t.Fatalf("ParseText(%q) = %s,%v expected %s,%v", c.in, got, ok, c.want, c.ok)
		}
	}
}

func TestAssignSelectionsKeepsPositions(t *testing.T) {
	current := []Rank{Unranked, Unranked, Unranked, Unranked, Unranked, Unranked, Unranked, Unranked}
	resolved := []Rank{Pawn3, 0, Knight1, 0, 0, 0, 0, Rook9}
	ok := []bool{true, false, true, false, false, false, false, true}
	got := AssignSelections(current, resolved, ok)
	want := []Rank{Pawn3, Unranked, Knight1, Unranked, Unranked, Unranked, Unranked, Rook9}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot %d expected %s got %s", i, want[i], got[i])
		}
	}
	if current[0] != Unranked {
		t.Fatalf("input slice mutated")
	}
}
