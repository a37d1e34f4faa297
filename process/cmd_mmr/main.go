package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"dacalc/pkg/mmrchart"
	"dacalc/pkg/rank"
)

// Prints the MMR change per placement for a lobby given by rank names.
//
//	cmd_mmr -ranks knight1,knight3,pawn9,bishop1,unranked,knight2,knight2,pawn5 -current knight4
func main() {
	ranksFlag := flag.String("ranks", "", "8 comma separated rank names (unranked allowed)")
	cur := flag.String("current", "", "your current rank")
	chart := flag.String("chart", "", "also write a PNG bar chart to this path")
	flag.Parse()

	names := strings.Split(*ranksFlag, ",")
	lobby := make([]rank.Rank, 0, len(names))
	for _, n := range names {
		r, err := rank.ParseName(n)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		lobby = append(lobby, r)
	}
	c, err := rank.ParseName(*cur)
	if err != nil {
		fmt.Fprintln(os.Stderr, "-current:", err)
		os.Exit(2)
	}
	est, err := rank.ComputeChanges(lobby, c)
	if errors.Is(err, rank.ErrInsufficientData) {
		fmt.Fprintln(os.Stderr, "insufficient data: every player is unranked")
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	fmt.Printf("lobby average %.0f (%s)\n", est.Average, est.Closest)
	for _, ch := range est.Changes {
		fmt.Printf("%s: %+.0f\n", ch.Placement, ch.Delta)
	}
	if *chart != "" {
		f, err := os.Create(*chart)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		defer f.Close()
		if err := mmrchart.Render(f, est); err != nil {
			fmt.Fprintln(os.Stderr, "chart:", err)
			os.Exit(1)
		}
	}
}
