// Package mmrchart draws the per-placement MMR deltas of an estimate.
package mmrchart

import (
	"errors"
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"

	"dacalc/pkg/rank"
)

// Default chart size in pixels.
const (
	Width  = 800
	Height = 450
)

// Bars converts the ordered changes into bar values, gains green and losses red.
func Bars(e rank.Estimate) []chart.Value {
	bars := make([]chart.Value, 0, len(e.Changes))
	for _, c := range e.Changes {
		col := chart.ColorGreen
		if c.Delta < 0 {
			col = chart.ColorRed
		}
		bars = append(bars, chart.Value{
			Label: fmt.Sprintf("%s %+.0f", c.Placement, c.Delta),
			Value: c.Delta,
			Style: chart.Style{
				FillColor:   col,
				StrokeColor: col,
				StrokeWidth: 1,
			},
		})
	}
	return bars
}

// Render writes a PNG bar chart of e to w.
func Render(w io.Writer, e rank.Estimate) error {
	if len(e.Changes) == 0 {
		return errors.New("no changes to chart")
	}
	graph := chart.BarChart{
		Title: fmt.Sprintf("lobby avg %.0f (%s), current %s", e.Average, e.Closest, e.Current),
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		Width:        Width,
		Height:       Height,
		BarWidth:     60,
		UseBaseValue: true,
		BaseValue:    0,
		Bars:         Bars(e),
	}
	return graph.Render(chart.PNG, w)
}
