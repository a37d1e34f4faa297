package report

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"dacalc/models"
	"dacalc/pkg/rank"
)

func mustDBFromEnv() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN not set in env")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	return gdb
}

// Summary aggregates stored recognitions.
type Summary struct {
	Records    int
	Failed     int
	Complete   int // all eight regions resolved
	Regions    int
	Unresolved int
	// RankCounts counts resolved regions per rank name.
	RankCounts map[string]int
	// MeanAverage is the mean lobby average over records that have one.
	MeanAverage float64
	averaged    int
}

// Summarize folds recs into a Summary.
func Summarize(recs []models.Recognition) Summary {
	s := Summary{RankCounts: map[string]int{}}
	var sum float64
	for _, r := range recs {
		s.Records++
		if r.Failed {
			s.Failed++
			continue
		}
		if r.Resolved == rank.LobbySize {
			s.Complete++
		}
		for _, reg := range r.Regions {
			s.Regions++
			if !reg.Resolved {
				s.Unresolved++
				continue
			}
			s.RankCounts[reg.Rank]++
		}
		if r.Average != nil {
			sum += *r.Average
			s.averaged++
		}
	}
	if s.averaged > 0 {
		s.MeanAverage = sum / float64(s.averaged)
	}
	return s
}

// Print writes the summary; ranks are listed in ladder order.
func (s Summary) Print(w io.Writer, month string) {
	fmt.Fprintf(w, "Report month=%s (UTC):\n", month)
	fmt.Fprintf(w, "  records=%d failed=%d complete=%d regions=%d unresolved=%d\n", s.Records, s.Failed, s.Complete, s.Regions, s.Unresolved)
	if s.averaged > 0 {
		fmt.Fprintf(w, "  mean lobby average=%.0f (%s)\n", s.MeanAverage, rank.ClosestRank(s.MeanAverage))
	}
	names := make([]string, 0, len(s.RankCounts))
	for n := range s.RankCounts {
		names = append(names, n)
	}
	sort.Slice(names, func(i, j int) bool {
		ri, _ := rank.ParseName(names[i])
		rj, _ := rank.ParseName(names[j])
		return ri < rj
	})
	for _, n := range names {
		fmt.Fprintf(w, "  %-9s %d\n", n, s.RankCounts[n])
	}
}

// RunReport prints a month-bounded report (month in YYYY-MM) and optionally
// lists the matching recognitions.
func RunReport(month string, list bool) {
	gdb := mustDBFromEnv()

	t, err := time.Parse("2006-01", month)
	if err != nil {
		log.Fatalf("invalid month format, expected YYYY-MM: %v", err)
	}
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	var recs []models.Recognition
	if err := gdb.Preload("Regions").Where("created_at >= ? AND created_at < ?", start, end).Order("id").Find(&recs).Error; err != nil {
		log.Fatalf("query failed: %v", err)
	}
	Summarize(recs).Print(os.Stdout, month)

	if list {
		for _, r := range recs {
			avg := "-"
			if r.Average != nil {
				avg = fmt.Sprintf("%.0f", *r.Average)
			}
			fmt.Printf("%d|%s|%s|%d/8|%s|%s\n", r.ID, r.FileName, r.Source, r.Resolved, avg, r.CreatedAt.Format(time.RFC3339))
		}
	}
}
