package models

import (
	"time"

	"dacalc/pkg/ocr"
	"dacalc/pkg/rank"
)

// Recognition is one processed lobby screenshot.
type Recognition struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time
	UpdatedAt time.Time
	FileName  string `gorm:"size:255;not null;index"`
	Source    string `gorm:"size:32;not null;default:upload"` // upload, watch, screen
	StorePath string `gorm:"column:store_path;size:512"`
	Width     int
	Height    int
	Resolved  int      // number of regions that produced a rank
	Average   *float64 // nil when every resolved slot was unranked or nothing resolved
	Closest   string   `gorm:"size:16"`
	// Mark failed captures (e.g. too small for the badge layout) instead of dropping them.
	Failed       bool                `gorm:"default:false;index"`
	FailedReason string              `gorm:"size:255"`
	Regions      []RecognitionRegion `gorm:"foreignKey:RecognitionID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// RecognitionRegion stores one badge slot of a Recognition.
type RecognitionRegion struct {
	ID            uint   `gorm:"primaryKey"`
	RecognitionID uint   `gorm:"index;not null"`
	Slot          int    `gorm:"not null"`
	Rank          string `gorm:"size:16"`
	Resolved      bool   `gorm:"default:false"`
	Text          string `gorm:"size:255"`
	Contrast      float64
	Attempts      int
}

// NewRecognition builds a row (with regions) from pipeline results.
func NewRecognition(fileName, source string, width, height int, results []ocr.RegionResult) Recognition {
	rec := Recognition{FileName: fileName, Source: source, Width: width, Height: height}
	for _, r := range results {
		reg := RecognitionRegion{
			Slot:     r.Index,
			Resolved: r.Resolved,
			Text:     r.Text,
			Contrast: r.Contrast,
			Attempts: r.Attempts,
		}
		if r.Resolved {
			reg.Rank = r.Rank.String()
			rec.Resolved++
		}
		rec.Regions = append(rec.Regions, reg)
	}
	ranks, ok := ocr.Ranks(results)
	if avg, has := rank.SelectionAverage(ranks, ok); has {
		rec.Average = &avg
		rec.Closest = rank.ClosestRank(avg).String()
	}
	return rec
}

// Ranks returns the stored slots as positional ranks with resolved flags.
func (r Recognition) Ranks() ([]rank.Rank, []bool) {
	ranks := make([]rank.Rank, rank.LobbySize)
	ok := make([]bool, rank.LobbySize)
	for _, reg := range r.Regions {
		if reg.Slot < 0 || reg.Slot >= rank.LobbySize || !reg.Resolved {
			continue
		}
		rk, err := rank.ParseName(reg.Rank)
		if err != nil {
			continue
		}
		ranks[reg.Slot] = rk
		ok[reg.Slot] = true
	}
	return ranks, ok
}
