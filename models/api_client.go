package models

import (
	"time"
)

// APIClient is a machine client allowed to request bearer tokens.
type APIClient struct {
	ID          uint `gorm:"primaryKey"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ClientID    string `gorm:"size:64;uniqueIndex;not null"`
	SecretHash  []byte `gorm:"not null"`
	Description string `gorm:"size:255"`
	Disabled    bool   `gorm:"default:false"`
}
