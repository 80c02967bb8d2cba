package store

import "time"

// Lookup records one completed presentation cycle.
type Lookup struct {
	ID         string `gorm:"primaryKey;size:36"`
	Country    string `gorm:"size:64;index"`
	State      string `gorm:"size:16;index"`
	Cards      int
	AtRisk     int
	Error      string `gorm:"type:text"`
	DurationMs int64
	CreatedAt  time.Time `gorm:"autoCreateTime;index"`
}

// LookupQuery filters and pages history listings.
type LookupQuery struct {
	Country string
	State   string
	Offset  int
	Limit   int
}
