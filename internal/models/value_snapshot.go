package models

import (
	"time"
)

// CollectionValueSnapshot stores daily collection value for historical tracking
type CollectionValueSnapshot struct {
	ID              uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SnapshotDate    time.Time `json:"snapshot_date" gorm:"uniqueIndex;not null"`
	TotalItems      int       `json:"total_items"`
	DistinctItems   int       `json:"distinct_items"`
	TotalValue      float64   `json:"total_value"`
	AverageValue    float64   `json:"average_value"`
	TopEdition      string    `json:"top_edition"`
	TopEditionValue float64   `json:"top_edition_value"`
	CreatedAt       time.Time `json:"created_at"`
}

// ValueHistoryResponse is the API response for value history
type ValueHistoryResponse struct {
	Snapshots []CollectionValueSnapshot `json:"snapshots"`
	Period    string                    `json:"period"` // "week", "month", "3month", "year", "all"
}
