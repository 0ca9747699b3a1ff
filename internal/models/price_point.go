package models

import "time"

// PricePoint is one observed price of an item
type PricePoint struct {
	Price float64   `json:"price"`
	Date  time.Time `json:"date"`
}

// IsValid reports whether the point can be plotted: it needs a date and a
// positive price.
func (p PricePoint) IsValid() bool {
	return !p.Date.IsZero() && SanitizePrice(p.Price) > 0
}

// PriceChange is the delta between the two most recent price points
type PriceChange struct {
	Delta      float64 `json:"change"`
	Percentage float64 `json:"percentage"`
}

// ChartPoint is a plottable sample of an item's price history
type ChartPoint struct {
	Label string    `json:"label"`
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// PriceHistoryResponse is the API view of an item's price history
type PriceHistoryResponse struct {
	ItemID  string       `json:"item_id"`
	Change  PriceChange  `json:"change"`
	Chart   []ChartPoint `json:"chart"`
	History []PricePoint `json:"history"`
}
