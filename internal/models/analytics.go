package models

import "time"

// ValuePoint is the collection value on one calendar day (UTC)
type ValuePoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// GroupTotal sums quantity and value for one group
type GroupTotal struct {
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

// LabeledTotal is a GroupTotal in a fixed, ordered bucket list
type LabeledTotal struct {
	Label string  `json:"label"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

// MonthlyGrowth accumulates price history points for one YYYY-MM month
type MonthlyGrowth struct {
	Month      string  `json:"date"`
	TotalValue float64 `json:"totalValue"`
	ItemCount  int     `json:"cardCount"`
}

// EditionTotal is the aggregate of one edition/set
type EditionTotal struct {
	Name  string  `json:"name"`
	Count int     `json:"count"`
	Value float64 `json:"value"`
}

// InvestmentSummary holds the headline figures of the collection.
// MostValuableEdition is nil for an empty collection.
type InvestmentSummary struct {
	TotalValue          float64       `json:"totalValue"`
	TotalItems          int           `json:"totalItems"`
	AverageItemValue    float64       `json:"averageItemValue"`
	MostValuableEdition *EditionTotal `json:"mostValuableEdition"`
}

// AnalyticsSnapshot bundles every aggregate over the collection. It is
// derived data and never persisted.
type AnalyticsSnapshot struct {
	ValueHistory       []ValuePoint          `json:"valueHistory"`
	ByCondition        map[string]GroupTotal `json:"byCondition"`
	PriceRanges        []LabeledTotal        `json:"priceRanges"`
	MostValuable       []Item                `json:"mostValuable"`
	Tags               map[string]int        `json:"tags"`
	Growth             []MonthlyGrowth       `json:"growth"`
	ProductTypes       []LabeledTotal        `json:"productTypes"`
	Editions           map[string]GroupTotal `json:"editions"`
	AveragePriceByType map[string]float64    `json:"avgPriceByType"`
	Summary            InvestmentSummary     `json:"investment"`
	Revision           uint64                `json:"revision"`
	GeneratedAt        time.Time             `json:"generated_at"`
}
