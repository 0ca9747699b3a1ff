package services

import (
	"time"

	"github.com/pokstore/backend/internal/models"
)

// chartDateLayout is the label format of chart points (dd/mm/yyyy, as the
// shop front end shows dates)
const chartDateLayout = "02/01/2006"

// AppendPrice returns history with a new point for price at now, unless price
// equals the most recent recorded price. The input slice is never modified;
// a nil history is treated as empty.
func AppendPrice(history []models.PricePoint, price float64, now time.Time) []models.PricePoint {
	out := make([]models.PricePoint, len(history), len(history)+1)
	copy(out, history)

	if n := len(out); n > 0 && out[n-1].Price == price {
		return out
	}
	return append(out, models.PricePoint{Price: price, Date: now.UTC()})
}

// LastChange returns the difference between the last two points and the
// percentage it represents of the previous price. Fewer than two points, or
// a previous price of zero, yield a zero percentage.
func LastChange(history []models.PricePoint) models.PriceChange {
	if len(history) < 2 {
		return models.PriceChange{}
	}

	current := models.SanitizePrice(history[len(history)-1].Price)
	previous := models.SanitizePrice(history[len(history)-2].Price)
	delta := current - previous

	var pct float64
	if previous != 0 {
		pct = delta / previous * 100
	}
	return models.PriceChange{Delta: delta, Percentage: pct}
}

// ChartSeries maps history to plottable points, skipping entries without a
// date or a price. It returns an empty (non-nil) slice when nothing is left.
func ChartSeries(history []models.PricePoint) []models.ChartPoint {
	series := make([]models.ChartPoint, 0, len(history))
	for _, p := range history {
		if !p.IsValid() {
			continue
		}
		series = append(series, models.ChartPoint{
			Label: p.Date.UTC().Format(chartDateLayout),
			Date:  p.Date,
			Value: p.Price,
		})
	}
	return series
}
