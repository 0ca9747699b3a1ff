package services

import (
	"sort"
	"strings"
	"time"

	"github.com/pokstore/backend/internal/models"
)

// DefaultMostValuableLimit is the default size of the most valuable list
const DefaultMostValuableLimit = 5

// priceRange is a histogram bucket with an inclusive upper bound.
// The last bucket has no bound.
type priceRange struct {
	label string
	max   float64
	open  bool
}

var priceRanges = []priceRange{
	{label: "0-5€", max: 5},
	{label: "5-10€", max: 10},
	{label: "10-20€", max: 20},
	{label: "20-50€", max: 50},
	{label: "50-100€", max: 100},
	{label: "100€+", open: true},
}

// productType is a classification bucket matched by a lower-case name keyword.
// Order matters: the first matching keyword wins.
type productType struct {
	label   string
	keyword string
}

// OtherProductType is the catch-all product type
const OtherProductType = "Autres"

var productTypes = []productType{
	{label: "ETB", keyword: "etb"},
	{label: "Display", keyword: "display"},
	{label: "Coffret", keyword: "coffret"},
	{label: "Tripack", keyword: "tripack"},
	{label: "UPC", keyword: "upc"},
}

// ProductTypeLabels returns every product type in display order, the catch-all last
func ProductTypeLabels() []string {
	labels := make([]string, 0, len(productTypes)+1)
	for _, pt := range productTypes {
		labels = append(labels, pt.label)
	}
	return append(labels, OtherProductType)
}

// ClassifyProductType returns the product type of an item name
func ClassifyProductType(name string) string {
	lower := strings.ToLower(name)
	for _, pt := range productTypes {
		if strings.Contains(lower, pt.keyword) {
			return pt.label
		}
	}
	return OtherProductType
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ValueHistory returns the collection value for every calendar day (UTC)
// that appears in any price history. For each day an item contributes its
// most recent price recorded on or before that day times its quantity.
func ValueHistory(items []models.Item) []models.ValuePoint {
	daySet := make(map[string]struct{})
	for i := range items {
		for _, p := range items[i].PriceHistory {
			if p.Date.IsZero() {
				continue
			}
			daySet[dayKey(p.Date)] = struct{}{}
		}
	}

	days := make([]string, 0, len(daySet))
	for d := range daySet {
		days = append(days, d)
	}
	sort.Strings(days)

	points := make([]models.ValuePoint, 0, len(days))
	for _, day := range days {
		var total float64
		for i := range items {
			item := &items[i]
			var latest *models.PricePoint
			for j := range item.PriceHistory {
				p := &item.PriceHistory[j]
				if p.Date.IsZero() || dayKey(p.Date) > day {
					continue
				}
				if latest == nil || p.Date.After(latest.Date) {
					latest = p
				}
			}
			if latest != nil {
				total += models.SanitizePrice(latest.Price) * float64(item.EffectiveQuantity())
			}
		}
		points = append(points, models.ValuePoint{Date: day, Value: total})
	}
	return points
}

// ValueByCondition sums value and quantity per condition label
func ValueByCondition(items []models.Item) map[string]models.GroupTotal {
	out := make(map[string]models.GroupTotal)
	for i := range items {
		item := &items[i]
		key := item.Condition.Label()
		g := out[key]
		g.Count += item.EffectiveQuantity()
		g.Value += item.Value()
		out[key] = g
	}
	return out
}

// PriceRangeDistribution counts quantity (and value) per fixed price bucket.
// Every bucket is present, in ascending order.
func PriceRangeDistribution(items []models.Item) []models.LabeledTotal {
	out := make([]models.LabeledTotal, len(priceRanges))
	for i, r := range priceRanges {
		out[i].Label = r.label
	}
	for i := range items {
		item := &items[i]
		price := item.EffectivePrice()
		for b, r := range priceRanges {
			if r.open || price <= r.max {
				out[b].Count += item.EffectiveQuantity()
				out[b].Value += item.Value()
				break
			}
		}
	}
	return out
}

// MostValuable returns up to limit items ordered by descending unit price.
// Items with equal price keep their input order. A non-positive limit uses
// DefaultMostValuableLimit.
func MostValuable(items []models.Item, limit int) []models.Item {
	if limit <= 0 {
		limit = DefaultMostValuableLimit
	}
	sorted := make([]models.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(a, b int) bool {
		return sorted[a].EffectivePrice() > sorted[b].EffectivePrice()
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// TagDistribution counts quantity per tag
func TagDistribution(items []models.Item) map[string]int {
	out := make(map[string]int)
	for i := range items {
		for _, tag := range items[i].Tags {
			out[tag] += items[i].EffectiveQuantity()
		}
	}
	return out
}

// CollectionGrowth groups every price history point by month (YYYY-MM, UTC)
// and accumulates price times quantity, sorted by month.
func CollectionGrowth(items []models.Item) []models.MonthlyGrowth {
	months := make(map[string]*models.MonthlyGrowth)
	for i := range items {
		item := &items[i]
		qty := item.EffectiveQuantity()
		for _, p := range item.PriceHistory {
			if p.Date.IsZero() {
				continue
			}
			key := p.Date.UTC().Format("2006-01")
			m, ok := months[key]
			if !ok {
				m = &models.MonthlyGrowth{Month: key}
				months[key] = m
			}
			m.TotalValue += models.SanitizePrice(p.Price) * float64(qty)
			m.ItemCount += qty
		}
	}

	out := make([]models.MonthlyGrowth, 0, len(months))
	for _, m := range months {
		out = append(out, *m)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Month < out[b].Month })
	return out
}

// ProductTypeDistribution sums quantity and value per product type. Every
// type is present, in classification order.
func ProductTypeDistribution(items []models.Item) []models.LabeledTotal {
	labels := ProductTypeLabels()
	out := make([]models.LabeledTotal, len(labels))
	index := make(map[string]int, len(labels))
	for i, l := range labels {
		out[i].Label = l
		index[l] = i
	}
	for i := range items {
		item := &items[i]
		t := &out[index[ClassifyProductType(item.Name)]]
		t.Count += item.EffectiveQuantity()
		t.Value += item.Value()
	}
	return out
}

// EditionDistribution sums quantity and value per edition label
func EditionDistribution(items []models.Item) map[string]models.GroupTotal {
	totals, _ := editionTotals(items)
	return totals
}

// editionTotals also returns the edition labels in first-seen order
func editionTotals(items []models.Item) (map[string]models.GroupTotal, []string) {
	out := make(map[string]models.GroupTotal)
	var order []string
	for i := range items {
		item := &items[i]
		key := item.Set
		if key == "" {
			key = models.UnspecifiedLabel
		}
		g, ok := out[key]
		if !ok {
			order = append(order, key)
		}
		g.Count += item.EffectiveQuantity()
		g.Value += item.Value()
		out[key] = g
	}
	return out, order
}

// AveragePriceByType divides value by quantity per product type
func AveragePriceByType(items []models.Item) map[string]float64 {
	out := make(map[string]float64)
	for _, t := range ProductTypeDistribution(items) {
		if t.Count > 0 {
			out[t.Label] = t.Value / float64(t.Count)
		} else {
			out[t.Label] = 0
		}
	}
	return out
}

// InvestmentMetrics computes the headline figures. The most valuable edition
// is the first one, in iteration order, reaching the highest value.
func InvestmentMetrics(items []models.Item) models.InvestmentSummary {
	var summary models.InvestmentSummary
	for i := range items {
		summary.TotalValue += items[i].Value()
		summary.TotalItems += items[i].EffectiveQuantity()
	}
	if summary.TotalItems > 0 {
		summary.AverageItemValue = summary.TotalValue / float64(summary.TotalItems)
	}

	totals, order := editionTotals(items)
	for _, name := range order {
		g := totals[name]
		if summary.MostValuableEdition == nil || g.Value > summary.MostValuableEdition.Value {
			summary.MostValuableEdition = &models.EditionTotal{Name: name, Count: g.Count, Value: g.Value}
		}
	}
	return summary
}

// BuildSnapshot runs every reducer over items
func BuildSnapshot(items []models.Item, now time.Time) models.AnalyticsSnapshot {
	return models.AnalyticsSnapshot{
		ValueHistory:       ValueHistory(items),
		ByCondition:        ValueByCondition(items),
		PriceRanges:        PriceRangeDistribution(items),
		MostValuable:       MostValuable(items, DefaultMostValuableLimit),
		Tags:               TagDistribution(items),
		Growth:             CollectionGrowth(items),
		ProductTypes:       ProductTypeDistribution(items),
		Editions:           EditionDistribution(items),
		AveragePriceByType: AveragePriceByType(items),
		Summary:            InvestmentMetrics(items),
		GeneratedAt:        now,
	}
}
