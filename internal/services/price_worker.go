package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/pokstore/backend/internal/metrics"
	"github.com/pokstore/backend/internal/models"
)

// Constants for price worker configuration
const (
	defaultBatchSize      = 10
	defaultUpdateInterval = 6 * time.Hour
)

// MarketPricer looks up a market price for a search query
type MarketPricer interface {
	AveragePrice(ctx context.Context, query string) (float64, bool, error)
	GetRequestsRemaining() int
	GetDailyLimit() int
}

// PriceWorker refreshes item prices from the market in the background.
// New prices go through InventoryService.Update so price history follows
// the usual append rule.
type PriceWorker struct {
	inventory      *InventoryService
	pricer         MarketPricer
	updateInterval time.Duration
	batchSize      int
	mu             sync.RWMutex

	// Stats (reset at midnight)
	itemsUpdatedToday int
	lastUpdateTime    time.Time
	lastStatsDay      time.Time
	now               func() time.Time
}

// PriceStatus is the worker state reported by the API
type PriceStatus struct {
	LastUpdateTime    time.Time `json:"last_update_time"`
	NextUpdateTime    time.Time `json:"next_update_time"`
	ItemsUpdatedToday int       `json:"items_updated_today"`
	BatchSize         int       `json:"batch_size"`

	// eBay quota info
	DailyLimit int `json:"daily_limit"`
	Remaining  int `json:"remaining"`
}

// RefreshResult is the outcome of a price refresh for one item
type RefreshResult struct {
	Item    models.Item `json:"item"`
	Found   bool        `json:"found"`
	Changed bool        `json:"changed"`
}

func NewPriceWorker(inventory *InventoryService, pricer MarketPricer, interval time.Duration, batchSize int) *PriceWorker {
	if interval <= 0 {
		interval = defaultUpdateInterval
	}
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &PriceWorker{
		inventory:      inventory,
		pricer:         pricer,
		batchSize:      batchSize,
		updateInterval: interval,
		now:            time.Now,
	}
}

// resetDailyStatsIfNeeded resets itemsUpdatedToday at midnight
func (w *PriceWorker) resetDailyStatsIfNeeded() {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	if w.lastStatsDay.Before(today) {
		if !w.lastStatsDay.IsZero() {
			log.Printf("Price worker: daily stats reset (previous day: %d items updated)", w.itemsUpdatedToday)
		}
		w.itemsUpdatedToday = 0
		w.lastStatsDay = today
	}
}

// Start begins the background price update worker
func (w *PriceWorker) Start(ctx context.Context) {
	log.Printf("Price worker started: will update %d items every %v", w.batchSize, w.updateInterval)

	// Run immediately on startup
	if updated, err := w.UpdateBatch(ctx); err != nil {
		log.Printf("Price worker: initial batch update failed: %v", err)
	} else {
		log.Printf("Price worker: initial batch updated %d items", updated)
	}

	ticker := time.NewTicker(w.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Price worker stopping...")
			return
		case <-ticker.C:
			if updated, err := w.UpdateBatch(ctx); err != nil {
				log.Printf("Price worker: batch update failed: %v", err)
			} else if updated > 0 {
				log.Printf("Price worker: batch updated %d items", updated)
			}
		}
	}
}

// lastPriceDate is the date of the newest price point, zero without history
func lastPriceDate(item *models.Item) time.Time {
	if n := len(item.PriceHistory); n > 0 {
		return item.PriceHistory[n-1].Date
	}
	return time.Time{}
}

// selectBatch picks items without a price first, then those with the oldest
// last price point
func selectBatch(items []models.Item, size int) []models.Item {
	sorted := make([]models.Item, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(a, b int) bool {
		pa, pb := sorted[a].Price != nil, sorted[b].Price != nil
		if pa != pb {
			return !pa
		}
		return lastPriceDate(&sorted[a]).Before(lastPriceDate(&sorted[b]))
	})
	if len(sorted) > size {
		sorted = sorted[:size]
	}
	return sorted
}

// UpdateBatch refreshes one batch of items and returns how many got a new price
func (w *PriceWorker) UpdateBatch(ctx context.Context) (int, error) {
	w.resetDailyStatsIfNeeded()

	if w.pricer.GetRequestsRemaining() <= 0 {
		log.Printf("Price worker: eBay quota exhausted, skipping batch")
		return 0, nil
	}

	start := w.now()
	items, err := w.inventory.Items(ctx)
	if err != nil {
		return 0, err
	}
	batch := selectBatch(items, w.batchSize)
	if len(batch) == 0 {
		log.Println("Price worker: no items to update")
		return 0, nil
	}

	updated := 0
	for i := range batch {
		if ctx.Err() != nil {
			break
		}
		if w.pricer.GetRequestsRemaining() <= 0 {
			log.Printf("Price worker: quota exhausted after %d items", i)
			break
		}
		res, err := w.refresh(ctx, &batch[i])
		if err != nil {
			log.Printf("Price worker: failed to refresh %s (%s): %v", batch[i].Name, batch[i].ID, err)
			continue
		}
		if res.Changed {
			updated++
		}
	}

	w.mu.Lock()
	w.itemsUpdatedToday += updated
	w.lastUpdateTime = w.now()
	today := w.itemsUpdatedToday
	w.mu.Unlock()

	metrics.PriceUpdatesTotal.Add(float64(updated))
	metrics.PriceUpdatesToday.Set(float64(today))
	metrics.PriceBatchDuration.Observe(time.Since(start).Seconds())
	return updated, nil
}

// RefreshItem looks up the market price of one item right away
func (w *PriceWorker) RefreshItem(ctx context.Context, id string) (RefreshResult, error) {
	item, err := w.inventory.Get(ctx, id)
	if err != nil {
		return RefreshResult{}, err
	}
	res, err := w.refresh(ctx, &item)
	if err != nil {
		return RefreshResult{}, err
	}
	if res.Changed {
		w.mu.Lock()
		w.itemsUpdatedToday++
		w.mu.Unlock()
		metrics.PriceUpdatesTotal.Inc()
	}
	return res, nil
}

func (w *PriceWorker) refresh(ctx context.Context, item *models.Item) (RefreshResult, error) {
	query := strings.TrimSpace(item.Name + " " + item.Set)
	price, found, err := w.pricer.AveragePrice(ctx, query)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("market price for %q: %w", query, err)
	}
	if !found {
		return RefreshResult{Item: *item}, nil
	}

	before := len(item.PriceHistory)
	updated, err := w.inventory.Update(ctx, item.ID, models.ItemPatch{Price: &price})
	if err != nil {
		return RefreshResult{}, err
	}
	return RefreshResult{Item: updated, Found: true, Changed: len(updated.PriceHistory) != before}, nil
}

// GetStatus returns the current status
func (w *PriceWorker) GetStatus() PriceStatus {
	w.mu.RLock()
	defer w.mu.RUnlock()

	return PriceStatus{
		LastUpdateTime:    w.lastUpdateTime,
		NextUpdateTime:    w.lastUpdateTime.Add(w.updateInterval),
		ItemsUpdatedToday: w.itemsUpdatedToday,
		BatchSize:         w.batchSize,
		DailyLimit:        w.pricer.GetDailyLimit(),
		Remaining:         w.pricer.GetRequestsRemaining(),
	}
}
