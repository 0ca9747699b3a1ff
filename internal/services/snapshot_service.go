package services

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/pokstore/backend/internal/metrics"
	"github.com/pokstore/backend/internal/models"
)

// SnapshotService records the collection value once a day
type SnapshotService struct {
	db            *gorm.DB
	inventory     *InventoryService
	mu            sync.Mutex
	snapshotHour  int // Hour of day to take snapshot (0-23)
	checkInterval time.Duration
	now           func() time.Time
}

// NewSnapshotService creates a new snapshot service
func NewSnapshotService(db *gorm.DB, inventory *InventoryService, snapshotHour int) *SnapshotService {
	if snapshotHour < 0 || snapshotHour > 23 {
		snapshotHour = 23
	}
	return &SnapshotService{
		db:            db,
		inventory:     inventory,
		snapshotHour:  snapshotHour,
		checkInterval: 15 * time.Minute,
		now:           time.Now,
	}
}

// Start begins the background snapshot worker
func (s *SnapshotService) Start(ctx context.Context) {
	log.Println("Snapshot service started: will record daily collection value")

	// Check if we need to take a snapshot for today on startup
	s.checkAndSnapshot(ctx)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Snapshot service stopping...")
			return
		case <-ticker.C:
			s.checkAndSnapshot(ctx)
		}
	}
}

// checkAndSnapshot records today's value once the configured hour has passed
func (s *SnapshotService) checkAndSnapshot(ctx context.Context) {
	now := s.now()
	if now.Hour() < s.snapshotHour || s.recordedOn(ctx, startOfDay(now)) {
		return
	}
	if _, err := s.TakeSnapshot(ctx); err != nil {
		log.Printf("Snapshot service: failed to take snapshot: %v", err)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// sameDay restricts a query to snapshots dated on day
func sameDay(day time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("snapshot_date >= ? AND snapshot_date < ?", day, day.AddDate(0, 0, 1))
	}
}

func (s *SnapshotService) recordedOn(ctx context.Context, day time.Time) bool {
	var n int64
	s.db.WithContext(ctx).Model(&models.CollectionValueSnapshot{}).Scopes(sameDay(day)).Count(&n)
	return n > 0
}

// TakeSnapshot records the current collection value for today, replacing
// an earlier snapshot of the same day
func (s *SnapshotService) TakeSnapshot(ctx context.Context) (*models.CollectionValueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	analytics, err := s.inventory.Analytics(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.inventory.Items(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	snapshotDate := startOfDay(now)
	summary := analytics.Summary

	values := models.CollectionValueSnapshot{
		TotalItems:    summary.TotalItems,
		DistinctItems: len(items),
		TotalValue:    summary.TotalValue,
		AverageValue:  summary.AverageItemValue,
	}
	if summary.MostValuableEdition != nil {
		values.TopEdition = summary.MostValuableEdition.Name
		values.TopEditionValue = summary.MostValuableEdition.Value
	}

	var snapshot models.CollectionValueSnapshot
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Scopes(sameDay(snapshotDate)).First(&snapshot)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			values.SnapshotDate = snapshotDate
			values.CreatedAt = now
			snapshot = values
			return tx.Create(&snapshot).Error
		}
		if result.Error != nil {
			return result.Error
		}
		values.ID = snapshot.ID
		values.SnapshotDate = snapshot.SnapshotDate
		values.CreatedAt = snapshot.CreatedAt
		snapshot = values
		return tx.Save(&snapshot).Error
	})
	if err != nil {
		return nil, err
	}

	metrics.SnapshotsTakenTotal.Inc()
	log.Printf("Snapshot service: recorded value snapshot for %s (total: %.2f€, items: %d)",
		snapshotDate.Format("2006-01-02"), summary.TotalValue, summary.TotalItems)

	return &snapshot, nil
}

// historyPeriods maps a period name to how far back it reaches
var historyPeriods = map[string]struct{ years, months, days int }{
	"week":   {0, 0, -7},
	"month":  {0, -1, 0},
	"3month": {0, -3, 0},
	"year":   {-1, 0, 0},
}

// GetHistory returns the snapshots of period, oldest first. "all" returns
// every snapshot and unknown periods fall back to a month.
func (s *SnapshotService) GetHistory(period string) ([]models.CollectionValueSnapshot, error) {
	snapshots := []models.CollectionValueSnapshot{}
	query := s.db.Order("snapshot_date ASC")
	if period != "all" {
		back, ok := historyPeriods[period]
		if !ok {
			back = historyPeriods["month"]
		}
		query = query.Where("snapshot_date >= ?", s.now().AddDate(back.years, back.months, back.days))
	}
	if err := query.Find(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

// GetLastSnapshot returns the most recent snapshot
func (s *SnapshotService) GetLastSnapshot() *models.CollectionValueSnapshot {
	var snapshot models.CollectionValueSnapshot

	if err := s.db.Order("snapshot_date DESC").First(&snapshot).Error; err != nil {
		return nil
	}

	return &snapshot
}
