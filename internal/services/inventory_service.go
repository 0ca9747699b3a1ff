package services

import (
	"context"
	"io"
	"log"
	"math"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/metrics"
	"github.com/pokstore/backend/internal/models"
)

const (
	viewCacheSize       = 256
	collectionCacheSize = 64

	importChunkSize   = 50
	importConcurrency = 4
)

// scopedStore is implemented by stores whose rows depend on the caller's
// token. ScopeKey names the set of rows a context can see.
type scopedStore interface {
	ScopeKey(ctx context.Context) string
}

// collection is the local copy of the rows one scope can see
type collection struct {
	mu       sync.RWMutex
	items    []models.Item
	loaded   bool
	revision uint64
	// analytics of the collection at memoRevision
	memo         *models.AnalyticsSnapshot
	memoRevision uint64
}

// InventoryService owns the in-memory item collections. Every mutation goes
// through the store first and is applied locally only after it succeeded.
// Concurrent edits of one item are last-write-wins.
//
// A store that scopes rows per token gets one collection per scope, so a
// user never reads rows cached for another.
type InventoryService struct {
	store   ItemStore
	retrier *Retrier

	mu          sync.Mutex
	collections *lru.Cache[string, *collection]

	loads singleflight.Group
	views *lru.Cache[string, models.ViewState]

	now func() time.Time
}

// NewInventoryService creates the service. Items are loaded lazily.
func NewInventoryService(store ItemStore, retrier *Retrier) *InventoryService {
	views, err := lru.New[string, models.ViewState](viewCacheSize)
	if err != nil {
		panic(err)
	}
	collections, err := lru.New[string, *collection](collectionCacheSize)
	if err != nil {
		panic(err)
	}
	return &InventoryService{
		store:       store,
		retrier:     retrier,
		collections: collections,
		views:       views,
		now:         time.Now,
	}
}

func (s *InventoryService) scopeKey(ctx context.Context) string {
	if scoped, ok := s.store.(scopedStore); ok {
		return scoped.ScopeKey(ctx)
	}
	return ""
}

// collectionFor returns the collection visible from ctx, creating it empty
func (s *InventoryService) collectionFor(ctx context.Context) *collection {
	key := s.scopeKey(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections.Get(key)
	if !ok {
		c = &collection{}
		s.collections.Add(key, c)
	}
	return c
}

// Load replaces the collection visible from ctx with the store's rows
func (s *InventoryService) Load(ctx context.Context) error {
	c := s.collectionFor(ctx)
	items, err := Call(ctx, s.retrier, "list_items", s.store.ListItems)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.items = items
	c.loaded = true
	c.revision++
	c.mu.Unlock()

	c.updateMetrics()
	log.Printf("Inventory: loaded %d items", len(items))
	return nil
}

// Invalidate forces the next read from the scope of ctx to reload from the
// store
func (s *InventoryService) Invalidate(ctx context.Context) {
	key := s.scopeKey(ctx)
	s.mu.Lock()
	c, ok := s.collections.Peek(key)
	s.mu.Unlock()
	if !ok {
		return
	}
	c.mu.Lock()
	c.loaded = false
	c.mu.Unlock()
}

// loadedCollection returns the collection visible from ctx, loading it from
// the store first if needed
func (s *InventoryService) loadedCollection(ctx context.Context) (*collection, error) {
	c := s.collectionFor(ctx)
	c.mu.RLock()
	loaded := c.loaded
	c.mu.RUnlock()
	if loaded {
		return c, nil
	}
	_, err, _ := s.loads.Do("items:"+s.scopeKey(ctx), func() (any, error) {
		return nil, s.Load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Items returns a copy of the collection in store order
func (s *InventoryService) Items(ctx context.Context) ([]models.Item, error) {
	c, err := s.loadedCollection(ctx)
	if err != nil {
		return nil, err
	}
	items, _ := c.snapshot()
	return items, nil
}

func (c *collection) snapshot() ([]models.Item, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]models.Item, len(c.items))
	for i := range c.items {
		out[i] = c.items[i].Clone()
	}
	return out, c.revision
}

// Get returns the freshest known state of one item
func (s *InventoryService) Get(ctx context.Context, id string) (models.Item, error) {
	c, err := s.loadedCollection(ctx)
	if err != nil {
		return models.Item{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i].Clone(), nil
	}
	return models.Item{}, itemNotFound(id)
}

// indexOf must be called with mu held
func (c *collection) indexOf(id string) int {
	for i := range c.items {
		if c.items[i].ID == id {
			return i
		}
	}
	return -1
}

func validationError(key string, fields map[string]string, args ...any) error {
	e := apperrors.Validation(fields)
	e.Key = key
	e.Args = args
	return e
}

func validateFields(name, set *string, cond *models.Condition, qty *int, price *float64) error {
	fields := make(map[string]string)
	if name != nil && strings.TrimSpace(*name) == "" {
		fields["name"] = "required"
	}
	if set != nil && strings.TrimSpace(*set) == "" {
		fields["set"] = "required"
	}
	if len(fields) > 0 {
		return validationError(apperrors.KeyNameSetRequired, fields)
	}
	if cond != nil && !cond.IsValid() {
		return validationError(apperrors.KeyInvalidCondition, map[string]string{"condition": "invalid"}, string(*cond))
	}
	if qty != nil && *qty < 0 {
		return validationError(apperrors.KeyInvalidQuantity, map[string]string{"quantity": "must not be negative"})
	}
	if price != nil && (*price < 0 || math.IsNaN(*price) || math.IsInf(*price, 0)) {
		return validationError(apperrors.KeyInvalidPrice, map[string]string{"price": "must not be negative"})
	}
	return nil
}

// ValidateItemInput checks the fields of a new item
func ValidateItemInput(in models.ItemInput) error {
	return validateFields(&in.Name, &in.Set, &in.Condition, in.Quantity, in.Price)
}

// newItem validates input and builds the item to insert. A positive price
// starts the price history.
func (s *InventoryService) newItem(in models.ItemInput) (models.Item, error) {
	if err := ValidateItemInput(in); err != nil {
		return models.Item{}, err
	}
	item := models.Item{
		Name:      strings.TrimSpace(in.Name),
		Set:       strings.TrimSpace(in.Set),
		Condition: in.Condition,
		Quantity:  1,
		Notes:     in.Notes,
		ImageURL:  in.ImageURL,
		Tags:      models.NormalizeTags(in.Tags),
	}
	if in.Quantity != nil {
		item.Quantity = *in.Quantity
	}
	item.PriceHistory = []models.PricePoint{}
	if in.Price != nil {
		price := *in.Price
		item.Price = &price
		if price > 0 {
			item.PriceHistory = AppendPrice(nil, price, s.now())
		}
	}
	return item, nil
}

// Create validates and stores a new item, then appends it locally
func (s *InventoryService) Create(ctx context.Context, in models.ItemInput) (models.Item, error) {
	item, err := s.newItem(in)
	if err != nil {
		return models.Item{}, err
	}
	c, err := s.loadedCollection(ctx)
	if err != nil {
		return models.Item{}, err
	}

	created, err := Call(ctx, s.retrier, "create_item", func(ctx context.Context) (models.Item, error) {
		return s.store.CreateItem(ctx, item)
	})
	if err != nil {
		return models.Item{}, err
	}
	created.Normalize()

	c.mu.Lock()
	c.items = append(c.items, created)
	c.revision++
	c.mu.Unlock()

	c.updateMetrics()
	return created.Clone(), nil
}

// Update applies a partial update. A new price different from the last
// recorded one is appended to the price history.
func (s *InventoryService) Update(ctx context.Context, id string, patch models.ItemPatch) (models.Item, error) {
	if err := validateFields(patch.Name, patch.Set, patch.Condition, patch.Quantity, patch.Price); err != nil {
		return models.Item{}, err
	}
	if patch.Tags != nil {
		tags := models.NormalizeTags(*patch.Tags)
		patch.Tags = &tags
	}

	current, err := s.Get(ctx, id)
	if err != nil && !apperrors.IsCode(err, apperrors.CodeNotFound) {
		return models.Item{}, err
	}
	if err == nil && patch.Price != nil && patch.PriceHistory == nil {
		history := AppendPrice(current.PriceHistory, *patch.Price, s.now())
		if len(history) != len(current.PriceHistory) {
			patch.PriceHistory = &history
		}
	}
	if patch.IsEmpty() {
		return current, err
	}

	return s.commit(ctx, id, patch)
}

// commit sends patch to the store and replaces the local item if it is
// still present
func (s *InventoryService) commit(ctx context.Context, id string, patch models.ItemPatch) (models.Item, error) {
	updated, err := Call(ctx, s.retrier, "update_item", func(ctx context.Context) (models.Item, error) {
		return s.store.UpdateItem(ctx, id, patch)
	})
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			s.collectionFor(ctx).remove(id)
		}
		return models.Item{}, err
	}
	updated.Normalize()

	c := s.collectionFor(ctx)
	c.mu.Lock()
	if i := c.indexOf(id); i >= 0 {
		c.items[i] = updated
		c.revision++
	}
	c.mu.Unlock()

	c.updateMetrics()
	return updated.Clone(), nil
}

func (c *collection) remove(id string) {
	c.mu.Lock()
	if i := c.indexOf(id); i >= 0 {
		c.items = append(c.items[:i], c.items[i+1:]...)
		c.revision++
	}
	c.mu.Unlock()
	c.updateMetrics()
}

// Delete removes an item from the store and the local collection. An item
// already gone from the store is dropped locally too, and NotFound is
// returned.
func (s *InventoryService) Delete(ctx context.Context, id string) error {
	err := s.retrier.Do(ctx, "delete_item", func(ctx context.Context) error {
		return s.store.DeleteItem(ctx, id)
	})
	if err != nil && !apperrors.IsCode(err, apperrors.CodeNotFound) {
		return err
	}
	s.collectionFor(ctx).remove(id)
	return err
}

// AddTag appends tag to the freshest known state of the item
func (s *InventoryService) AddTag(ctx context.Context, id, tag string) (models.Item, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return models.Item{}, validationError(apperrors.KeyTagEmpty, map[string]string{"tag": "required"})
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return models.Item{}, err
	}
	if current.HasTag(tag) {
		return models.Item{}, validationError(apperrors.KeyTagDuplicate, map[string]string{"tag": "duplicate"}, tag)
	}
	tags := append(current.Tags, tag)
	return s.commit(ctx, id, models.ItemPatch{Tags: &tags})
}

// RemoveTag drops tag from the item. Removing a tag the item doesn't have
// changes nothing.
func (s *InventoryService) RemoveTag(ctx context.Context, id, tag string) (models.Item, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return models.Item{}, err
	}
	if !current.HasTag(tag) {
		return current, nil
	}
	tags := make([]string, 0, len(current.Tags)-1)
	for _, t := range current.Tags {
		if t != tag {
			tags = append(tags, t)
		}
	}
	return s.commit(ctx, id, models.ItemPatch{Tags: &tags})
}

// Import reads a CSV file and creates every valid row. Invalid rows are
// reported and skipped. Rows are inserted in chunks, a few at a time, and
// keep their file order in the collection.
func (s *InventoryService) Import(ctx context.Context, r io.Reader) (models.ImportResult, error) {
	result := models.ImportResult{Items: []models.Item{}}

	rows, err := ParseCSV(r)
	if err != nil {
		return result, err
	}
	c, err := s.loadedCollection(ctx)
	if err != nil {
		return result, err
	}

	var valid []models.Item
	for _, row := range rows {
		item, err := s.newItem(row.Input)
		if err != nil {
			result.Skipped = append(result.Skipped, models.ImportRowError{Line: row.Line, Reason: err.Error()})
			continue
		}
		valid = append(valid, item)
	}
	metrics.ImportedRowsTotal.WithLabelValues("skipped").Add(float64(len(result.Skipped)))

	var chunks [][]models.Item
	for start := 0; start < len(valid); start += importChunkSize {
		end := min(start+importChunkSize, len(valid))
		chunks = append(chunks, valid[start:end])
	}
	created := make([][]models.Item, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(importConcurrency)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			items, err := Call(gctx, s.retrier, "create_items", func(ctx context.Context) ([]models.Item, error) {
				return s.store.CreateItems(ctx, chunk)
			})
			if err != nil {
				return err
			}
			created[i] = items
			return nil
		})
	}
	err = g.Wait()

	c.mu.Lock()
	for _, items := range created {
		for _, item := range items {
			item.Normalize()
			c.items = append(c.items, item)
			result.Items = append(result.Items, item.Clone())
		}
	}
	if len(result.Items) > 0 {
		c.revision++
	}
	c.mu.Unlock()

	result.Imported = len(result.Items)
	metrics.ImportedRowsTotal.WithLabelValues("imported").Add(float64(result.Imported))
	c.updateMetrics()
	log.Printf("Inventory: imported %d items, skipped %d rows", result.Imported, len(result.Skipped))
	return result, err
}

// Export writes the collection as CSV
func (s *InventoryService) Export(ctx context.Context, w io.Writer) error {
	items, err := s.Items(ctx)
	if err != nil {
		return err
	}
	return ExportCSV(w, items)
}

// Browse applies q to the view state remembered for viewer and returns the
// resulting page.
func (s *InventoryService) Browse(ctx context.Context, viewer string, q models.ViewQuery) (models.ViewResult, error) {
	items, err := s.Items(ctx)
	if err != nil {
		return models.ViewResult{}, err
	}

	state, ok := s.views.Get(viewer)
	if !ok {
		state = models.DefaultViewState()
	}
	result := ApplyView(items, ApplyViewQuery(state, q))
	s.views.Add(viewer, result.State)
	return result, nil
}

// Analytics returns every aggregate over the collection. The result is
// memoized per collection revision.
func (s *InventoryService) Analytics(ctx context.Context) (models.AnalyticsSnapshot, error) {
	c, err := s.loadedCollection(ctx)
	if err != nil {
		return models.AnalyticsSnapshot{}, err
	}
	items, revision := c.snapshot()

	c.mu.RLock()
	memo, memoRevision := c.memo, c.memoRevision
	c.mu.RUnlock()
	if memo != nil && memoRevision == revision {
		return *memo, nil
	}

	snap := BuildSnapshot(items, s.now())
	snap.Revision = revision
	c.mu.Lock()
	if c.revision == revision {
		c.memo, c.memoRevision = &snap, revision
	}
	c.mu.Unlock()
	return snap, nil
}

// PriceHistory returns the chart series and last change of one item
func (s *InventoryService) PriceHistory(ctx context.Context, id string) (models.PriceHistoryResponse, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return models.PriceHistoryResponse{}, err
	}
	return models.PriceHistoryResponse{
		ItemID:  item.ID,
		Change:  LastChange(item.PriceHistory),
		Chart:   ChartSeries(item.PriceHistory),
		History: item.PriceHistory,
	}, nil
}

func (c *collection) updateMetrics() {
	c.mu.RLock()
	var count int
	var value float64
	for i := range c.items {
		count += c.items[i].EffectiveQuantity()
		value += c.items[i].Value()
	}
	c.mu.RUnlock()

	metrics.InventoryItemsTotal.Set(float64(count))
	metrics.InventoryValueEUR.Set(value)
}
