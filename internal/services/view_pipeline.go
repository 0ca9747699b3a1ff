package services

import (
	"math"
	"sort"
	"strings"

	"github.com/pokstore/backend/internal/models"
)

// FilterItems keeps items whose name or set contains search (case-insensitive)
// and whose condition equals condition, unless condition is empty or "all".
func FilterItems(items []models.Item, search, condition string) []models.Item {
	needle := strings.ToLower(strings.TrimSpace(search))
	out := make([]models.Item, 0, len(items))
	for i := range items {
		item := &items[i]
		if needle != "" &&
			!strings.Contains(strings.ToLower(item.Name), needle) &&
			!strings.Contains(strings.ToLower(item.Set), needle) {
			continue
		}
		if condition != "" && condition != models.ConditionFilterAll && string(item.Condition) != condition {
			continue
		}
		out = append(out, *item)
	}
	return out
}

// compareItems returns -1, 0 or 1 comparing a and b on key
func compareItems(a, b *models.Item, key models.SortKey) int {
	switch key {
	case models.SortBySet:
		return strings.Compare(strings.ToLower(a.Set), strings.ToLower(b.Set))
	case models.SortByCondition:
		return strings.Compare(strings.ToLower(string(a.Condition)), strings.ToLower(string(b.Condition)))
	case models.SortByQuantity:
		return compareOrdered(a.Quantity, b.Quantity)
	case models.SortByPrice:
		return compareOrdered(a.EffectivePrice(), b.EffectivePrice())
	case models.SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	default:
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	}
}

func compareOrdered[T int | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// SortItems returns a sorted copy of items. The sort is stable in both
// directions: equal items keep their input order.
func SortItems(items []models.Item, key models.SortKey, dir models.SortDirection) []models.Item {
	out := make([]models.Item, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		c := compareItems(&out[i], &out[j], key)
		if dir == models.SortDesc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// TotalPages returns the number of pages for count items, at least 1
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 {
		pageSize = models.TablePageSize
	}
	pages := (count + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate returns the slice of items for page (1-based), clamped into
// [1, TotalPages], and the page actually used.
func Paginate(items []models.Item, page, pageSize int) ([]models.Item, int) {
	if pageSize <= 0 {
		pageSize = models.TablePageSize
	}
	last := TotalPages(len(items), pageSize)
	if page > last {
		page = last
	}
	if page < 1 {
		page = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(items) {
		start = len(items)
	}
	if end > len(items) {
		end = len(items)
	}
	out := make([]models.Item, end-start)
	copy(out, items[start:end])
	return out, page
}

// ApplyViewQuery computes the next view state. Changing the search term, the
// condition filter or the sort resets the page to 1. Toggling the current sort
// key flips the direction, a new key starts ascending. A mode change sets the
// page size and keeps the page, which is clamped later by ApplyView.
func ApplyViewQuery(state models.ViewState, q models.ViewQuery) models.ViewState {
	next := state
	reset := false

	if q.Search != nil && *q.Search != state.SearchTerm {
		next.SearchTerm = *q.Search
		reset = true
	}
	if q.Condition != nil {
		cond := *q.Condition
		if cond == "" {
			cond = models.ConditionFilterAll
		}
		if cond != state.ConditionFilter {
			next.ConditionFilter = cond
			reset = true
		}
	}

	if q.Sort != nil {
		key := *q.Sort
		switch {
		case q.ToggleSort && key == state.SortKey:
			if state.SortDirection == models.SortAsc {
				next.SortDirection = models.SortDesc
			} else {
				next.SortDirection = models.SortAsc
			}
		case key != state.SortKey:
			next.SortDirection = models.SortAsc
		}
		next.SortKey = key
		if next.SortKey != state.SortKey || next.SortDirection != state.SortDirection {
			reset = true
		}
	}
	if q.Direction != nil && !q.ToggleSort && *q.Direction != next.SortDirection {
		next.SortDirection = *q.Direction
		reset = true
	}

	if q.Mode != nil && *q.Mode != state.Mode {
		next.Mode = *q.Mode
		next.PageSize = next.Mode.PageSize()
	}
	if next.PageSize <= 0 {
		next.PageSize = next.Mode.PageSize()
	}

	switch {
	case reset:
		next.Page = 1
	case q.JumpToLast:
		next.Page = math.MaxInt32
	case q.Page != nil:
		next.Page = *q.Page
	}
	return next
}

// ApplyView runs filter, sort and paginate over items for state. The returned
// state carries the clamped page.
func ApplyView(items []models.Item, state models.ViewState) models.ViewResult {
	if state.PageSize <= 0 {
		state.PageSize = state.Mode.PageSize()
	}
	filtered := FilterItems(items, state.SearchTerm, state.ConditionFilter)
	sorted := SortItems(filtered, state.SortKey, state.SortDirection)
	page, current := Paginate(sorted, state.Page, state.PageSize)
	state.Page = current

	return models.ViewResult{
		Items:      page,
		State:      state,
		Page:       current,
		PageSize:   state.PageSize,
		TotalPages: TotalPages(len(sorted), state.PageSize),
		TotalCount: len(sorted),
	}
}
