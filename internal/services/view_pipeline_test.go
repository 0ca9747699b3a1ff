package services

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/pokstore/backend/internal/models"
)

func ids(items []models.Item) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].ID
	}
	return out
}

func sampleItems() []models.Item {
	return []models.Item{
		{ID: "1", Name: "Pikachu ETB", Set: "Écarlate", Condition: models.ConditionNew, Quantity: 2, Price: price(50)},
		{ID: "2", Name: "dracaufeu", Set: "151", Condition: models.ConditionGood, Quantity: 1, Price: price(120)},
		{ID: "3", Name: "Évoli Display", Set: "Pikachu Promo", Condition: models.ConditionNew, Quantity: 1},
		{ID: "4", Name: "Amphinobi", Set: "XY", Condition: models.ConditionDamaged, Quantity: 5, Price: price(3)},
		{ID: "5", Name: "Dracaufeu", Set: "Base", Condition: models.ConditionNew, Quantity: 1, Price: price(120)},
	}
}

func TestFilterItems(t *testing.T) {
	items := sampleItems()

	tests := []struct {
		name      string
		search    string
		condition string
		want      []string
	}{
		{"no filter", "", "all", []string{"1", "2", "3", "4", "5"}},
		{"empty condition is all", "", "", []string{"1", "2", "3", "4", "5"}},
		{"matches name or set", "pikachu", "all", []string{"1", "3"}},
		{"case insensitive", "DRACAUFEU", "all", []string{"2", "5"}},
		{"condition", "", "Neuf", []string{"1", "3", "5"}},
		{"search and condition", "dracaufeu", "Neuf", []string{"5"}},
		{"nothing", "mewtwo", "all", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FilterItems(items, tt.search, tt.condition))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSortItemsIsStable(t *testing.T) {
	items := sampleItems()

	asc := ids(SortItems(items, models.SortByPrice, models.SortAsc))
	if want := []string{"3", "4", "1", "2", "5"}; !reflect.DeepEqual(asc, want) {
		t.Errorf("asc = %v, want %v", asc, want)
	}
	desc := ids(SortItems(items, models.SortByPrice, models.SortDesc))
	if want := []string{"2", "5", "1", "4", "3"}; !reflect.DeepEqual(desc, want) {
		t.Errorf("desc = %v, want %v", desc, want)
	}
	byName := ids(SortItems(items, models.SortByName, models.SortAsc))
	if want := []string{"4", "2", "5", "1", "3"}; !reflect.DeepEqual(byName, want) {
		t.Errorf("by name = %v, want %v", byName, want)
	}
}

func TestFilterSortIdempotent(t *testing.T) {
	items := sampleItems()
	for _, key := range []models.SortKey{models.SortByName, models.SortBySet, models.SortByCondition, models.SortByQuantity, models.SortByPrice} {
		for _, dir := range []models.SortDirection{models.SortAsc, models.SortDesc} {
			t.Run(fmt.Sprintf("%s-%s", key, dir), func(t *testing.T) {
				once := SortItems(FilterItems(items, "a", "all"), key, dir)
				twice := SortItems(FilterItems(once, "a", "all"), key, dir)
				if !reflect.DeepEqual(ids(once), ids(twice)) {
					t.Errorf("once %v, twice %v", ids(once), ids(twice))
				}
			})
		}
	}
}

func TestPaginate(t *testing.T) {
	items := make([]models.Item, 23)
	for i := range items {
		items[i].ID = fmt.Sprint(i)
	}

	tests := []struct {
		name     string
		page     int
		wantPage int
		wantLen  int
	}{
		{"first", 1, 1, 10},
		{"last partial", 3, 3, 3},
		{"beyond last clamps", 9, 3, 3},
		{"zero clamps to one", 0, 1, 10},
		{"negative clamps to one", -4, 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, page := Paginate(items, tt.page, 10)
			if page != tt.wantPage {
				t.Errorf("page = %d, want %d", page, tt.wantPage)
			}
			if len(got) != tt.wantLen {
				t.Errorf("len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestPaginateEmpty(t *testing.T) {
	got, page := Paginate(nil, 5, 12)
	if page != 1 {
		t.Errorf("page = %d, want 1", page)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
	if TotalPages(0, 12) != 1 {
		t.Errorf("TotalPages(0) = %d, want 1", TotalPages(0, 12))
	}
}

func TestApplyViewQuery(t *testing.T) {
	key := func(k models.SortKey) *models.SortKey { return &k }
	str := func(s string) *string { return &s }
	page := func(p int) *int { return &p }
	mode := func(m models.ViewMode) *models.ViewMode { return &m }

	start := models.DefaultViewState()
	start.Page = 3

	t.Run("toggle same key flips direction and resets page", func(t *testing.T) {
		got := ApplyViewQuery(start, models.ViewQuery{Sort: key(models.SortByName), ToggleSort: true})
		if got.SortDirection != models.SortDesc {
			t.Errorf("direction = %s, want desc", got.SortDirection)
		}
		if got.Page != 1 {
			t.Errorf("page = %d, want 1", got.Page)
		}
		back := ApplyViewQuery(got, models.ViewQuery{Sort: key(models.SortByName), ToggleSort: true})
		if back.SortDirection != models.SortAsc {
			t.Errorf("second toggle direction = %s, want asc", back.SortDirection)
		}
	})

	t.Run("new key resets to ascending", func(t *testing.T) {
		desc := start
		desc.SortDirection = models.SortDesc
		got := ApplyViewQuery(desc, models.ViewQuery{Sort: key(models.SortByPrice), ToggleSort: true})
		if got.SortKey != models.SortByPrice || got.SortDirection != models.SortAsc {
			t.Errorf("got %s %s, want price asc", got.SortKey, got.SortDirection)
		}
	})

	t.Run("search resets page", func(t *testing.T) {
		got := ApplyViewQuery(start, models.ViewQuery{Search: str("pika")})
		if got.Page != 1 || got.SearchTerm != "pika" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("same search keeps page", func(t *testing.T) {
		got := ApplyViewQuery(start, models.ViewQuery{Search: str("")})
		if got.Page != 3 {
			t.Errorf("page = %d, want 3", got.Page)
		}
	})

	t.Run("condition resets page", func(t *testing.T) {
		got := ApplyViewQuery(start, models.ViewQuery{Condition: str("Neuf")})
		if got.Page != 1 || got.ConditionFilter != "Neuf" {
			t.Errorf("got %+v", got)
		}
	})

	t.Run("mode change sets page size", func(t *testing.T) {
		got := ApplyViewQuery(start, models.ViewQuery{Mode: mode(models.ViewModeGrid)})
		if got.PageSize != models.GridPageSize {
			t.Errorf("page size = %d, want %d", got.PageSize, models.GridPageSize)
		}
		if got.Page != 3 {
			t.Errorf("page = %d, want 3", got.Page)
		}
	})

	t.Run("explicit page", func(t *testing.T) {
		got := ApplyViewQuery(start, models.ViewQuery{Page: page(2)})
		if got.Page != 2 {
			t.Errorf("page = %d, want 2", got.Page)
		}
	})
}

func TestApplyViewClampsAfterFilter(t *testing.T) {
	items := make([]models.Item, 25)
	for i := range items {
		items[i] = models.Item{ID: fmt.Sprint(i), Name: fmt.Sprintf("Item %02d", i)}
	}
	items[24].Name = "Zarbi"

	state := models.DefaultViewState()
	state.Page = 3
	result := ApplyView(items, state)
	if result.Page != 3 || len(result.Items) != 5 {
		t.Fatalf("page %d with %d items, want page 3 with 5", result.Page, len(result.Items))
	}

	state.SearchTerm = "zarbi"
	result = ApplyView(items, state)
	if result.Page != 1 || result.State.Page != 1 {
		t.Errorf("page = %d, want clamped to 1", result.Page)
	}
	if result.TotalCount != 1 || result.TotalPages != 1 {
		t.Errorf("total count %d pages %d", result.TotalCount, result.TotalPages)
	}
}

func TestApplyViewJumpToLast(t *testing.T) {
	items := make([]models.Item, 13)
	for i := range items {
		items[i] = models.Item{ID: fmt.Sprint(i), Name: fmt.Sprintf("Item %02d", i)}
	}

	state := ApplyViewQuery(models.DefaultViewState(), models.ViewQuery{JumpToLast: true})
	result := ApplyView(items, state)
	if result.Page != 2 || len(result.Items) != 3 {
		t.Errorf("page %d with %d items, want page 2 with 3", result.Page, len(result.Items))
	}
}
