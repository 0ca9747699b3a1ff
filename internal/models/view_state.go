package models

// SortKey names the field the item list is ordered by
type SortKey string

const (
	SortByName      SortKey = "name"
	SortBySet       SortKey = "set"
	SortByCondition SortKey = "condition"
	SortByQuantity  SortKey = "quantity"
	SortByPrice     SortKey = "price"
	SortByCreatedAt SortKey = "created_at"
)

// ParseSortKey maps a query value to a SortKey, falling back to name.
func ParseSortKey(s string) SortKey {
	switch SortKey(s) {
	case SortByName, SortBySet, SortByCondition, SortByQuantity, SortByPrice, SortByCreatedAt:
		return SortKey(s)
	default:
		return SortByName
	}
}

type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ViewMode selects the presentation, which decides the page size
type ViewMode string

const (
	ViewModeTable ViewMode = "table"
	ViewModeGrid  ViewMode = "grid"
)

// Page sizes per presentation mode
const (
	TablePageSize = 10
	GridPageSize  = 12
)

// PageSize returns the number of items per page for the mode
func (m ViewMode) PageSize() int {
	if m == ViewModeGrid {
		return GridPageSize
	}
	return TablePageSize
}

// ConditionFilterAll disables condition filtering
const ConditionFilterAll = "all"

// ViewState is the search/filter/sort/pagination state of the item list.
// Page is 1-based.
type ViewState struct {
	SearchTerm      string        `json:"search"`
	ConditionFilter string        `json:"condition"`
	SortKey         SortKey       `json:"sort"`
	SortDirection   SortDirection `json:"direction"`
	Mode            ViewMode      `json:"mode"`
	Page            int           `json:"page"`
	PageSize        int           `json:"page_size"`
}

// DefaultViewState is the state of a fresh session
func DefaultViewState() ViewState {
	return ViewState{
		ConditionFilter: ConditionFilterAll,
		SortKey:         SortByName,
		SortDirection:   SortAsc,
		Mode:            ViewModeTable,
		Page:            1,
		PageSize:        TablePageSize,
	}
}

// ViewQuery carries the requested changes to a ViewState. Nil fields keep
// the previous value.
type ViewQuery struct {
	Search     *string
	Condition  *string
	Sort       *SortKey
	Direction  *SortDirection
	ToggleSort bool
	Mode       *ViewMode
	Page       *int
	JumpToLast bool
}

// ViewResult is one rendered page of the item list
type ViewResult struct {
	Items      []Item    `json:"items"`
	State      ViewState `json:"state"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalPages int       `json:"total_pages"`
	TotalCount int       `json:"total_count"`
}
