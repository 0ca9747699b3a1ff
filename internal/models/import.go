package models

// ImportRowError describes a CSV row that could not be imported
type ImportRowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

// ImportResult summarizes a bulk CSV import
type ImportResult struct {
	Imported int              `json:"imported"`
	Skipped  []ImportRowError `json:"skipped,omitempty"`
	Items    []Item           `json:"items"`
}
