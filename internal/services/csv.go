package services

import (
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/pokstore/backend/internal/apperrors"
	"github.com/pokstore/backend/internal/models"
)

// ExportFilename is the download name of the CSV export
const ExportFilename = "pokstore_export.csv"

var exportHeader = []string{"Nom", "Édition", "État", "Quantité", "Prix", "Notes"}

// ExportCSV writes items in the shop's export format: a bare header line,
// then one line per item with every field wrapped in double quotes. Zero
// or missing numbers are written as empty fields. Lines are separated by
// "\n" with no trailing newline.
func ExportCSV(w io.Writer, items []models.Item) error {
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, strings.Join(exportHeader, ","))

	for i := range items {
		item := &items[i]
		fields := []string{
			item.Name,
			item.Set,
			string(item.Condition),
			formatQuantity(item.Quantity),
			formatPrice(item.Price),
			item.Notes,
		}
		for j, f := range fields {
			fields[j] = `"` + f + `"`
		}
		lines = append(lines, strings.Join(fields, ","))
	}

	_, err := io.WriteString(w, strings.Join(lines, "\n"))
	return err
}

func formatQuantity(q int) string {
	if q == 0 {
		return ""
	}
	return strconv.Itoa(q)
}

func formatPrice(p *float64) string {
	if p == nil || *p == 0 {
		return ""
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

// CSVRow is one data line of an import file
type CSVRow struct {
	Line  int
	Input models.ItemInput
}

// column names accepted on import, after lower-casing
var importColumns = map[string]string{
	"name":      "name",
	"nom":       "name",
	"set":       "set",
	"edition":   "set",
	"édition":   "set",
	"condition": "condition",
	"etat":      "condition",
	"état":      "condition",
	"quantity":  "quantity",
	"quantite":  "quantity",
	"quantité":  "quantity",
	"price":     "price",
	"prix":      "price",
	"notes":     "notes",
	"imageurl":  "imageUrl",
}

// ParseCSV reads an import file. The first line is the header; column names
// are matched case-insensitively in English or French. Quantity and price
// are parsed as numbers and default to 0 when they don't parse; an empty
// price stays unset. Blank lines are ignored.
func ParseCSV(r io.Reader) ([]CSVRow, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, apperrors.Localized(apperrors.CodeValidation, apperrors.KeyInvalidCSV, "empty file")
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, apperrors.KeyInvalidCSV, err, err.Error())
	}

	columns := make([]string, len(header))
	known := 0
	for i, h := range header {
		h = strings.ToLower(cleanField(strings.TrimPrefix(h, "\ufeff")))
		if field, ok := importColumns[h]; ok {
			columns[i] = field
			known++
		}
	}
	if known == 0 {
		return nil, apperrors.Localized(apperrors.CodeValidation, apperrors.KeyInvalidCSV, "no known column in header")
	}

	var rows []CSVRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeValidation, apperrors.KeyInvalidCSV, err, err.Error())
		}
		if isBlankRecord(record) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rows = append(rows, CSVRow{Line: line, Input: rowInput(columns, record)})
	}
	return rows, nil
}

func rowInput(columns, record []string) models.ItemInput {
	var in models.ItemInput
	for i, field := range columns {
		if field == "" || i >= len(record) {
			continue
		}
		value := cleanField(record[i])
		switch field {
		case "name":
			in.Name = value
		case "set":
			in.Set = value
		case "condition":
			in.Condition = models.Condition(value)
		case "quantity":
			q := int(parseNumber(value))
			in.Quantity = &q
		case "price":
			if value != "" {
				p := parseNumber(value)
				in.Price = &p
			}
		case "notes":
			in.Notes = value
		case "imageUrl":
			in.ImageURL = value
		}
	}
	return in
}

// parseNumber parses the leading number of s, returning 0 when there is none
func parseNumber(s string) float64 {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return models.SanitizePrice(f)
	}
	end := 0
	for end < len(s) && (s[end] >= '0' && s[end] <= '9' || s[end] == '.' || (end == 0 && (s[end] == '-' || s[end] == '+'))) {
		end++
	}
	f, err := strconv.ParseFloat(s[:end], 64)
	if err != nil {
		return 0
	}
	return models.SanitizePrice(f)
}

func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	return strings.TrimSuffix(s, `"`)
}

func isBlankRecord(record []string) bool {
	for _, f := range record {
		if cleanField(f) != "" {
			return false
		}
	}
	return true
}
