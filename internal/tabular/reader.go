// Package tabular reads game lists from CSV and writes enrichment results as
// CSV or YAML.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"coverfill/internal/catalog"
	"coverfill/internal/services"
)

type column int

const (
	columnName column = iota
	columnDisplayName
	columnCover
	columnYear
	columnDescription
)

var headerAliases = map[string]column{
	"nombre":       columnName,
	"name":         columnName,
	"nuevo nombre": columnDisplayName,
	"new name":     columnDisplayName,
	"portada":      columnCover,
	"cover":        columnCover,
	"año":          columnYear,
	"year":         columnYear,
	"descripción":  columnDescription,
	"description":  columnDescription,
}

// Summary reports how many data rows were read and how many were dropped.
type Summary struct {
	Rows    int
	Dropped int
}

// ReadFile parses the CSV file at path.
func ReadFile(path string) ([]catalog.Item, Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, Summary{}, services.Wrap(services.ErrValidation, "tabular", "open", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads a header row followed by data rows. Known headers are matched
// case-insensitively; every other column lands in Item.Extra under its header.
// Rows with fewer fields than the header or without a name are dropped.
func Parse(r io.Reader) ([]catalog.Item, Summary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, Summary{}, services.Wrap(services.ErrValidation, "tabular", "parse", "file is empty", nil)
	}
	if err != nil {
		return nil, Summary{}, services.Wrap(services.ErrValidation, "tabular", "parse", "malformed header", err)
	}
	columns, extras, err := mapHeader(header)
	if err != nil {
		return nil, Summary{}, err
	}

	var (
		items   []catalog.Item
		summary Summary
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, summary, services.Wrap(services.ErrValidation, "tabular", "parse", "malformed row", err)
		}
		if isBlank(record) {
			continue
		}
		summary.Rows++
		if len(record) < len(header) {
			summary.Dropped++
			continue
		}
		item := buildItem(record, columns, extras)
		if item.Name == "" {
			summary.Dropped++
			continue
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return nil, summary, services.Wrap(services.ErrValidation, "tabular", "parse", "no data rows with a name", nil)
	}
	return items, summary, nil
}

func mapHeader(header []string) (map[column]int, map[int]string, error) {
	columns := make(map[column]int)
	extras := make(map[int]string)
	for i, raw := range header {
		label := strings.TrimSpace(strings.TrimPrefix(raw, "\ufeff"))
		col, known := headerAliases[strings.ToLower(label)]
		if !known {
			if label != "" {
				extras[i] = label
			}
			continue
		}
		if _, seen := columns[col]; !seen {
			columns[col] = i
		}
	}
	if _, ok := columns[columnName]; !ok {
		return nil, nil, services.Wrap(services.ErrValidation, "tabular", "parse",
			`missing a "Nombre" or "Name" column`, nil)
	}
	return columns, extras, nil
}

func buildItem(record []string, columns map[column]int, extras map[int]string) catalog.Item {
	field := func(col column) string {
		idx, ok := columns[col]
		if !ok {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}
	item := catalog.Item{
		Name:        field(columnName),
		DisplayName: field(columnDisplayName),
		CoverURL:    field(columnCover),
		ReleaseYear: field(columnYear),
		Description: field(columnDescription),
		Status:      catalog.StatusPending,
	}
	for idx, label := range extras {
		value := strings.TrimSpace(record[idx])
		if value == "" {
			continue
		}
		if item.Extra == nil {
			item.Extra = make(map[string]string)
		}
		item.Extra[label] = value
	}
	return item
}

func isBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// Describe renders a short human summary of a parse.
func (s Summary) Describe() string {
	if s.Dropped == 0 {
		return fmt.Sprintf("%d rows", s.Rows)
	}
	return fmt.Sprintf("%d rows, %d dropped", s.Rows, s.Dropped)
}
