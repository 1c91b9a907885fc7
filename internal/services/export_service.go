package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"intranet/internal/models"
	"intranet/internal/store"

	"github.com/xuri/excelize/v2"
)

// ExportService writes collections as spreadsheets
type ExportService struct {
	store store.Store
}

// NewExportService creates a new export service
func NewExportService(s store.Store) *ExportService {
	return &ExportService{store: s}
}

// Exportable reports whether a collection may be exported. Accounts are never exported.
func Exportable(name string) bool {
	if name == models.CollectionAuditLogs {
		return true
	}
	_, ok := models.LookupCollection(name)
	return ok
}

// ExportXLSX returns an .xlsx workbook with one row per record. Columns are
// the union of record keys in alphabetical order, with id first.
func (s *ExportService) ExportXLSX(ctx context.Context, name string) (*bytes.Buffer, error) {
	if !Exportable(name) {
		return nil, ErrUnknownCollection
	}

	records, err := s.store.List(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", name, err)
	}
	if def, ok := models.LookupCollection(name); ok {
		store.SortBy(records, def.SortField, def.SortDesc)
	}

	return RecordsToXLSX(name, records)
}

// RecordsToXLSX renders records into a single-sheet workbook named after the collection
func RecordsToXLSX(sheet string, records []store.Record) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet writer: %w", err)
	}

	columns := recordColumns(records)
	header := make([]interface{}, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := sw.SetRow("A1", header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, record := range records {
		row := make([]interface{}, len(columns))
		for j, col := range columns {
			row[j] = cellValue(record[col])
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}
	return f.WriteToBuffer()
}

func recordColumns(records []store.Record) []string {
	seen := map[string]bool{"id": true}
	var keys []string
	for _, record := range records {
		for k := range record {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return append([]string{"id"}, keys...)
}

// cellValue flattens nested values to JSON text
func cellValue(v interface{}) interface{} {
	switch val := v.(type) {
	case nil:
		return nil
	case string, float64, bool:
		return val
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}
