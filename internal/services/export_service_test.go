package services

import (
	"context"
	"errors"
	"testing"

	"intranet/internal/models"
	"intranet/internal/store"

	"github.com/xuri/excelize/v2"
)

func TestExportService_ExportXLSX(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	for _, rec := range []store.Record{
		{"title": "Second", "order": 2},
		{"title": "First", "order": 1, "videoUrl": "https://video.example.com/1"},
	} {
		if _, err := s.Add(ctx, models.CollectionLabs, rec); err != nil {
			t.Fatalf("Add failed: %v", err)
		}
	}

	buf, err := NewExportService(s).ExportXLSX(ctx, models.CollectionLabs)
	if err != nil {
		t.Fatalf("ExportXLSX failed: %v", err)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("Failed to open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(models.CollectionLabs)
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d", len(rows))
	}

	header := rows[0]
	want := []string{"id", "order", "title", "videoUrl"}
	if len(header) != len(want) {
		t.Fatalf("Expected header %v, got %v", want, header)
	}
	for i := range want {
		if header[i] != want[i] {
			t.Errorf("Header column %d: expected %s, got %s", i, want[i], header[i])
		}
	}

	// labs are ordered by "order"
	if rows[1][2] != "First" || rows[2][2] != "Second" {
		t.Errorf("Unexpected row order: %v", rows[1:])
	}
}

func TestExportService_RefusesUsers(t *testing.T) {
	svc := NewExportService(newTestStore(t))
	if _, err := svc.ExportXLSX(context.Background(), models.CollectionUsers); !errors.Is(err, ErrUnknownCollection) {
		t.Errorf("Expected ErrUnknownCollection, got %v", err)
	}
}

func TestCellValue(t *testing.T) {
	if got := cellValue([]interface{}{"a", "b"}); got != `["a","b"]` {
		t.Errorf("Expected JSON text, got %v", got)
	}
	if got := cellValue(float64(3)); got != float64(3) {
		t.Errorf("Expected number to pass through, got %v", got)
	}
}
