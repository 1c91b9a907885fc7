package services

import (
	"context"
	"testing"
	"time"

	"intranet/internal/models"
)

func TestAuditService_RecordListPurge(t *testing.T) {
	svc := NewAuditService(newTestStore(t))
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []struct {
		eventType string
		userID    string
		at        time.Time
	}{
		{models.AuditDocumentDownload, "u1", base},
		{models.AuditDocumentDownload, "u2", base.Add(24 * time.Hour)},
		{models.AuditBillingAccess, "u1", base.Add(48 * time.Hour)},
	}
	for _, e := range events {
		at := e.at
		svc.now = func() time.Time { return at }
		if _, err := svc.Record(ctx, e.eventType, e.userID, map[string]interface{}{"k": "v"}); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	all, err := svc.List(ctx, models.AuditFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 || all[0].EventType != models.AuditBillingAccess {
		t.Fatalf("Expected 3 events newest first, got %+v", all)
	}

	downloads, _ := svc.List(ctx, models.AuditFilter{EventType: models.AuditDocumentDownload, UserID: "u1"})
	if len(downloads) != 1 {
		t.Errorf("Expected 1 download by u1, got %d", len(downloads))
	}

	limited, _ := svc.List(ctx, models.AuditFilter{Limit: 2})
	if len(limited) != 2 {
		t.Errorf("Expected limit 2 to be applied, got %d", len(limited))
	}

	purged, err := svc.Purge(ctx, base.Add(36*time.Hour))
	if err != nil {
		t.Fatalf("Purge failed: %v", err)
	}
	if purged != 2 {
		t.Errorf("Expected 2 purged events, got %d", purged)
	}

	remaining, _ := svc.List(ctx, models.AuditFilter{})
	if len(remaining) != 1 || remaining[0].EventType != models.AuditBillingAccess {
		t.Errorf("Expected only the billing event to remain, got %+v", remaining)
	}
}

func TestAuditService_RequiresEventType(t *testing.T) {
	svc := NewAuditService(newTestStore(t))
	if _, err := svc.Record(context.Background(), "", "u1", nil); !IsValidationError(err) {
		t.Errorf("Expected validation error, got %v", err)
	}
}
