package services

import (
	"context"
	"testing"

	"intranet/internal/models"
)

func TestSeedService_Apply(t *testing.T) {
	s := newTestStore(t)
	svc := NewSeedService(s, NewCollectionService(s))
	ctx := context.Background()

	seed := map[string][]map[string]interface{}{
		models.CollectionQuickLinks: {
			{"id": "wiki", "label": "Wiki", "url": "https://wiki.example.com", "order": 1},
			{"label": "HR", "url": "https://hr.example.com", "order": 2},
		},
		models.CollectionConfig: {
			{"id": "admin", "adminEmails": []interface{}{"ops@example.com"}},
		},
		models.CollectionUsers: {
			{"email": "sneaky@example.com", "role": "admin"},
		},
	}

	written, err := svc.Apply(ctx, seed)
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if written != 3 {
		t.Errorf("Expected 3 records written, got %d", written)
	}

	if _, err := s.Get(ctx, models.CollectionQuickLinks, "wiki"); err != nil {
		t.Errorf("Expected seeded id to be kept: %v", err)
	}
	if _, err := s.Get(ctx, models.CollectionConfig, models.PortalConfigID); err != nil {
		t.Errorf("Expected config document: %v", err)
	}
	if users, _ := s.List(ctx, models.CollectionUsers); len(users) != 0 {
		t.Errorf("Expected users not to be seeded, got %v", users)
	}

	again, err := svc.Apply(ctx, seed)
	if err != nil {
		t.Fatalf("Second Apply failed: %v", err)
	}
	if again != 0 {
		t.Errorf("Expected non-empty collections to be left alone, got %d writes", again)
	}
}

func TestSeedService_RejectsInvalidRecords(t *testing.T) {
	s := newTestStore(t)
	svc := NewSeedService(s, NewCollectionService(s))

	_, err := svc.Apply(context.Background(), map[string][]map[string]interface{}{
		models.CollectionApplications: {{"name": "CRM"}},
	})
	if err == nil {
		t.Fatal("Expected error for application without url")
	}
}
