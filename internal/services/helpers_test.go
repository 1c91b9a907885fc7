package services

import (
	"context"
	"testing"

	"intranet/internal/models"
	"intranet/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close(context.Background()) })
	return s
}

func putFabMessage(t *testing.T, s store.Store, msg models.FabMessage) {
	t.Helper()
	record, err := models.EncodeRecord(msg)
	if err != nil {
		t.Fatalf("Failed to encode fab message: %v", err)
	}
	if _, err := s.Set(context.Background(), models.CollectionFabMessages, msg.UserID, record); err != nil {
		t.Fatalf("Failed to store fab message: %v", err)
	}
}
