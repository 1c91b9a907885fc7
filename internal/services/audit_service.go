package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"intranet/internal/models"
	"intranet/internal/store"
)

const (
	defaultAuditLimit = 100
	maxAuditLimit     = 1000
)

// AuditService writes and reads the audit_logs collection
type AuditService struct {
	store store.Store
	now   func() time.Time
}

// NewAuditService creates a new audit service
func NewAuditService(s store.Store) *AuditService {
	return &AuditService{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Record stores an audit event
func (s *AuditService) Record(ctx context.Context, eventType, userID string, details map[string]interface{}) (*models.AuditLog, error) {
	entry := &models.AuditLog{
		EventType: eventType,
		UserID:    userID,
		Timestamp: s.now(),
		Details:   details,
	}
	if err := models.Validate(entry); err != nil {
		return nil, err
	}

	record, err := models.EncodeRecord(entry)
	if err != nil {
		return nil, err
	}
	stored, err := s.store.Add(ctx, models.CollectionAuditLogs, record)
	if err != nil {
		return nil, fmt.Errorf("failed to record audit event: %w", err)
	}

	entry.ID = stored.ID()
	GetMetrics().RecordAuditEvent(eventType)
	return entry, nil
}

// List returns audit events matching filter, newest first
func (s *AuditService) List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, error) {
	entries, err := s.all(ctx)
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultAuditLimit
	}
	if limit > maxAuditLimit {
		limit = maxAuditLimit
	}

	out := []models.AuditLog{}
	for _, entry := range entries {
		if filter.EventType != "" && entry.EventType != filter.EventType {
			continue
		}
		if filter.UserID != "" && entry.UserID != filter.UserID {
			continue
		}
		if filter.Since != nil && entry.Timestamp.Before(*filter.Since) {
			continue
		}
		out = append(out, entry)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// Purge deletes audit events older than cutoff and returns how many were removed
func (s *AuditService) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	entries, err := s.all(ctx)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, entry := range entries {
		if !entry.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, models.CollectionAuditLogs, entry.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return deleted, fmt.Errorf("failed to delete audit event %s: %w", entry.ID, err)
		}
		deleted++
	}

	if deleted > 0 {
		log.Printf("🧹 [AUDIT] Purged %d audit events older than %s", deleted, cutoff.Format(time.RFC3339))
	}
	return deleted, nil
}

func (s *AuditService) all(ctx context.Context) ([]models.AuditLog, error) {
	records, err := s.store.List(ctx, models.CollectionAuditLogs)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit events: %w", err)
	}

	entries := make([]models.AuditLog, 0, len(records))
	for _, record := range records {
		var entry models.AuditLog
		if err := models.DecodeRecord(record, &entry); err != nil {
			log.Printf("⚠️  [AUDIT] Skipping malformed audit event %s: %v", record.ID(), err)
			continue
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}
