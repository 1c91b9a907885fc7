package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"intranet/internal/models"
	"intranet/internal/store"
	"intranet/pkg/auth"
)

var (
	// ErrUnknownCollection is returned for collections not served by the generic routes
	ErrUnknownCollection = errors.New("unknown collection")
	// ErrKeyFieldRequired is returned when a keyed record lacks its key
	ErrKeyFieldRequired = errors.New("record key field is required")
)

// CollectionService is the validated CRUD layer over the store for the
// admin-managed collections
type CollectionService struct {
	store store.Store
	now   func() time.Time
}

// NewCollectionService creates a new collection service
func NewCollectionService(s store.Store) *CollectionService {
	return &CollectionService{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Definition returns the collection definition or ErrUnknownCollection
func (s *CollectionService) Definition(name string) (models.CollectionDef, error) {
	def, ok := models.LookupCollection(name)
	if !ok {
		return models.CollectionDef{}, ErrUnknownCollection
	}
	return def, nil
}

// List returns the records of a collection in its display order
func (s *CollectionService) List(ctx context.Context, name string) ([]store.Record, error) {
	def, err := s.Definition(name)
	if err != nil {
		return nil, err
	}

	records, err := s.store.List(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", name, err)
	}
	store.SortBy(records, def.SortField, def.SortDesc)
	return records, nil
}

// Get returns one record
func (s *CollectionService) Get(ctx context.Context, name, id string) (store.Record, error) {
	if _, err := s.Definition(name); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, name, id)
}

// Create validates data against the collection model and stores its canonical form
func (s *CollectionService) Create(ctx context.Context, name string, data store.Record, caller *auth.Identity) (store.Record, error) {
	def, err := s.Definition(name)
	if err != nil {
		return nil, err
	}

	data = s.prepareCreate(name, data, caller)

	canonical, err := s.canonicalize(def, data)
	if err != nil {
		return nil, err
	}

	var stored store.Record
	if def.KeyField != "" {
		key, _ := canonical[def.KeyField].(string)
		if strings.TrimSpace(key) == "" {
			return nil, ErrKeyFieldRequired
		}
		stored, err = s.store.Set(ctx, name, key, canonical)
	} else {
		stored, err = s.store.Add(ctx, name, canonical)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", name, err)
	}

	GetMetrics().RecordStoreWrite(name, store.OpAdd)
	return stored, nil
}

// Update merges patch into the record after validating the merged result
func (s *CollectionService) Update(ctx context.Context, name, id string, patch store.Record) (store.Record, error) {
	def, err := s.Definition(name)
	if err != nil {
		return nil, err
	}

	current, err := s.store.Get(ctx, name, id)
	if err != nil {
		return nil, err
	}

	merged := make(store.Record, len(current)+len(patch))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range patch {
		if k == "id" || (def.KeyField != "" && k == def.KeyField) {
			continue
		}
		merged[k] = v
	}

	canonical, err := s.canonicalize(def, merged)
	if err != nil {
		return nil, err
	}

	// Only the patched keys are written so concurrent patches of other fields survive
	changes := store.Record{}
	for k := range patch {
		if v, ok := canonical[k]; ok {
			changes[k] = v
		} else if k != "id" {
			changes[k] = nil
		}
	}
	delete(changes, def.KeyField)

	if err := s.store.Update(ctx, name, id, changes); err != nil {
		return nil, err
	}

	GetMetrics().RecordStoreWrite(name, store.OpUpdate)
	canonical["id"] = id
	return canonical, nil
}

// Delete removes a record
func (s *CollectionService) Delete(ctx context.Context, name, id string) error {
	if _, err := s.Definition(name); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, name, id); err != nil {
		return err
	}
	GetMetrics().RecordStoreWrite(name, store.OpDelete)
	return nil
}

// canonicalize decodes data into the typed model, validates it and re-encodes it
func (s *CollectionService) canonicalize(def models.CollectionDef, data store.Record) (store.Record, error) {
	model := def.New()
	if err := models.DecodeRecord(data, model); err != nil {
		return nil, &models.ValidationError{Problems: []string{err.Error()}}
	}
	if err := models.Validate(model); err != nil {
		return nil, err
	}

	record, err := models.EncodeRecord(model)
	if err != nil {
		return nil, err
	}
	delete(record, "id")
	return store.Record(record), nil
}

// prepareCreate applies server-owned fields
func (s *CollectionService) prepareCreate(name string, data store.Record, caller *auth.Identity) store.Record {
	out := make(store.Record, len(data)+4)
	for k, v := range data {
		out[k] = v
	}
	delete(out, "id")

	now := s.now().Format(time.RFC3339Nano)
	switch name {
	case models.CollectionWorkflows:
		out["status"] = models.WorkflowPending
		out["createdAt"] = now
		delete(out, "decidedBy")
		delete(out, "decidedAt")
		if caller != nil {
			out["requesterId"] = caller.ID
			out["requesterEmail"] = caller.Email
		}
	case models.CollectionPolls:
		out["votes"] = map[string]interface{}{}
		if _, ok := out["createdAt"]; !ok {
			out["createdAt"] = now
		}
	case models.CollectionFabMessages:
		if _, ok := out["activeCampaignIndex"]; !ok {
			out["activeCampaignIndex"] = models.NoActiveCampaign
		}
		if _, ok := out["status"]; !ok {
			out["status"] = models.FabStatusIdle
		}
	}
	return out
}

// Viewer is the caller a collection is read for
type Viewer struct {
	ID    string
	Admin bool
}

// CanRead reports whether v may read the collection at all
func CanRead(def models.CollectionDef, v Viewer) bool {
	return v.Admin || def.Read != models.ReadAdmin
}

// VisibleRecord returns the part of record v may read, or false when the
// record is hidden from v. The input record is never modified.
func VisibleRecord(def models.CollectionDef, record store.Record, v Viewer) (store.Record, bool) {
	if v.Admin {
		return record, true
	}

	switch def.Read {
	case models.ReadAdmin:
		return nil, false
	case models.ReadOwn:
		if owner, _ := record[def.OwnerField].(string); owner == "" || owner != v.ID {
			return nil, false
		}
	}

	if def.PerUserField == "" {
		return record, true
	}
	var entries map[string]interface{}
	switch m := record[def.PerUserField].(type) {
	case map[string]interface{}:
		entries = m
	case store.Record:
		entries = m
	default:
		return record, true
	}

	view := make(store.Record, len(record))
	for k, val := range record {
		view[k] = val
	}
	own := map[string]interface{}{}
	if entry, ok := entries[v.ID]; ok {
		own[v.ID] = entry
	}
	view[def.PerUserField] = own
	return view, true
}

// VisibleRecords applies VisibleRecord to every record, keeping order
func VisibleRecords(def models.CollectionDef, records []store.Record, v Viewer) []store.Record {
	if v.Admin {
		return records
	}
	out := make([]store.Record, 0, len(records))
	for _, record := range records {
		if view, ok := VisibleRecord(def, record, v); ok {
			out = append(out, view)
		}
	}
	return out
}

// IsValidationError reports whether err should be answered with 400
func IsValidationError(err error) bool {
	var verr *models.ValidationError
	return errors.As(err, &verr)
}
