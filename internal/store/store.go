// Package store provides the document-collection abstraction behind every
// portal collection, with interchangeable MongoDB, local-file and SQL backends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a record id does not exist in a collection
var ErrNotFound = errors.New("record not found")

// Record is a JSON-shaped document. The "id" key always holds the record id.
type Record map[string]interface{}

// ID returns the record id, or "" when absent
func (r Record) ID() string {
	id, _ := r["id"].(string)
	return id
}

// Change operations reported in snapshots
const (
	OpInitial = "initial"
	OpAdd     = "add"
	OpSet     = "set"
	OpUpdate  = "update"
	OpDelete  = "delete"
	OpReload  = "reload"
	OpRemote  = "remote"
)

// Snapshot is the full content of a collection after a change
type Snapshot struct {
	Collection string    `json:"collection"`
	Records    []Record  `json:"records"`
	Seq        uint64    `json:"seq"`
	Op         string    `json:"op"`
	ID         string    `json:"id,omitempty"`
	At         time.Time `json:"at"`
}

// Store is the capability set every backend implements: list, get, add,
// set, update, delete and subscribe. Writes resolve by last write wins.
type Store interface {
	// Backend names the implementation ("mongo", "local", "sql")
	Backend() string

	List(ctx context.Context, collection string) ([]Record, error)
	Get(ctx context.Context, collection, id string) (Record, error)

	// Add stores data under a generated id and returns the stored record
	Add(ctx context.Context, collection string, data Record) (Record, error)

	// Set creates or replaces the record with the given id
	Set(ctx context.Context, collection, id string, data Record) (Record, error)

	// Update merges the top-level fields of patch into an existing record
	Update(ctx context.Context, collection, id string, patch Record) error

	Delete(ctx context.Context, collection, id string) error

	// Subscribe delivers the current snapshot, then one after every change.
	// The returned function cancels the subscription.
	Subscribe(collection string, onChange func(Snapshot)) (unsubscribe func())

	// Hub exposes the change feed for cross-instance relays
	Hub() *Hub

	Close(ctx context.Context) error
}

// NewID returns a new random record id
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// ValidateCollectionName rejects names that cannot be used as a collection or file name
func ValidateCollectionName(name string) error {
	if name == "" || len(name) > 64 {
		return fmt.Errorf("invalid collection name %q", name)
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return fmt.Errorf("invalid collection name %q", name)
		}
	}
	return nil
}

// normalize converts data into its JSON shape and drops the id key
func normalize(data Record) (Record, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize record: %w", err)
	}

	out := Record{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to serialize record: %w", err)
	}
	delete(out, "id")
	return out, nil
}

// withID returns a shallow copy of data carrying the id
func withID(data Record, id string) Record {
	out := make(Record, len(data)+1)
	for k, v := range data {
		out[k] = v
	}
	out["id"] = id
	return out
}

// merge applies the top-level fields of patch to base
func merge(base, patch Record) Record {
	out := make(Record, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		if k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}

// SortBy orders records by a field. Numbers compare numerically, everything
// else as strings; records missing the field sort last.
func SortBy(records []Record, field string, desc bool) {
	if field == "" {
		return
	}

	sort.SliceStable(records, func(i, j int) bool {
		a, aok := records[i][field]
		b, bok := records[j][field]
		if !aok || a == nil {
			return false
		}
		if !bok || b == nil {
			return true
		}

		if cmp := compareValues(a, b); cmp != 0 {
			if desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareValues(a, b interface{}) int {
	af, aNum := a.(float64)
	bf, bNum := b.(float64)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(strings.ToLower(fmt.Sprint(a)), strings.ToLower(fmt.Sprint(b)))
}
