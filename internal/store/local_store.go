package store

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"intranet/internal/logging"

	"github.com/fsnotify/fsnotify"
)

// LocalStore is the offline development backend. Each collection lives in
// memory and in one JSON file; the whole collection is rewritten on every write.
type LocalStore struct {
	dir string
	hub *Hub

	mu          sync.Mutex
	collections map[string][]Record
	written     map[string][32]byte // checksum of the last file content we wrote

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewLocalStore opens (or creates) a local store rooted at dir
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	s := &LocalStore{
		dir:         dir,
		collections: make(map[string][]Record),
		written:     make(map[string][32]byte),
		done:        make(chan struct{}),
	}
	s.hub = NewHub(s.List)
	return s, nil
}

// Backend implements Store
func (s *LocalStore) Backend() string { return "local" }

// Hub implements Store
func (s *LocalStore) Hub() *Hub { return s.hub }

func (s *LocalStore) path(collection string) string {
	return filepath.Join(s.dir, collection+".json")
}

// load returns the collection, reading its file on first access. Caller holds s.mu.
func (s *LocalStore) load(collection string) ([]Record, error) {
	if records, ok := s.collections[collection]; ok {
		return records, nil
	}

	records, err := readCollectionFile(s.path(collection))
	if err != nil {
		return nil, err
	}
	s.collections[collection] = records
	return records, nil
}

func readCollectionFile(path string) ([]Record, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return []Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []Record{}, nil
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return records, nil
}

// persist writes the whole collection through a temp file and rename. Caller holds s.mu.
func (s *LocalStore) persist(collection string, records []Record) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize %s: %w", collection, err)
	}

	path := s.path(collection)
	tmp := filepath.Join(s.dir, "."+collection+".json.tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", collection, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", collection, err)
	}

	s.written[collection] = sha256.Sum256(data)
	s.collections[collection] = records
	return nil
}

// List implements Store
func (s *LocalStore) List(ctx context.Context, collection string) ([]Record, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(collection)
	if err != nil {
		return nil, err
	}

	out := make([]Record, len(records))
	for i, r := range records {
		out[i] = withID(r, r.ID())
	}
	return out, nil
}

// Get implements Store
func (s *LocalStore) Get(ctx context.Context, collection, id string) (Record, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(collection)
	if err != nil {
		return nil, err
	}
	if i := indexOf(records, id); i >= 0 {
		return withID(records[i], id), nil
	}
	return nil, ErrNotFound
}

// Add implements Store
func (s *LocalStore) Add(ctx context.Context, collection string, data Record) (Record, error) {
	return s.Set(ctx, collection, NewID(), data)
}

// Set implements Store
func (s *LocalStore) Set(ctx context.Context, collection, id string, data Record) (Record, error) {
	if err := ValidateCollectionName(collection); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, errors.New("record id is required")
	}

	clean, err := normalize(data)
	if err != nil {
		return nil, err
	}
	stored := withID(clean, id)

	s.mu.Lock()
	records, err := s.load(collection)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	next := make([]Record, len(records), len(records)+1)
	copy(next, records)
	op := OpAdd
	if i := indexOf(next, id); i >= 0 {
		next[i] = stored
		op = OpSet
	} else {
		next = append(next, stored)
	}

	err = s.persist(collection, next)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	s.hub.Notify(ctx, collection, op, id)
	return withID(clean, id), nil
}

// Update implements Store
func (s *LocalStore) Update(ctx context.Context, collection, id string, patch Record) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}

	clean, err := normalize(patch)
	if err != nil {
		return err
	}

	s.mu.Lock()
	records, err := s.load(collection)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	i := indexOf(records, id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}

	next := make([]Record, len(records))
	copy(next, records)
	next[i] = withID(merge(records[i], clean), id)

	err = s.persist(collection, next)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.hub.Notify(ctx, collection, OpUpdate, id)
	return nil
}

// Delete implements Store
func (s *LocalStore) Delete(ctx context.Context, collection, id string) error {
	if err := ValidateCollectionName(collection); err != nil {
		return err
	}

	s.mu.Lock()
	records, err := s.load(collection)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	i := indexOf(records, id)
	if i < 0 {
		s.mu.Unlock()
		return ErrNotFound
	}

	next := make([]Record, 0, len(records)-1)
	next = append(next, records[:i]...)
	next = append(next, records[i+1:]...)

	err = s.persist(collection, next)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.hub.Notify(ctx, collection, OpDelete, id)
	return nil
}

// Subscribe implements Store
func (s *LocalStore) Subscribe(collection string, onChange func(Snapshot)) func() {
	return s.hub.Subscribe(collection, onChange)
}

// Watch picks up edits made to the collection files by other processes and
// notifies subscribers. Our own writes are recognised by checksum and ignored.
func (s *LocalStore) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.dir, err)
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	log.Printf("👁️  [STORE] Watching %s for external changes", s.dir)

	go func() {
		for {
			select {
			case <-s.done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				name := filepath.Base(event.Name)
				if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
					continue
				}
				s.reloadIfChanged(strings.TrimSuffix(name, ".json"))
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️  [STORE] File watcher error: %v", err)
			}
		}
	}()
	return nil
}

func (s *LocalStore) reloadIfChanged(collection string) {
	if ValidateCollectionName(collection) != nil {
		return
	}

	path := s.path(collection)
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	s.mu.Lock()
	if sum, ok := s.written[collection]; ok && sum == sha256.Sum256(data) {
		s.mu.Unlock()
		return
	}

	records, err := readCollectionFile(path)
	if err != nil {
		s.mu.Unlock()
		logging.WithCollection(s.Backend(), collection).Warn("ignoring external edit", "error", err)
		return
	}
	s.collections[collection] = records
	s.written[collection] = sha256.Sum256(data)
	s.mu.Unlock()

	log.Printf("🔄 [STORE] Reloaded %s after external change (%d records)", collection, len(records))
	s.hub.Refresh(context.Background(), collection, OpReload)
}

// Ping checks that the data directory is still reachable
func (s *LocalStore) Ping(ctx context.Context) error {
	if _, err := os.Stat(s.dir); err != nil {
		return fmt.Errorf("store directory unavailable: %w", err)
	}
	return nil
}

// Close implements Store
func (s *LocalStore) Close(ctx context.Context) error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}

	s.hub.Close()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func indexOf(records []Record, id string) int {
	for i, r := range records {
		if r.ID() == id {
			return i
		}
	}
	return -1
}
