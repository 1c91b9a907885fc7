package store

import (
	"context"
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"intranet/internal/database"
)

type storeFactory func(t *testing.T) Store

func backends(t *testing.T) map[string]storeFactory {
	t.Helper()
	factories := map[string]storeFactory{
		"local": func(t *testing.T) Store {
			s, err := NewLocalStore(t.TempDir())
			if err != nil {
				t.Fatalf("NewLocalStore failed: %v", err)
			}
			return s
		},
		"sqlite": func(t *testing.T) Store {
			db, err := database.OpenSQL("sqlite://:memory:")
			if err != nil {
				t.Fatalf("OpenSQL failed: %v", err)
			}
			s, err := NewSQLStore(context.Background(), db)
			if err != nil {
				t.Fatalf("NewSQLStore failed: %v", err)
			}
			return s
		},
	}

	// MONGODB_TEST_URI points at a disposable server; each store gets its own database
	if uri := os.Getenv("MONGODB_TEST_URI"); uri != "" {
		factories["mongo"] = func(t *testing.T) Store {
			return openTestMongo(t, uri)
		}
	}
	return factories
}

func openTestMongo(t *testing.T, uri string) Store {
	t.Helper()
	parsed, err := url.Parse(uri)
	if err != nil {
		t.Fatalf("Invalid MONGODB_TEST_URI: %v", err)
	}
	parsed.Path = "/intranet_test_" + NewID()

	ctx := context.Background()
	db, err := database.NewMongoDB(ctx, parsed.String())
	if err != nil {
		t.Fatalf("NewMongoDB failed: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Collection("news").Database().Drop(ctx); err != nil {
			t.Logf("Failed to drop test database: %v", err)
		}
		db.Close(ctx)
	})
	return NewMongoStore(db)
}

func TestStoreContract(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close(ctx)

			t.Run("add then list", func(t *testing.T) {
				added, err := s.Add(ctx, "news", Record{"title": "Hello", "views": 3, "id": "ignored"})
				if err != nil {
					t.Fatalf("Add failed: %v", err)
				}
				if added.ID() == "" || added.ID() == "ignored" {
					t.Fatalf("Add returned id %q, want a generated id", added.ID())
				}

				records, err := s.List(ctx, "news")
				if err != nil {
					t.Fatalf("List failed: %v", err)
				}
				if len(records) != 1 {
					t.Fatalf("List returned %d records, want 1", len(records))
				}
				got := records[0]
				if got.ID() != added.ID() {
					t.Errorf("id = %q, want %q", got.ID(), added.ID())
				}
				if got["title"] != "Hello" {
					t.Errorf("title = %v, want Hello", got["title"])
				}
				if got["views"] != float64(3) {
					t.Errorf("views = %v (%T), want 3", got["views"], got["views"])
				}
			})

			t.Run("get update delete", func(t *testing.T) {
				rec, err := s.Add(ctx, "labs", Record{"name": "Lab A", "order": 1})
				if err != nil {
					t.Fatalf("Add failed: %v", err)
				}

				if err := s.Update(ctx, "labs", rec.ID(), Record{"order": 5, "active": true}); err != nil {
					t.Fatalf("Update failed: %v", err)
				}
				got, err := s.Get(ctx, "labs", rec.ID())
				if err != nil {
					t.Fatalf("Get failed: %v", err)
				}
				if got["name"] != "Lab A" || got["order"] != float64(5) || got["active"] != true {
					t.Errorf("unexpected record after update: %v", got)
				}

				if err := s.Delete(ctx, "labs", rec.ID()); err != nil {
					t.Fatalf("Delete failed: %v", err)
				}
				if _, err := s.Get(ctx, "labs", rec.ID()); !errors.Is(err, ErrNotFound) {
					t.Errorf("Get after delete: err = %v, want ErrNotFound", err)
				}
				if err := s.Delete(ctx, "labs", rec.ID()); !errors.Is(err, ErrNotFound) {
					t.Errorf("second Delete: err = %v, want ErrNotFound", err)
				}
				if err := s.Update(ctx, "labs", "missing", Record{"x": 1}); !errors.Is(err, ErrNotFound) {
					t.Errorf("Update missing: err = %v, want ErrNotFound", err)
				}
			})

			t.Run("set creates and replaces", func(t *testing.T) {
				if _, err := s.Set(ctx, "idleFabMessages", "user-1", Record{"userId": "user-1", "status": "idle", "extra": 1}); err != nil {
					t.Fatalf("Set failed: %v", err)
				}
				if _, err := s.Set(ctx, "idleFabMessages", "user-1", Record{"userId": "user-1", "status": "completed"}); err != nil {
					t.Fatalf("Set failed: %v", err)
				}

				got, err := s.Get(ctx, "idleFabMessages", "user-1")
				if err != nil {
					t.Fatalf("Get failed: %v", err)
				}
				if got["status"] != "completed" {
					t.Errorf("status = %v, want completed", got["status"])
				}
				if _, ok := got["extra"]; ok {
					t.Errorf("Set should replace the whole record, got %v", got)
				}
			})

			t.Run("empty collection", func(t *testing.T) {
				records, err := s.List(ctx, "events")
				if err != nil {
					t.Fatalf("List failed: %v", err)
				}
				if records == nil || len(records) != 0 {
					t.Errorf("List of empty collection = %#v, want empty slice", records)
				}
			})

			t.Run("invalid collection name", func(t *testing.T) {
				if _, err := s.List(ctx, "../etc"); err == nil {
					t.Error("expected error for invalid collection name")
				}
			})
		})
	}
}

func TestStoreSubscribe(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close(ctx)

			if _, err := s.Add(ctx, "quickLinks", Record{"label": "Wiki"}); err != nil {
				t.Fatalf("Add failed: %v", err)
			}

			var mu sync.Mutex
			var snaps []Snapshot
			got := make(chan struct{}, 16)
			unsubscribe := s.Subscribe("quickLinks", func(snap Snapshot) {
				mu.Lock()
				snaps = append(snaps, snap)
				mu.Unlock()
				got <- struct{}{}
			})

			waitFor(t, got)
			mu.Lock()
			if snaps[0].Op != OpInitial || len(snaps[0].Records) != 1 {
				t.Errorf("initial snapshot = %+v, want 1 record with op initial", snaps[0])
			}
			mu.Unlock()

			if _, err := s.Add(ctx, "quickLinks", Record{"label": "HR"}); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			waitFor(t, got)

			mu.Lock()
			last := snaps[len(snaps)-1]
			if len(last.Records) != 2 {
				t.Errorf("snapshot after add has %d records, want 2", len(last.Records))
			}
			if last.Seq <= snaps[0].Seq {
				t.Errorf("seq did not advance: %d -> %d", snaps[0].Seq, last.Seq)
			}
			mu.Unlock()

			unsubscribe()
			if n := s.Hub().SubscriberCount("quickLinks"); n != 0 {
				t.Errorf("SubscriberCount after unsubscribe = %d, want 0", n)
			}
		})
	}
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
}

func TestHubSnapshotsNeverRegress(t *testing.T) {
	s, err := NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	ctx := context.Background()
	defer s.Close(ctx)

	var mu sync.Mutex
	var seqs []uint64
	unsubscribe := s.Subscribe("polls", func(snap Snapshot) {
		mu.Lock()
		seqs = append(seqs, snap.Seq)
		mu.Unlock()
	})
	defer unsubscribe()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := s.Add(ctx, "polls", Record{"question": "q", "n": i}); err != nil {
				t.Errorf("Add failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := len(seqs) > 0 && seqs[len(seqs)-1] == s.Hub().Seq("polls")
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(seqs); i++ {
		if seqs[i] <= seqs[i-1] {
			t.Fatalf("snapshot seq regressed: %v", seqs)
		}
	}
	if len(seqs) == 0 || seqs[len(seqs)-1] != 20 {
		t.Errorf("last delivered seq = %v, want 20", seqs)
	}
}

func TestLocalStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	rec, err := s.Add(ctx, "contacts", Record{"name": "Ana"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	s.Close(ctx)

	if _, err := os.Stat(filepath.Join(dir, "contacts.json")); err != nil {
		t.Fatalf("collection file missing: %v", err)
	}

	reopened, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	defer reopened.Close(ctx)

	got, err := reopened.Get(ctx, "contacts", rec.ID())
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got["name"] != "Ana" {
		t.Errorf("name = %v, want Ana", got["name"])
	}
}

func TestLocalStoreReloadsExternalEdit(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewLocalStore(dir)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	defer s.Close(ctx)

	if _, err := s.List(ctx, "events"); err != nil {
		t.Fatalf("List failed: %v", err)
	}

	got := make(chan Snapshot, 8)
	unsubscribe := s.Subscribe("events", func(snap Snapshot) { got <- snap })
	defer unsubscribe()
	<-got

	content := `[{"id":"e1","title":"Offsite"}]`
	if err := os.WriteFile(filepath.Join(dir, "events.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	s.reloadIfChanged("events")

	select {
	case snap := <-got:
		if snap.Op != OpReload || len(snap.Records) != 1 || snap.Records[0].ID() != "e1" {
			t.Errorf("unexpected snapshot after external edit: %+v", snap)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reload snapshot")
	}
}

func TestSortBy(t *testing.T) {
	records := []Record{
		{"id": "a", "order": float64(3)},
		{"id": "b"},
		{"id": "c", "order": float64(1)},
		{"id": "d", "order": float64(2)},
	}

	SortBy(records, "order", false)
	want := []string{"c", "d", "a", "b"}
	for i, id := range want {
		if records[i].ID() != id {
			t.Fatalf("ascending order = %v, want %v", ids(records), want)
		}
	}

	SortBy(records, "order", true)
	want = []string{"a", "d", "c", "b"}
	for i, id := range want {
		if records[i].ID() != id {
			t.Fatalf("descending order = %v, want %v", ids(records), want)
		}
	}
}

func ids(records []Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID()
	}
	return out
}

func TestValidateCollectionName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"news", false},
		{"idleFabMessages", false},
		{"audit_logs", false},
		{"", true},
		{"../x", true},
		{"a b", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCollectionName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCollectionName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
		})
	}
}
