package jobs

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"intranet/internal/config"
	"intranet/internal/models"
	"intranet/internal/services"
	"intranet/internal/store"
)

type countingJob struct {
	runs atomic.Int32
	done chan struct{}
	err  error
}

func (j *countingJob) Run(ctx context.Context) error {
	if j.runs.Add(1) == 1 && j.done != nil {
		close(j.done)
	}
	return j.err
}

func TestValidateCron(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{"0 2 * * *", false},
		{"*/15 * * * 1-5", false},
		{"0 2 * *", true},
		{"61 * * * *", true},
		{"", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateCron(tt.expr)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateCron(%q) error = %v, wantErr %v", tt.expr, err, tt.wantErr)
			}
		})
	}
}

func TestJobScheduler_Registration(t *testing.T) {
	s, err := NewJobScheduler()
	if err != nil {
		t.Fatalf("NewJobScheduler failed: %v", err)
	}
	defer s.Stop()

	if err := s.RegisterCron("bad", "not a cron", &countingJob{}); err == nil {
		t.Error("Expected invalid cron to be rejected")
	}
	if err := s.RegisterInterval("zero", 0, false, &countingJob{}); err == nil {
		t.Error("Expected zero interval to be rejected")
	}
	if err := s.RegisterCron("nightly", "0 2 * * *", &countingJob{}); err != nil {
		t.Fatalf("RegisterCron failed: %v", err)
	}
	if err := s.RegisterCron("nightly", "0 3 * * *", &countingJob{}); err == nil {
		t.Error("Expected duplicate job name to be rejected")
	}

	s.Start()

	// scheduling happens in the scheduler goroutine
	var status map[string]JobStatus
	deadline := time.Now().Add(2 * time.Second)
	for {
		status = s.GetStatus()
		if !status["nightly"].NextRunTime.IsZero() || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if len(status) != 1 || !status["nightly"].Registered {
		t.Fatalf("Unexpected status: %+v", status)
	}
	if next := status["nightly"].NextRunTime; next.IsZero() || next.UTC().Hour() != 2 {
		t.Errorf("Expected next run at 02:00 UTC, got %v", next)
	}
}

func TestJobScheduler_RunNow(t *testing.T) {
	s, err := NewJobScheduler()
	if err != nil {
		t.Fatalf("NewJobScheduler failed: %v", err)
	}
	defer s.Stop()

	boom := errors.New("boom")
	job := &countingJob{err: boom}
	if err := s.RegisterCron("manual", "0 0 1 1 *", job); err != nil {
		t.Fatalf("RegisterCron failed: %v", err)
	}

	if err := s.RunNow("manual"); !errors.Is(err, boom) {
		t.Errorf("Expected job error, got %v", err)
	}
	if job.runs.Load() != 1 {
		t.Errorf("Expected 1 run, got %d", job.runs.Load())
	}
	if err := s.RunNow("missing"); err == nil {
		t.Error("Expected error for unknown job")
	}
}

func TestJobScheduler_IntervalStartsImmediately(t *testing.T) {
	s, err := NewJobScheduler()
	if err != nil {
		t.Fatalf("NewJobScheduler failed: %v", err)
	}
	defer s.Stop()

	job := &countingJob{done: make(chan struct{})}
	if err := s.RegisterInterval("warmup", time.Hour, true, job); err != nil {
		t.Fatalf("RegisterInterval failed: %v", err)
	}
	s.Start()

	select {
	case <-job.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected job to run right after start")
	}
}

func TestAuditRetentionJob(t *testing.T) {
	s, err := store.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close(context.Background())

	audit := services.NewAuditService(s)
	ctx := context.Background()
	for _, user := range []string{"u1", "u2"} {
		if _, err := audit.Record(ctx, models.AuditDocumentDownload, user, nil); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	// entries are fresh: nothing to purge
	job := NewAuditRetentionJob(audit, 30)
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	entries, _ := audit.List(ctx, models.AuditFilter{})
	if len(entries) != 2 {
		t.Fatalf("Expected 2 entries kept, got %d", len(entries))
	}

	disabled := NewAuditRetentionJob(audit, 0)
	disabled.now = func() time.Time { return time.Now().AddDate(1, 0, 0) }
	if err := disabled.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	entries, _ = audit.List(ctx, models.AuditFilter{})
	if len(entries) != 2 {
		t.Fatalf("Expected disabled retention to keep entries, got %d", len(entries))
	}

	job.now = func() time.Time { return time.Now().AddDate(0, 0, 31) }
	if err := job.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	entries, _ = audit.List(ctx, models.AuditFilter{})
	if len(entries) != 0 {
		t.Errorf("Expected all entries purged, got %d", len(entries))
	}
}

func TestFeedWarmupJob(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel><title>Warm</title>
<item><title>Hello</title><link>https://example.com/1</link><pubDate>Mon, 02 Jun 2025 10:00:00 GMT</pubDate></item>
</channel></rss>`))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "portal.yaml")
	if err := os.WriteFile(path, []byte("feeds:\n  - "+server.URL+"/feed\n"), 0o600); err != nil {
		t.Fatalf("Failed to write settings: %v", err)
	}
	settings, err := config.NewSettingsHolder(path)
	if err != nil {
		t.Fatalf("NewSettingsHolder failed: %v", err)
	}

	feeds := services.NewFeedService(&config.Config{
		RSSMaxItems:          20,
		RSSFetchTimeout:      5 * time.Second,
		RSSCacheTTL:          time.Minute,
		RSSMaxConcurrency:    2,
		RSSMaxBodyBytes:      1 << 20,
		RSSAllowPrivateHosts: true,
	})

	job := NewFeedWarmupJob(feeds, settings)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("Expected 1 upstream fetch, got %d", hits.Load())
	}

	// the aggregate request is served from the warmed cache
	items, err := feeds.Aggregate(context.Background(), []string{server.URL + "/feed"})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(items) != 1 || hits.Load() != 1 {
		t.Errorf("Expected cached item, got %d items and %d fetches", len(items), hits.Load())
	}
}
