package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"intranet/internal/config"
)

func testFeedConfig() *config.Config {
	return &config.Config{
		RSSMaxItems:          20,
		RSSFetchTimeout:      5 * time.Second,
		RSSCacheTTL:          time.Minute,
		RSSMaxConcurrency:    4,
		RSSMaxBodyBytes:      1 << 20,
		RSSAllowPrivateHosts: true,
		RSSRespectRobots:     true,
	}
}

// rssFeed builds an RSS document with n items, one day apart, newest first
func rssFeed(title string, n int, newest time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<?xml version="1.0"?><rss version="2.0"><channel><title>%s</title><link>https://example.com</link>`, title)
	for i := 0; i < n; i++ {
		pub := newest.Add(-time.Duration(i) * 24 * time.Hour)
		fmt.Fprintf(&b, `<item><title>%s %d</title><link>https://example.com/%d</link><description>&lt;p&gt;Item %d body&lt;/p&gt;</description><pubDate>%s</pubDate></item>`,
			title, i, i, i, pub.Format(time.RFC1123Z))
	}
	b.WriteString(`</channel></rss>`)
	return b.String()
}

func feedServer(t *testing.T, body string, robots string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/robots.txt":
			if robots == "" {
				http.NotFound(w, r)
				return
			}
			w.Write([]byte(robots))
		default:
			w.Header().Set("Content-Type", "application/rss+xml")
			w.Write([]byte(body))
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func failingServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broken", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFeedService_AggregateDropsFailedFeeds(t *testing.T) {
	newest := time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)
	good := feedServer(t, rssFeed("Good", 25, newest), "")
	bad := failingServer(t)

	svc := NewFeedService(testFeedConfig())
	items, err := svc.Aggregate(context.Background(), []string{bad.URL + "/rss", good.URL + "/rss"})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(items) != 20 {
		t.Fatalf("Expected 20 items, got %d", len(items))
	}
	for i, item := range items {
		if item.Source != good.URL+"/rss" {
			t.Errorf("item %d comes from %s, expected only the good feed", i, item.Source)
		}
		if i > 0 && item.IsoDate.After(*items[i-1].IsoDate) {
			t.Errorf("items not sorted descending at %d: %v after %v", i, item.IsoDate, items[i-1].IsoDate)
		}
	}
	if items[0].Title != "Good 0" {
		t.Errorf("Expected newest item first, got %q", items[0].Title)
	}
	if items[0].ContentSnippet != "Item 0 body" {
		t.Errorf("Expected markup stripped from snippet, got %q", items[0].ContentSnippet)
	}
}

func TestFeedService_AggregateMergesFeeds(t *testing.T) {
	a := feedServer(t, rssFeed("A", 3, time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)), "")
	b := feedServer(t, rssFeed("B", 3, time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)), "")

	svc := NewFeedService(testFeedConfig())
	items, err := svc.Aggregate(context.Background(), []string{a.URL, b.URL})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	var titles []string
	for _, item := range items {
		titles = append(titles, item.Title)
	}
	want := "A 0,B 0,A 1,B 1,A 2,B 2"
	if got := strings.Join(titles, ","); got != want {
		t.Errorf("Expected order %s, got %s", want, got)
	}
}

func TestFeedService_AllFeedsFail(t *testing.T) {
	bad := failingServer(t)

	svc := NewFeedService(testFeedConfig())
	_, err := svc.Aggregate(context.Background(), []string{bad.URL + "/a", "http://"})
	if !errors.Is(err, ErrAllFeedsFailed) {
		t.Fatalf("Expected ErrAllFeedsFailed, got %v", err)
	}
}

func TestFeedService_EmptyFeedSucceeds(t *testing.T) {
	empty := feedServer(t, rssFeed("Empty", 0, time.Now()), "")

	svc := NewFeedService(testFeedConfig())
	items, err := svc.Aggregate(context.Background(), []string{empty.URL})
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if items == nil || len(items) != 0 {
		t.Errorf("Expected empty non-nil slice, got %#v", items)
	}
}

func TestFeedService_NoURLs(t *testing.T) {
	svc := NewFeedService(testFeedConfig())
	if _, err := svc.Aggregate(context.Background(), nil); !errors.Is(err, ErrNoFeedURLs) {
		t.Errorf("Expected ErrNoFeedURLs, got %v", err)
	}
}

func TestFeedService_CachesParsedFeeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		atomic.AddInt32(&hits, 1)
		w.Write([]byte(rssFeed("Cached", 2, time.Now())))
	}))
	defer srv.Close()

	svc := NewFeedService(testFeedConfig())
	for i := 0; i < 3; i++ {
		if _, err := svc.FetchFeed(context.Background(), srv.URL+"/feed"); err != nil {
			t.Fatalf("FetchFeed failed: %v", err)
		}
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("Expected 1 upstream request, got %d", n)
	}
}

func TestFeedService_RobotsDisallow(t *testing.T) {
	srv := feedServer(t, rssFeed("Private", 1, time.Now()), "User-agent: *\nDisallow: /private/\n")

	svc := NewFeedService(testFeedConfig())
	if _, _, err := svc.FetchRaw(context.Background(), srv.URL+"/private/feed.xml"); !errors.Is(err, ErrBlockedByRobots) {
		t.Errorf("Expected ErrBlockedByRobots, got %v", err)
	}
	if _, _, err := svc.FetchRaw(context.Background(), srv.URL+"/public/feed.xml"); err != nil {
		t.Errorf("Expected allowed path to be fetched, got %v", err)
	}
}

func TestFeedService_BlocksPrivateHostsByDefault(t *testing.T) {
	srv := feedServer(t, rssFeed("Internal", 1, time.Now()), "")

	cfg := testFeedConfig()
	cfg.RSSAllowPrivateHosts = false
	svc := NewFeedService(cfg)

	if _, _, err := svc.FetchRaw(context.Background(), srv.URL); !errors.Is(err, ErrInvalidFeedURL) {
		t.Errorf("Expected ErrInvalidFeedURL for loopback feed, got %v", err)
	}
}

func TestFeedService_BlocksUnspecifiedAddress(t *testing.T) {
	ln, err := net.Listen("tcp", "[::]:0")
	if err != nil {
		t.Skipf("IPv6 listener unavailable: %v", err)
	}
	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("INTERNAL-SECRET"))
	})}
	go srv.Serve(ln)
	defer srv.Close()

	cfg := testFeedConfig()
	cfg.RSSAllowPrivateHosts = false
	svc := NewFeedService(cfg)

	port := ln.Addr().(*net.TCPAddr).Port
	for _, target := range []string{
		fmt.Sprintf("http://[::]:%d/admin", port),
		fmt.Sprintf("http://0.0.0.0:%d/admin", port),
	} {
		body, _, err := svc.FetchRaw(context.Background(), target)
		if !errors.Is(err, ErrInvalidFeedURL) {
			t.Errorf("Expected ErrInvalidFeedURL for %s, got body=%q err=%v", target, body, err)
		}
	}
}

func TestFeedService_BodyLimit(t *testing.T) {
	srv := feedServer(t, rssFeed("Big", 50, time.Now()), "")

	cfg := testFeedConfig()
	cfg.RSSMaxBodyBytes = 512
	svc := NewFeedService(cfg)

	if _, _, err := svc.FetchRaw(context.Background(), srv.URL); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected body size error, got %v", err)
	}
}

func TestParseFeedURLs(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{" , ,", 0},
		{"https://a.example/rss", 1},
		{"https://a.example/rss, https://b.example/atom ,https://a.example/rss", 2},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			if got := ParseFeedURLs(tt.raw); len(got) != tt.want {
				t.Errorf("Expected %d urls, got %d (%v)", tt.want, len(got), got)
			}
		})
	}
}

func TestSnippet(t *testing.T) {
	got := snippet("<p>Hello &amp; <b>welcome</b></p>\n\n to   the portal")
	if got != "Hello & welcome to the portal" {
		t.Errorf("Unexpected snippet %q", got)
	}

	long := strings.Repeat("word ", 200)
	if s := snippet(long); len([]rune(s)) > snippetLength+1 {
		t.Errorf("Expected snippet to be truncated, got %d runes", len([]rune(s)))
	}
}
