package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"intranet/internal/config"
	"intranet/internal/models"
	"intranet/internal/security"

	"github.com/mmcdole/gofeed"
	cache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFeedGlobalRate = 10.0 // requests per second
	snippetLength         = 300
)

var (
	// ErrNoFeedURLs is returned when the request names no feed
	ErrNoFeedURLs = errors.New("no feed urls provided")
	// ErrAllFeedsFailed is returned when not a single feed could be fetched and parsed
	ErrAllFeedsFailed = errors.New("all feeds failed")
	// ErrInvalidFeedURL is returned for malformed or blocked feed URLs
	ErrInvalidFeedURL = errors.New("invalid feed url")
	// ErrBlockedByRobots is returned when robots.txt disallows the feed path
	ErrBlockedByRobots = errors.New("feed blocked by robots.txt")
)

// FeedService fetches, parses and merges RSS/Atom/JSON feeds
type FeedService struct {
	guard         security.OutboundGuard
	client        *FeedClient
	limiter       *HostRateLimiter
	robots        *RobotsChecker
	cache         *cache.Cache
	maxItems      int
	concurrency   int
	fetchTimeout  time.Duration
	respectRobots bool
}

// NewFeedService creates a feed service from the RSS_* settings
func NewFeedService(cfg *config.Config) *FeedService {
	guard := security.OutboundGuard{AllowPrivate: cfg.RSSAllowPrivateHosts}
	client := NewFeedClient(guard, cfg.RSSFetchTimeout, cfg.RSSMaxBodyBytes)

	maxItems := cfg.RSSMaxItems
	if maxItems <= 0 {
		maxItems = 20
	}
	concurrency := cfg.RSSMaxConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	log.Printf("✅ [RSS] Feed service initialized: max_items=%d, concurrency=%d, cache_ttl=%s",
		maxItems, concurrency, cfg.RSSCacheTTL)

	return &FeedService{
		guard:         guard,
		client:        client,
		limiter:       NewHostRateLimiter(defaultFeedGlobalRate),
		robots:        NewRobotsChecker(client),
		cache:         cache.New(cfg.RSSCacheTTL, 2*cfg.RSSCacheTTL+time.Minute),
		maxItems:      maxItems,
		concurrency:   concurrency,
		fetchTimeout:  cfg.RSSFetchTimeout,
		respectRobots: cfg.RSSRespectRobots,
	}
}

// ParseFeedURLs splits a comma-separated urls parameter, dropping blanks and duplicates
func ParseFeedURLs(raw string) []string {
	seen := make(map[string]bool)
	var urls []string
	for _, part := range strings.Split(raw, ",") {
		u := strings.TrimSpace(part)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		urls = append(urls, u)
	}
	return urls
}

// Aggregate fetches every feed concurrently and returns the newest items
// across all of them. Feeds that fail are logged and skipped; only when all
// of them fail is ErrAllFeedsFailed returned.
func (s *FeedService) Aggregate(ctx context.Context, urls []string) ([]models.FeedItem, error) {
	if len(urls) == 0 {
		return nil, ErrNoFeedURLs
	}

	results := make([][]models.FeedItem, len(urls))
	errs := make([]error, len(urls))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, feedURL := range urls {
		g.Go(func() error {
			items, err := s.FetchFeed(ctx, feedURL)
			if err != nil {
				log.Printf("⚠️  [RSS] Dropping feed %s: %v", feedURL, err)
				errs[i] = err
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	merged := []models.FeedItem{}
	succeeded := 0
	for i := range urls {
		if errs[i] != nil {
			continue
		}
		succeeded++
		merged = append(merged, results[i]...)
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("%w: %v", ErrAllFeedsFailed, errors.Join(errs...))
	}

	SortFeedItems(merged)
	if len(merged) > s.maxItems {
		merged = merged[:s.maxItems]
	}
	return merged, nil
}

// SortFeedItems orders items newest first; undated items go last
func SortFeedItems(items []models.FeedItem) {
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].IsoDate, items[j].IsoDate
		if a == nil {
			return false
		}
		if b == nil {
			return true
		}
		return a.After(*b)
	})
}

// FetchFeed returns the items of one feed, from cache when fresh
func (s *FeedService) FetchFeed(ctx context.Context, feedURL string) ([]models.FeedItem, error) {
	if cached, found := s.cache.Get(feedURL); found {
		GetMetrics().RecordFeedCacheHit()
		return cached.([]models.FeedItem), nil
	}
	return s.refresh(ctx, feedURL)
}

// Warm re-fetches the given feeds into the cache and returns how many succeeded
func (s *FeedService) Warm(ctx context.Context, urls []string) int {
	var g errgroup.Group
	g.SetLimit(s.concurrency)

	ok := make([]bool, len(urls))
	for i, feedURL := range urls {
		g.Go(func() error {
			if _, err := s.refresh(ctx, feedURL); err != nil {
				log.Printf("⚠️  [RSS] Warm-up of %s failed: %v", feedURL, err)
				return nil
			}
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	warmed := 0
	for _, v := range ok {
		if v {
			warmed++
		}
	}
	return warmed
}

func (s *FeedService) refresh(ctx context.Context, feedURL string) ([]models.FeedItem, error) {
	body, _, err := s.FetchRaw(ctx, feedURL)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	items := make([]models.FeedItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		items = append(items, toFeedItem(item, feed.Title, feedURL))
	}

	s.cache.Set(feedURL, items, cache.DefaultExpiration)
	return items, nil
}

// FetchRaw downloads a feed unparsed, applying the URL guard, robots.txt and
// the per-host rate limit
func (s *FeedService) FetchRaw(ctx context.Context, feedURL string) ([]byte, string, error) {
	target, err := s.guard.ParseURL(feedURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidFeedURL, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	var delay time.Duration
	if s.respectRobots {
		allowed, crawlDelay := s.robots.CanFetch(ctx, target)
		if !allowed {
			return nil, "", ErrBlockedByRobots
		}
		delay = crawlDelay
	}

	if err := s.limiter.Wait(ctx, target.Host, delay); err != nil {
		return nil, "", fmt.Errorf("rate limit error: %w", err)
	}

	start := time.Now()
	body, contentType, err := s.client.Fetch(ctx, target.String())
	if err != nil {
		GetMetrics().RecordFeedFetch("error", time.Since(start).Seconds())
		return nil, "", err
	}
	GetMetrics().RecordFeedFetch("ok", time.Since(start).Seconds())
	return body, contentType, nil
}

func toFeedItem(item *gofeed.Item, feedTitle, source string) models.FeedItem {
	out := models.FeedItem{
		Title:      item.Title,
		Link:       item.Link,
		GUID:       item.GUID,
		PubDate:    item.Published,
		Categories: item.Categories,
		Source:     source,
		FeedTitle:  feedTitle,
	}

	date := item.PublishedParsed
	if date == nil {
		date = item.UpdatedParsed
		if out.PubDate == "" {
			out.PubDate = item.Updated
		}
	}
	if date != nil {
		utc := date.UTC()
		out.IsoDate = &utc
	}

	if len(item.Authors) > 0 && item.Authors[0] != nil {
		out.Author = item.Authors[0].Name
	}

	text := item.Description
	if text == "" {
		text = item.Content
	}
	out.ContentSnippet = snippet(text)
	return out
}

var tagPattern = regexp.MustCompile(`<[^>]*>`)

// snippet strips markup and shortens text for list display
func snippet(text string) string {
	plain := html.UnescapeString(tagPattern.ReplaceAllString(text, " "))
	plain = strings.Join(strings.Fields(plain), " ")
	if utf8.RuneCountInString(plain) <= snippetLength {
		return plain
	}
	runes := []rune(plain)
	return strings.TrimSpace(string(runes[:snippetLength])) + "…"
}
