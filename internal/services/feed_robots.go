package services

import (
	"context"
	"net/http"
	"net/url"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/temoto/robotstxt"
)

// RobotsChecker answers whether a feed URL may be fetched according to robots.txt
type RobotsChecker struct {
	client *FeedClient
	cache  *cache.Cache
}

// robotsVerdict is cached per origin; data is nil when robots.txt was unavailable
type robotsVerdict struct {
	data *robotstxt.RobotsData
}

// NewRobotsChecker creates a checker that caches robots.txt per origin for 24h
func NewRobotsChecker(client *FeedClient) *RobotsChecker {
	return &RobotsChecker{
		client: client,
		cache:  cache.New(24*time.Hour, time.Hour),
	}
}

// CanFetch returns whether the path of target is allowed and the crawl delay to honor.
// An unreachable or unparsable robots.txt allows the fetch.
func (rc *RobotsChecker) CanFetch(ctx context.Context, target *url.URL) (bool, time.Duration) {
	origin := target.Scheme + "://" + target.Host

	var verdict *robotsVerdict
	if cached, found := rc.cache.Get(origin); found {
		verdict = cached.(*robotsVerdict)
	} else {
		verdict = rc.fetch(ctx, origin)
		rc.cache.Set(origin, verdict, cache.DefaultExpiration)
	}

	if verdict.data == nil {
		return true, 0
	}

	group := verdict.data.FindGroup(rc.client.userAgent)
	path := target.EscapedPath()
	if path == "" {
		path = "/"
	}
	return group.Test(path), crawlDelay(group)
}

func (rc *RobotsChecker) fetch(ctx context.Context, origin string) *robotsVerdict {
	resp, err := rc.client.Get(ctx, origin+"/robots.txt")
	if err != nil {
		return &robotsVerdict{}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &robotsVerdict{}
	}

	body, err := rc.client.readBody(resp.Body)
	if err != nil {
		return &robotsVerdict{}
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return &robotsVerdict{}
	}
	return &robotsVerdict{data: data}
}

func crawlDelay(group *robotstxt.Group) time.Duration {
	if group == nil || group.CrawlDelay <= 0 {
		return 0
	}
	if group.CrawlDelay > 10*time.Second {
		return 10 * time.Second
	}
	return group.CrawlDelay
}
