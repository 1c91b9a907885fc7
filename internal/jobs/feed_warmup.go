package jobs

import (
	"context"
	"log"

	"intranet/internal/config"
	"intranet/internal/services"
)

// FeedWarmupJob refreshes the feed cache for the dashboard's default feeds
type FeedWarmupJob struct {
	feeds    *services.FeedService
	settings *config.SettingsHolder
}

// NewFeedWarmupJob creates a new feed warm-up job
func NewFeedWarmupJob(feeds *services.FeedService, settings *config.SettingsHolder) *FeedWarmupJob {
	return &FeedWarmupJob{feeds: feeds, settings: settings}
}

// Run fetches every configured feed. Individual failures are logged, not returned.
func (j *FeedWarmupJob) Run(ctx context.Context) error {
	urls := j.settings.Get().Feeds
	if len(urls) == 0 {
		return nil
	}

	warmed := j.feeds.Warm(ctx, urls)
	log.Printf("📰 [RSS] Warmed %d/%d feeds", warmed, len(urls))
	return nil
}
