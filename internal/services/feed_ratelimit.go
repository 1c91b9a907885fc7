package services

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// HostRateLimiter limits outbound requests globally and per upstream host
type HostRateLimiter struct {
	global  *rate.Limiter
	perHost sync.Map // host -> *rate.Limiter
}

// NewHostRateLimiter creates a limiter allowing globalRate requests per second overall
func NewHostRateLimiter(globalRate float64) *HostRateLimiter {
	return &HostRateLimiter{
		global: rate.NewLimiter(rate.Limit(globalRate), int(globalRate*2)),
	}
}

// Wait blocks until both the global and the host budget allow a request.
// crawlDelay comes from robots.txt; zero means the default of 2 req/s.
func (rl *HostRateLimiter) Wait(ctx context.Context, host string, crawlDelay time.Duration) error {
	if err := rl.global.Wait(ctx); err != nil {
		return err
	}
	return rl.hostLimiter(host, crawlDelay).Wait(ctx)
}

func (rl *HostRateLimiter) hostLimiter(host string, crawlDelay time.Duration) *rate.Limiter {
	if limiter, ok := rl.perHost.Load(host); ok {
		return limiter.(*rate.Limiter)
	}

	if crawlDelay <= 0 {
		crawlDelay = 500 * time.Millisecond
	}
	perSecond := 1.0 / crawlDelay.Seconds()
	if perSecond > 5.0 {
		perSecond = 5.0
	}
	if perSecond < 0.2 {
		perSecond = 0.2
	}

	actual, _ := rl.perHost.LoadOrStore(host, rate.NewLimiter(rate.Limit(perSecond), 2))
	return actual.(*rate.Limiter)
}
