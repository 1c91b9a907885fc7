package services

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"intranet/internal/security"
)

const feedUserAgent = "IntranetPortal-FeedBot/1.0"

// FeedClient is the HTTP client used for upstream feeds and robots.txt
type FeedClient struct {
	httpClient  *http.Client
	userAgent   string
	maxBodySize int64
}

// NewFeedClient creates a client whose dialer enforces guard
func NewFeedClient(guard security.OutboundGuard, timeout time.Duration, maxBodySize int64) *FeedClient {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: guard.DialContext(&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}),
	}

	return &FeedClient{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 5 {
					return fmt.Errorf("too many redirects (max 5)")
				}
				if _, err := guard.ParseURL(req.URL.String()); err != nil {
					return err
				}
				return nil
			},
		},
		userAgent:   feedUserAgent,
		maxBodySize: maxBodySize,
	}
}

// Get performs a GET request with feed Accept headers
func (c *FeedClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/feed+json, application/xml;q=0.9, text/xml;q=0.9, */*;q=0.8")

	return c.httpClient.Do(req)
}

// Fetch downloads url and returns its body and content type. Non-2xx
// responses and bodies above the size limit are errors.
func (c *FeedClient) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("HTTP error %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := c.readBody(resp.Body)
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *FeedClient) readBody(body io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if int64(len(data)) > c.maxBodySize {
		return nil, fmt.Errorf("response body too large (max %d bytes)", c.maxBodySize)
	}
	return data, nil
}
