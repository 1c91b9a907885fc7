package services

import (
	"bytes"
	"context"
	"fmt"

	"intranet/internal/models"
	"intranet/internal/store"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ContentService renders markdown content of portal records
type ContentService struct {
	store store.Store
	md    goldmark.Markdown
}

// RenderedNews is a news article with its markdown body rendered to HTML
type RenderedNews struct {
	models.News
	HTML string `json:"html"`
}

// NewContentService creates a content service. Raw HTML in markdown is not
// passed through.
func NewContentService(s store.Store) *ContentService {
	return &ContentService{
		store: s,
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// RenderMarkdown converts markdown to HTML
func (s *ContentService) RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := s.md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return buf.String(), nil
}

// News loads an article and renders its content
func (s *ContentService) News(ctx context.Context, id string) (*RenderedNews, error) {
	record, err := s.store.Get(ctx, models.CollectionNews, id)
	if err != nil {
		return nil, err
	}

	var news models.News
	if err := models.DecodeRecord(record, &news); err != nil {
		return nil, err
	}
	news.ID = id

	rendered, err := s.RenderMarkdown(news.Content)
	if err != nil {
		return nil, err
	}
	return &RenderedNews{News: news, HTML: rendered}, nil
}
