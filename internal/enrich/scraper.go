package enrich

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/samvad-hq/headlines/internal/domain"
	"github.com/samvad-hq/headlines/internal/logger"
	"github.com/samvad-hq/headlines/pkg/httpclient"
)

const (
	// MaxHTMLBodyBytes is the largest article page the scraper will read.
	MaxHTMLBodyBytes = 1 << 20 // 1 MiB
	defaultTimeout   = 10 * time.Second
)

// Scraper fills in missing card descriptions from the article page's meta tags.
type Scraper struct {
	client  httpclient.Client
	headers map[string]string
	log     logger.Logger
}

// NewScraper constructs a scraper with the provided HTTP client. Without one
// it uses a resty client capped at MaxHTMLBodyBytes; callers passing their
// own client should set Options.MaxBodyBytes the same way.
func NewScraper(client httpclient.Client, userAgent string, log logger.Logger) *Scraper {
	if client == nil {
		client = httpclient.NewRestyClientWithOptions(httpclient.Options{
			Timeout:      defaultTimeout,
			MaxBodyBytes: MaxHTMLBodyBytes,
		})
	}
	headers := map[string]string{"Accept": "text/html"}
	if ua := strings.TrimSpace(userAgent); ua != "" {
		headers["User-Agent"] = ua
	}
	return &Scraper{client: client, headers: headers, log: logger.Ensure(log)}
}

// Enrich replaces a placeholder description with the page's OG or meta
// description, and fills a blank title. On any failure the card is
// returned unchanged.
func (s *Scraper) Enrich(ctx context.Context, card domain.NewsCard) domain.NewsCard {
	if !card.HasPlaceholder() || strings.TrimSpace(card.URL) == "" {
		return card
	}
	select {
	case <-ctx.Done():
		return card
	default:
	}

	meta, err := s.fetchMeta(ctx, card.URL)
	if err != nil {
		s.log.WarnObj("card description scrape failed", "enrich_error", map[string]any{
			"url":   card.URL,
			"error": err.Error(),
		})
		return card
	}
	if meta.Description != "" {
		card.Description = meta.Description
	}
	if strings.TrimSpace(card.Title) == "" {
		card.Title = meta.Title
	}
	return card
}

func (s *Scraper) fetchMeta(ctx context.Context, url string) (pageMeta, error) {
	resp, err := s.client.Get(ctx, url, s.headers)
	if err != nil {
		return pageMeta{}, fmt.Errorf("http fetch: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		snippet := strings.TrimSpace(string(resp.Body()))
		if len(snippet) > 1024 {
			snippet = snippet[:1024]
		}
		return pageMeta{}, fmt.Errorf("status %d body: %s", resp.StatusCode(), snippet)
	}

	return parseMeta(resp.Body())
}

func parseMeta(body []byte) (pageMeta, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return pageMeta{}, fmt.Errorf("parse html: %w", err)
	}

	extract := func(sel string) string {
		if node := doc.Find(sel).First(); node.Length() > 0 {
			if val, ok := node.Attr("content"); ok {
				return strings.TrimSpace(val)
			}
		}
		return ""
	}

	return pageMeta{
		Title: firstNonEmpty(
			extract(`meta[property="og:title"]`),
			strings.TrimSpace(doc.Find("title").First().Text()),
		),
		Description: firstNonEmpty(
			extract(`meta[property="og:description"]`),
			extract(`meta[name="description"]`),
		),
	}, nil
}

type pageMeta struct {
	Title       string
	Description string
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
