package enrich

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samvad-hq/headlines/internal/domain"
	"github.com/samvad-hq/headlines/pkg/httpclient"
)

// stubHTTPResponse implements httpclient.Response.
type stubHTTPResponse struct {
	body       []byte
	statusCode int
}

func (s stubHTTPResponse) Body() []byte    { return s.body }
func (s stubHTTPResponse) StatusCode() int { return s.statusCode }

// stubHTTPClient returns a single response and counts calls.
type stubHTTPClient struct {
	resp  httpclient.Response
	err   error
	calls *int
}

func (s stubHTTPClient) Get(_ context.Context, _ string, _ map[string]string) (httpclient.Response, error) {
	if s.calls != nil {
		*s.calls++
	}
	return s.resp, s.err
}

const pageWithOG = `
<html>
  <head>
    <title>Fallback</title>
    <meta property="og:title" content="OG Title">
    <meta property="og:description" content=" OG Desc ">
    <meta name="description" content="Plain Desc">
  </head>
</html>`

func TestParseMetaPrefersOGTags(t *testing.T) {
	meta, err := parseMeta([]byte(pageWithOG))
	if err != nil {
		t.Fatalf("parseMeta: %v", err)
	}
	if meta.Title != "OG Title" || meta.Description != "OG Desc" {
		t.Fatalf("unexpected meta %#v", meta)
	}
}

func TestParseMetaFallsBackToNameDescription(t *testing.T) {
	meta, err := parseMeta([]byte(`<html><head><title>T</title><meta name="description" content="Plain"></head></html>`))
	if err != nil {
		t.Fatalf("parseMeta: %v", err)
	}
	if meta.Title != "T" || meta.Description != "Plain" {
		t.Fatalf("unexpected meta %#v", meta)
	}
}

func TestEnrichReplacesPlaceholder(t *testing.T) {
	s := NewScraper(stubHTTPClient{resp: stubHTTPResponse{body: []byte(pageWithOG), statusCode: 200}}, "UA", nil)
	card := domain.NewNewsCard("t", "https://example.com/a", nil)

	got := s.Enrich(context.Background(), card)
	if got.Description != "OG Desc" {
		t.Fatalf("Description = %q", got.Description)
	}
	if got.Title != "t" {
		t.Fatalf("existing title overwritten: %q", got.Title)
	}
}

func TestEnrichFillsBlankTitle(t *testing.T) {
	s := NewScraper(stubHTTPClient{resp: stubHTTPResponse{body: []byte(pageWithOG), statusCode: 200}}, "", nil)

	got := s.Enrich(context.Background(), domain.NewNewsCard("", "https://example.com/a", nil))
	if got.Title != "OG Title" {
		t.Fatalf("Title = %q", got.Title)
	}
}

func TestEnrichSkipsCardsWithDescription(t *testing.T) {
	calls := 0
	s := NewScraper(stubHTTPClient{resp: stubHTTPResponse{statusCode: 200}, calls: &calls}, "", nil)
	card := domain.NewsCard{Title: "t", URL: "https://example.com", Description: "given"}

	if got := s.Enrich(context.Background(), card); got != card {
		t.Fatalf("card changed: %#v", got)
	}
	if calls != 0 {
		t.Fatalf("expected no HTTP calls, got %d", calls)
	}
}

func TestEnrichKeepsCardOnFailure(t *testing.T) {
	card := domain.NewNewsCard("t", "https://example.com/a", nil)

	for name, client := range map[string]stubHTTPClient{
		"transport": {err: errors.New("boom")},
		"status":    {resp: stubHTTPResponse{body: []byte("nope"), statusCode: 404}},
		"no meta":   {resp: stubHTTPResponse{body: bytes.Repeat([]byte("a"), MaxHTMLBodyBytes+10), statusCode: 200}},
	} {
		t.Run(name, func(t *testing.T) {
			got := NewScraper(client, "", nil).Enrich(context.Background(), card)
			if got.Description != domain.DescriptionPlaceholder {
				t.Fatalf("Description = %q", got.Description)
			}
		})
	}
}

func TestEnrichSkipsPagesOverBodyLimit(t *testing.T) {
	page := []byte(pageWithOG)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(page)
		if r.URL.Path == "/huge" {
			_, _ = w.Write(bytes.Repeat([]byte(" "), MaxHTMLBodyBytes))
		}
	}))
	defer srv.Close()

	s := NewScraper(nil, "", nil)

	got := s.Enrich(context.Background(), domain.NewNewsCard("t", srv.URL+"/small", nil))
	if got.Description != "OG Desc" {
		t.Fatalf("small page Description = %q", got.Description)
	}

	got = s.Enrich(context.Background(), domain.NewNewsCard("t", srv.URL+"/huge", nil))
	if got.Description != domain.DescriptionPlaceholder {
		t.Fatalf("oversized page Description = %q", got.Description)
	}
}

func TestEnrichHonoursCancelledContext(t *testing.T) {
	calls := 0
	s := NewScraper(stubHTTPClient{resp: stubHTTPResponse{statusCode: 200}, calls: &calls}, "", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s.Enrich(ctx, domain.NewNewsCard("t", "https://example.com", nil))
	if calls != 0 {
		t.Fatalf("expected no HTTP calls after cancel, got %d", calls)
	}
}

func TestFirstNonEmpty(t *testing.T) {
	if got := firstNonEmpty("", " ", "foo", "bar"); got != "foo" {
		t.Fatalf("firstNonEmpty returned %q", got)
	}
}
