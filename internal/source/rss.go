package source

import (
	"context"
	"errors"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

const (
	rssSourceName   = "rss"
	rssFetchTimeout = 30 * time.Second
	rssUserAgent    = "Mozilla/5.0 (compatible; notodon/1.0; +https://github.com/avelinab/notodon)"
)

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s{3,}`)
)

// RSSSource treats the newest item of one RSS/Atom feed as the document.
type RSSSource struct {
	feedURL string
	client  *http.Client
}

// NewRSS creates an RSS source bound to one feed URL.
func NewRSS(feedURL string) (*RSSSource, error) {
	if strings.TrimSpace(feedURL) == "" {
		return nil, errors.New("rss: feed URL is required")
	}
	return &RSSSource{
		feedURL: feedURL,
		client: &http.Client{
			Timeout:   rssFetchTimeout,
			Transport: &rssTransport{base: http.DefaultTransport},
		},
	}, nil
}

func (rs *RSSSource) Name() string {
	return rssSourceName
}

// Fetch parses the feed and returns its most recent item.
func (rs *RSSSource) Fetch(ctx context.Context) (Document, error) {
	fp := gofeed.NewParser()
	fp.Client = rs.client

	feed, err := fp.ParseURLWithContext(rs.feedURL, ctx)
	if err != nil {
		return Document{}, unavailable("rss: fetch %s: %v", rs.feedURL, err)
	}
	if len(feed.Items) == 0 {
		return Document{}, unavailable("rss: feed %s has no items", rs.feedURL)
	}

	item := newestItem(feed.Items)
	text := itemText(item)
	if text == "" {
		return Document{}, unavailable("rss: item %s has no text content", itemID(item))
	}

	return Document{
		ID:    itemID(item),
		Title: item.Title,
		Text:  text,
	}, nil
}

// newestItem picks the item with the latest publication time, falling back
// to feed order when timestamps are missing.
func newestItem(items []*gofeed.Item) *gofeed.Item {
	newest := items[0]
	newestAt := itemPublishedTime(newest)
	for _, item := range items[1:] {
		if at := itemPublishedTime(item); at.After(newestAt) {
			newest = item
			newestAt = at
		}
	}
	return newest
}

func itemPublishedTime(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}
	return time.Time{}
}

func itemID(item *gofeed.Item) string {
	if item.GUID != "" {
		return item.GUID
	}
	return item.Link
}

func itemText(item *gofeed.Item) string {
	raw := item.Content
	if raw == "" {
		raw = item.Description
	}

	text := stripHTML(raw)

	if item.Title != "" && !strings.Contains(text, item.Title) {
		text = item.Title + "\n\n" + text
	}

	return strings.TrimSpace(text)
}

func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespaceRe.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// rssTransport injects a User-Agent header into every request.
type rssTransport struct {
	base http.RoundTripper
}

func (t *rssTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", rssUserAgent)
	return t.base.RoundTrip(req)
}
