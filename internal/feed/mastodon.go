package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

var (
	htmlTagRe    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s{3,}`)
)

// Client talks to one Mastodon instance with a fixed access token.
type Client struct {
	instanceURL string
	accessToken string
	visibility  string
	client      *http.Client
}

// NewClient creates a Mastodon client. visibility applies to every
// published status ("public", "unlisted", "private", or "direct").
func NewClient(instanceURL, accessToken, visibility string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(instanceURL) == "" {
		return nil, errors.New("mastodon: instance URL is required")
	}
	if accessToken == "" {
		return nil, errors.New("mastodon: access token is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		instanceURL: strings.TrimRight(instanceURL, "/"),
		accessToken: accessToken,
		visibility:  visibility,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

type mastodonStatus struct {
	ID          string          `json:"id"`
	Content     string          `json:"content"`
	URL         string          `json:"url"`
	CreatedAt   time.Time       `json:"created_at"`
	Account     mastodonAccount `json:"account"`
	InReplyToID string          `json:"in_reply_to_id,omitempty"`
}

type mastodonAccount struct {
	Username string `json:"username"`
}

// Publish submits text as a new status. The returned Entry is the durable,
// externally visible post. Rejections (HTTP 4xx) wrap ErrRejected and must
// not be retried; outages wrap ErrUnavailable and may be.
func (c *Client) Publish(ctx context.Context, text string) (Entry, error) {
	return c.postStatus(ctx, text, "")
}

// Reply submits text as a reply to an existing status.
func (c *Client) Reply(ctx context.Context, text, inReplyToID string) (Entry, error) {
	return c.postStatus(ctx, text, inReplyToID)
}

func (c *Client) postStatus(ctx context.Context, text, inReplyToID string) (Entry, error) {
	form := url.Values{}
	form.Set("status", text)
	form.Set("visibility", c.visibility)
	if inReplyToID != "" {
		form.Set("in_reply_to_id", inReplyToID)
	}

	endpoint := c.instanceURL + "/api/v1/statuses"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return Entry{}, fmt.Errorf("mastodon: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return Entry{}, fmt.Errorf("mastodon: post status: %v: %w", err, ErrUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Entry{}, statusError(resp.StatusCode)
	}

	var status mastodonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Entry{}, fmt.Errorf("mastodon: decode status: %v: %w", err, ErrUnavailable)
	}
	if status.ID == "" {
		return Entry{}, fmt.Errorf("mastodon: status response has no id: %w", ErrUnavailable)
	}

	return entryFromStatus(status), nil
}

// statusError classifies a non-2xx publish response. 4xx means the instance
// understood and refused the post (duplicate, rate limit, validation); 5xx
// is an outage.
func statusError(code int) error {
	if code >= 400 && code < 500 {
		return fmt.Errorf("mastodon: HTTP %d: %w", code, ErrRejected)
	}
	return fmt.Errorf("mastodon: HTTP %d: %w", code, ErrUnavailable)
}

// Search returns up to limit statuses matching keyword, most recent first.
// No matches is an empty result, not an error.
func (c *Client) Search(ctx context.Context, keyword string, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = 1
	}

	params := url.Values{}
	params.Set("q", keyword)
	params.Set("type", "statuses")
	params.Set("resolve", "false")
	params.Set("limit", strconv.Itoa(limit))

	endpoint := c.instanceURL + "/api/v2/search?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("mastodon: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mastodon: search: %v: %w", err, ErrSearchUnavailable)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mastodon: search: HTTP %d: %w", resp.StatusCode, ErrSearchUnavailable)
	}

	var result struct {
		Statuses []mastodonStatus `json:"statuses"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("mastodon: decode search: %v: %w", err, ErrSearchUnavailable)
	}

	entries := make([]Entry, 0, len(result.Statuses))
	for _, status := range result.Statuses {
		if status.ID == "" {
			continue
		}
		entries = append(entries, entryFromStatus(status))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].CreatedAt.After(entries[j].CreatedAt)
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func entryFromStatus(status mastodonStatus) Entry {
	return Entry{
		ID:        status.ID,
		Author:    status.Account.Username,
		Text:      stripHTML(status.Content),
		URL:       status.URL,
		CreatedAt: status.CreatedAt,
	}
}

func stripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(strings.Join(strings.Fields(s), " "))
}
