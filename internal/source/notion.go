package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	notionSourceName   = "notion"
	notionAPIBase      = "https://api.notion.com/v1"
	notionAPIVersion   = "2022-06-28"
	notionFetchTimeout = 30 * time.Second
)

// NotionSource fetches the block content of one Notion page as plain text.
type NotionSource struct {
	pageID   string
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewNotion creates a Notion source bound to one page. page may be a
// notion.so URL or a raw page ID, with or without dashes.
func NewNotion(page, apiKey string) (*NotionSource, error) {
	if strings.TrimSpace(page) == "" {
		return nil, errors.New("notion: page is required")
	}
	if apiKey == "" {
		return nil, errors.New("notion: api key is required")
	}
	return &NotionSource{
		pageID:   normalizePageID(page),
		apiKey:   apiKey,
		endpoint: notionAPIBase,
		client:   &http.Client{Timeout: notionFetchTimeout},
	}, nil
}

func (n *NotionSource) Name() string {
	return notionSourceName
}

// PageID returns the normalized page identifier this source is bound to.
func (n *NotionSource) PageID() string {
	return n.pageID
}

// Fetch retrieves every block of the page, following pagination cursors,
// and flattens the rich text into one plain-text document.
func (n *NotionSource) Fetch(ctx context.Context) (Document, error) {
	var blocks []notionBlock
	cursor := ""

	for {
		page, err := n.fetchBlockPage(ctx, cursor)
		if err != nil {
			return Document{}, err
		}
		blocks = append(blocks, page.Results...)
		if !page.HasMore || page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}

	text := textFromBlocks(blocks)
	if text == "" {
		return Document{}, unavailable("notion: page %s has no text content", n.pageID)
	}

	return Document{
		ID:    n.pageID,
		Title: firstHeading(blocks),
		Text:  text,
	}, nil
}

type notionBlockPage struct {
	Results    []notionBlock `json:"results"`
	HasMore    bool          `json:"has_more"`
	NextCursor string        `json:"next_cursor"`
}

type notionBlock struct {
	Type             string           `json:"type"`
	Paragraph        *notionRichBlock `json:"paragraph"`
	Heading1         *notionRichBlock `json:"heading_1"`
	Heading2         *notionRichBlock `json:"heading_2"`
	Heading3         *notionRichBlock `json:"heading_3"`
	BulletedListItem *notionRichBlock `json:"bulleted_list_item"`
	NumberedListItem *notionRichBlock `json:"numbered_list_item"`
	ToDo             *notionToDoBlock `json:"to_do"`
}

type notionRichBlock struct {
	RichText []notionRichText `json:"rich_text"`
}

type notionToDoBlock struct {
	RichText []notionRichText `json:"rich_text"`
	Checked  bool             `json:"checked"`
}

type notionRichText struct {
	PlainText string `json:"plain_text"`
}

func (n *NotionSource) fetchBlockPage(ctx context.Context, cursor string) (*notionBlockPage, error) {
	u := fmt.Sprintf("%s/blocks/%s/children", n.endpoint, n.pageID)
	if cursor != "" {
		u += "?start_cursor=" + url.QueryEscape(cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("notion: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+n.apiKey)
	req.Header.Set("Notion-Version", notionAPIVersion)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, unavailable("notion: fetch blocks: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, unavailable("notion: blocks for page %s: HTTP %d", n.pageID, resp.StatusCode)
	}

	var page notionBlockPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, unavailable("notion: decode blocks: %v", err)
	}
	return &page, nil
}

// textFromBlocks flattens supported block types into plain text, one block
// per line, with markdown-ish prefixes for headings, bullets, and to-dos.
func textFromBlocks(blocks []notionBlock) string {
	var lines []string
	for _, b := range blocks {
		line := blockLine(b)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func blockLine(b notionBlock) string {
	switch b.Type {
	case "paragraph":
		return plainText(b.Paragraph)
	case "heading_1":
		return prefixed("# ", plainText(b.Heading1))
	case "heading_2":
		return prefixed("## ", plainText(b.Heading2))
	case "heading_3":
		return prefixed("### ", plainText(b.Heading3))
	case "bulleted_list_item":
		return prefixed("• ", plainText(b.BulletedListItem))
	case "numbered_list_item":
		return prefixed("• ", plainText(b.NumberedListItem))
	case "to_do":
		if b.ToDo == nil {
			return ""
		}
		text := joinRichText(b.ToDo.RichText)
		if text == "" {
			return ""
		}
		box := "☐"
		if b.ToDo.Checked {
			box = "✓"
		}
		return box + " " + text
	default:
		return ""
	}
}

func plainText(rb *notionRichBlock) string {
	if rb == nil {
		return ""
	}
	return joinRichText(rb.RichText)
}

func joinRichText(rt []notionRichText) string {
	var sb strings.Builder
	for _, t := range rt {
		sb.WriteString(t.PlainText)
	}
	return strings.TrimSpace(sb.String())
}

func prefixed(prefix, text string) string {
	if text == "" {
		return ""
	}
	return prefix + text
}

// firstHeading returns the first heading_1 text, used as the document title.
func firstHeading(blocks []notionBlock) string {
	for _, b := range blocks {
		if b.Type == "heading_1" {
			return plainText(b.Heading1)
		}
	}
	return ""
}

// normalizePageID extracts a dashed UUID from a notion.so URL or a raw
// 32-hex ID. Anything else is returned unchanged.
func normalizePageID(page string) string {
	if strings.Contains(page, "notion.so") {
		last := page[strings.LastIndex(page, "/")+1:]
		last = strings.SplitN(last, "?", 2)[0]
		for _, part := range strings.Split(last, "-") {
			if isHex32(part) {
				return dashUUID(strings.ToLower(part))
			}
		}
		// URL slugs put the ID last; fall through to raw handling.
		page = last
	}

	raw := strings.ReplaceAll(page, "-", "")
	if isHex32(raw) {
		return dashUUID(strings.ToLower(raw))
	}
	return page
}

func isHex32(s string) bool {
	if len(s) != 32 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}

func dashUUID(hex32 string) string {
	return fmt.Sprintf("%s-%s-%s-%s-%s",
		hex32[:8], hex32[8:12], hex32[12:16], hex32[16:20], hex32[20:])
}
