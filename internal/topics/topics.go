// Package topics cycles through a fixed list of post angles so consecutive
// runs do not generate near-identical posts.
package topics

import (
	"context"
	"fmt"
	"strconv"
)

const cursorKey = "topic_cursor"

// DefaultTopics is used when the config does not provide its own list.
var DefaultTopics = []string{
	"Stealth startups, constant pivots",
	"AI-powered everything",
	"LLM wrappers, AGI takes",
	"Prompt engineering flex",
	"Move fast philosophy",
	"Kubernetes for 5 users",
	"Rust rewrites for vibes",
	"Dark mode discourse",
	"Cold plunges, biohacking",
	"Longevity startups",
	"Founders are built different",
	"This could be a unicorn",
}

// State persists the cycle position between runs.
type State interface {
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
}

// Cycler walks a topic list in order, persisting its cursor.
type Cycler struct {
	topics []string
	state  State
}

// New creates a cycler. An empty topics list falls back to DefaultTopics.
func New(topics []string, state State) *Cycler {
	if len(topics) == 0 {
		topics = DefaultTopics
	}
	return &Cycler{topics: topics, state: state}
}

// Next returns the current topic and advances the persisted cursor.
func (c *Cycler) Next(ctx context.Context) (string, error) {
	idx, err := c.cursor(ctx)
	if err != nil {
		return "", err
	}

	topic := c.topics[idx]
	next := (idx + 1) % len(c.topics)
	if err := c.state.SetMeta(ctx, cursorKey, strconv.Itoa(next)); err != nil {
		return "", fmt.Errorf("save topic cursor: %w", err)
	}
	return topic, nil
}

// Current returns the current topic without advancing.
func (c *Cycler) Current(ctx context.Context) (string, error) {
	idx, err := c.cursor(ctx)
	if err != nil {
		return "", err
	}
	return c.topics[idx], nil
}

func (c *Cycler) cursor(ctx context.Context) (int, error) {
	value, err := c.state.GetMeta(ctx, cursorKey)
	if err != nil {
		return 0, fmt.Errorf("load topic cursor: %w", err)
	}
	if value == "" {
		return 0, nil
	}
	idx, err := strconv.Atoi(value)
	if err != nil || idx < 0 {
		return 0, nil
	}
	// The list may have shrunk since the cursor was saved.
	return idx % len(c.topics), nil
}
