// Package feed publishes posts to a Mastodon instance and searches its
// public timeline.
package feed

import (
	"errors"
	"time"
)

// Publish failure kinds. ErrRejected is permanent for the submitted post
// (duplicate content, rate limit, validation); retrying it would risk a
// double publish. ErrUnavailable is a transport or service outage and is
// safe to retry with backoff.
var (
	ErrRejected          = errors.New("publish rejected")
	ErrUnavailable       = errors.New("publish unavailable")
	ErrSearchUnavailable = errors.New("search unavailable")
)

// Entry is one published status on the feed.
type Entry struct {
	ID        string
	Author    string
	Text      string
	URL       string
	CreatedAt time.Time
}
