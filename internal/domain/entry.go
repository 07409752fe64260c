package domain

import (
	"iter"
	"sync/atomic"
	"time"
)

// RawEntry is one item as read from a feed, before normalization.
type RawEntry struct {
	Title           string
	Link            string
	Body            string
	Published       string
	PublishedParsed *time.Time
	FeedTitle       string
	FeedURL         string
	FetchedAt       time.Time
}

// Feed is a parsed feed whose entries can be consumed exactly once.
type Feed struct {
	Title string
	URL   string

	entries  iter.Seq[RawEntry]
	consumed atomic.Bool
}

// NewFeed wraps a lazy entry sequence.
func NewFeed(title, url string, entries iter.Seq[RawEntry]) *Feed {
	return &Feed{Title: title, URL: url, entries: entries}
}

// Entries yields the feed entries in document order. Only the first call
// yields anything; re-reading a feed means fetching it again.
func (f *Feed) Entries() iter.Seq[RawEntry] {
	return func(yield func(RawEntry) bool) {
		if f == nil || f.entries == nil || !f.consumed.CompareAndSwap(false, true) {
			return
		}
		f.entries(yield)
	}
}
