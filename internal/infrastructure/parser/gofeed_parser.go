package parser

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"

	"EthNews/internal/domain"
	"EthNews/internal/scanner"
)

// GofeedParser handles RSS, Atom and JSON feeds through gofeed's universal parser.
type GofeedParser struct{}

var _ scanner.Parser = GofeedParser{}

// NewGofeedParser builds the default parse strategy.
func NewGofeedParser() GofeedParser {
	return GofeedParser{}
}

// Name identifies the strategy inside the registry.
func (GofeedParser) Name() string {
	return "gofeed"
}

// Parse decodes the body up front and converts items lazily as they are consumed.
func (GofeedParser) Parse(req scanner.Request) (*domain.Feed, error) {
	feed, err := gofeed.NewParser().Parse(bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	title := strings.TrimSpace(feed.Title)
	entries := func(yield func(domain.RawEntry) bool) {
		for _, item := range feed.Items {
			if item == nil {
				continue
			}
			if !yield(toRawEntry(item, title, req)) {
				return
			}
		}
	}

	return domain.NewFeed(title, req.FeedURL, entries), nil
}

func toRawEntry(item *gofeed.Item, feedTitle string, req scanner.Request) domain.RawEntry {
	link := item.Link
	if link == "" && len(item.Links) > 0 {
		link = item.Links[0]
	}

	body := item.Description
	if strings.TrimSpace(body) == "" {
		body = item.Content
	}

	published := item.Published
	parsed := item.PublishedParsed
	if published == "" {
		published = item.Updated
	}
	if parsed == nil {
		parsed = item.UpdatedParsed
	}

	return domain.RawEntry{
		Title:           item.Title,
		Link:            link,
		Body:            body,
		Published:       published,
		PublishedParsed: parsed,
		FeedTitle:       feedTitle,
		FeedURL:         req.FeedURL,
		FetchedAt:       req.FetchedAt,
	}
}
