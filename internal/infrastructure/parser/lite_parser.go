package parser

import (
	"errors"
	"html"
	"strings"

	"EthNews/internal/domain"
	"EthNews/internal/scanner"
)

var errNoEntryMarkers = errors.New("document has no rss or atom markers")

// LiteParser slices feeds by element delimiters instead of building a tree.
// It tolerates markup that strict XML decoders refuse.
type LiteParser struct{}

var _ scanner.Parser = LiteParser{}

// NewLiteParser builds the delimiter-based strategy.
func NewLiteParser() LiteParser {
	return LiteParser{}
}

// Name identifies the strategy inside the registry.
func (LiteParser) Name() string {
	return "lite"
}

// Parse looks for <item> elements first and falls back to <entry>.
func (LiteParser) Parse(req scanner.Request) (*domain.Feed, error) {
	text := string(req.Body)

	element := "item"
	first := indexElement(text, element, 0)
	if first < 0 {
		element = "entry"
		first = indexElement(text, element, 0)
	}
	if first < 0 {
		if indexElement(text, "rss", 0) < 0 && indexElement(text, "feed", 0) < 0 && indexElement(text, "channel", 0) < 0 {
			return nil, errNoEntryMarkers
		}
		return domain.NewFeed(feedTitle(text), req.FeedURL, nil), nil
	}

	title := feedTitle(text[:first])
	entries := func(yield func(domain.RawEntry) bool) {
		for start := first; start >= 0; {
			bodyStart := start + len(element) + 1
			next := indexElement(text, element, bodyStart)
			end := len(text)
			if next >= 0 {
				end = next
			}
			seg := text[bodyStart:end]
			if closing := strings.Index(seg, "</"+element+">"); closing >= 0 {
				seg = seg[:closing]
			}

			entry := parseSegment(seg)
			entry.FeedTitle = title
			entry.FeedURL = req.FeedURL
			entry.FetchedAt = req.FetchedAt
			if !yield(entry) {
				return
			}
			start = next
		}
	}

	return domain.NewFeed(title, req.FeedURL, entries), nil
}

func feedTitle(head string) string {
	return textOf(tagContent(head, "title"))
}

func parseSegment(seg string) domain.RawEntry {
	var entry domain.RawEntry
	entry.Title = textOf(tagContent(seg, "title"))
	entry.Link = entryLink(seg)

	for _, name := range []string{"pubDate", "published", "updated", "dc:date"} {
		if v := textOf(tagContent(seg, name)); v != "" {
			entry.Published = v
			break
		}
	}

	for _, name := range []string{"description", "content:encoded", "summary", "content"} {
		if v := strings.TrimSpace(unwrapCDATA(tagContent(seg, name))); v != "" {
			entry.Body = html.UnescapeString(v)
			break
		}
	}

	return entry
}

// entryLink handles both RSS <link>text</link> and Atom <link href="..."/>.
func entryLink(seg string) string {
	if v := textOf(tagContent(seg, "link")); v != "" {
		return v
	}

	var fallback string
	for from := 0; ; {
		idx := indexElement(seg, "link", from)
		if idx < 0 {
			break
		}
		end := strings.IndexByte(seg[idx:], '>')
		if end < 0 {
			break
		}
		tag := seg[idx : idx+end]
		from = idx + end

		href := html.UnescapeString(attr(tag, "href"))
		if href == "" {
			continue
		}
		rel := attr(tag, "rel")
		if rel == "" || rel == "alternate" {
			return strings.TrimSpace(href)
		}
		if fallback == "" {
			fallback = strings.TrimSpace(href)
		}
	}
	return fallback
}

// indexElement finds "<name" followed by whitespace, '>' or '/', so that
// searching for "item" does not stop at "<itemCount>".
func indexElement(s, name string, from int) int {
	needle := "<" + name
	for from <= len(s) {
		idx := strings.Index(s[from:], needle)
		if idx < 0 {
			return -1
		}
		pos := from + idx
		after := pos + len(needle)
		if after >= len(s) {
			return -1
		}
		switch s[after] {
		case '>', '/', ' ', '\t', '\n', '\r':
			return pos
		}
		from = after
	}
	return -1
}

// tagContent returns the raw inner text of the first <name ...>...</name>.
func tagContent(s, name string) string {
	start := indexElement(s, name, 0)
	if start < 0 {
		return ""
	}
	open := strings.IndexByte(s[start:], '>')
	if open < 0 {
		return ""
	}
	if s[start+open-1] == '/' {
		return ""
	}
	inner := s[start+open+1:]
	closing := strings.Index(inner, "</"+name+">")
	if closing < 0 {
		return ""
	}
	return inner[:closing]
}

func attr(tag, name string) string {
	for from := 0; ; {
		idx := strings.Index(tag[from:], name+"=")
		if idx < 0 {
			return ""
		}
		pos := from + idx
		from = pos + len(name) + 1
		if pos > 0 && !isSpace(tag[pos-1]) {
			continue
		}
		if from >= len(tag) {
			return ""
		}
		quote := tag[from]
		if quote != '"' && quote != '\'' {
			continue
		}
		end := strings.IndexByte(tag[from+1:], quote)
		if end < 0 {
			return ""
		}
		return tag[from+1 : from+1+end]
	}
}

func textOf(raw string) string {
	return strings.TrimSpace(html.UnescapeString(unwrapCDATA(raw)))
}

func unwrapCDATA(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<![CDATA[") && strings.HasSuffix(s, "]]>") {
		return s[len("<![CDATA[") : len(s)-len("]]>")]
	}
	return s
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
