package filter

import (
	"fmt"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"EthNews/internal/domain"
	"EthNews/internal/ports"
)

var rfc822Layouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04 -0700",
	time.RFC822Z,
	time.RFC822,
	"2 Jan 2006 15:04:05 -0700",
}

var isoLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Normalizer is the relevance filter: it cleans raw entries, decides whether
// they are in-domain and produces canonical records.
type Normalizer struct {
	matcher *Matcher
}

var _ ports.Normalizer = (*Normalizer)(nil)

// NewNormalizer builds a normalizer for the configured keyword set. With no
// keywords every entry is treated as relevant.
func NewNormalizer(keywords []string) *Normalizer {
	return &Normalizer{matcher: NewMatcher(keywords)}
}

// Matcher exposes the keyword matcher so the summarizer can share it.
func (n *Normalizer) Matcher() *Matcher {
	return n.matcher
}

// Normalize returns domain.ErrRejected for entries without a title or link,
// with a link that is not absolute http(s), or with no keyword match on a
// source that is not topic scoped. It reads no clock: missing dates fall back
// to the entry's fetch time.
func (n *Normalizer) Normalize(entry domain.RawEntry, topicScoped bool) (domain.Normalized, error) {
	title := CleanText(entry.Title)
	if title == "" {
		return domain.Normalized{}, domain.Reject("empty title")
	}

	rawLink := strings.TrimSpace(entry.Link)
	if rawLink == "" {
		return domain.Normalized{}, domain.Reject("empty link")
	}
	link, err := CanonicalLink(rawLink, entry.FeedURL)
	if err != nil {
		return domain.Normalized{}, domain.Reject(err.Error())
	}

	body := CleanText(entry.Body)
	if !topicScoped && !n.matcher.Empty() && !n.matcher.Matches(title+"\n"+body) {
		return domain.Normalized{}, domain.Reject("no keyword match")
	}

	return domain.Normalized{
		Record: domain.ArticleRecord{
			Title:       title,
			Link:        link,
			Source:      SourceLabel(entry.FeedTitle, link),
			PublishedAt: ParsePublished(entry),
		},
		Body: body,
	}, nil
}

// blockElements break words apart; inline elements do not.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "br": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figcaption": true, "figure": true,
	"footer": true, "h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "td": true, "th": true, "tr": true, "ul": true,
}

// CleanText strips markup, decodes HTML entities and collapses whitespace.
// Block elements and <br> separate words.
func CleanText(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	text := raw
	if strings.ContainsAny(raw, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
		if err == nil {
			doc.Find("script, style").Remove()
			var b strings.Builder
			for _, n := range doc.Nodes {
				writeText(&b, n)
			}
			text = b.String()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte(' ')
	}
}

// CanonicalLink resolves link against the feed URL, lower-cases scheme and
// host and drops the fragment.
func CanonicalLink(link, feedURL string) (string, error) {
	u, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid link: %w", err)
	}
	if !u.IsAbs() && feedURL != "" {
		base, baseErr := url.Parse(feedURL)
		if baseErr == nil {
			u = base.ResolveReference(u)
		}
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("link is not absolute http(s): %q", link)
	}
	if u.Host == "" {
		return "", fmt.Errorf("link has no host: %q", link)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	return u.String(), nil
}

// SourceLabel prefers the feed title and otherwise derives the label from the
// link host without a leading "www.".
func SourceLabel(feedTitle, link string) string {
	if label := CleanText(feedTitle); label != "" {
		return label
	}
	u, err := url.Parse(link)
	if err != nil {
		return "unknown"
	}
	host := strings.TrimPrefix(u.Hostname(), "www.")
	if host == "" {
		return "unknown"
	}
	return host
}

// ParsePublished tries the structured date, then RFC-822 layouts, then
// ISO-8601 layouts, and finally falls back to the fetch time. The result is
// UTC with second precision.
func ParsePublished(entry domain.RawEntry) time.Time {
	if entry.PublishedParsed != nil && !entry.PublishedParsed.IsZero() {
		return entry.PublishedParsed.UTC().Truncate(time.Second)
	}
	if t, ok := parseDate(entry.Published); ok {
		return t.UTC().Truncate(time.Second)
	}
	return entry.FetchedAt.UTC().Truncate(time.Second)
}

// usZones maps RFC-822 zone names that time.Parse would read as UTC.
var usZones = map[string]string{
	"EST": "-0500", "EDT": "-0400",
	"CST": "-0600", "CDT": "-0500",
	"MST": "-0700", "MDT": "-0600",
	"PST": "-0800", "PDT": "-0700",
}

func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	if i := strings.LastIndexByte(raw, ' '); i > 0 {
		if offset, ok := usZones[strings.ToUpper(raw[i+1:])]; ok {
			raw = raw[:i+1] + offset
		}
	}
	if t, err := mail.ParseDate(raw); err == nil {
		return t, true
	}
	for _, layout := range rfc822Layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
