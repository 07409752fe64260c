package filter

import (
	"regexp"
	"strings"
	"unicode"
)

// Matcher tests text against a keyword set. ASCII keywords must stand as
// whole tokens ("eth" does not match "method"); other scripts match as
// substrings because particles and suffixes attach directly to the word.
type Matcher struct {
	bounded   *regexp.Regexp
	substring []string
}

// NewMatcher compiles the keyword set. Blank keywords are ignored.
func NewMatcher(keywords []string) *Matcher {
	m := &Matcher{}
	var alternatives []string
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if isASCIIWord(kw) {
			alternatives = append(alternatives, regexp.QuoteMeta(kw))
			continue
		}
		m.substring = append(m.substring, kw)
	}
	if len(alternatives) > 0 {
		m.bounded = regexp.MustCompile(`(?i)\b(?:` + strings.Join(alternatives, "|") + `)\b`)
	}
	return m
}

// Empty reports whether the matcher has no keywords at all.
func (m *Matcher) Empty() bool {
	return m == nil || (m.bounded == nil && len(m.substring) == 0)
}

// Matches reports whether any keyword occurs in text.
func (m *Matcher) Matches(text string) bool {
	return m.Count(text) > 0
}

// Count returns the number of keyword occurrences in text.
func (m *Matcher) Count(text string) int {
	if m.Empty() || text == "" {
		return 0
	}
	var n int
	if m.bounded != nil {
		n += len(m.bounded.FindAllStringIndex(text, -1))
	}
	if len(m.substring) > 0 {
		lower := strings.ToLower(text)
		for _, kw := range m.substring {
			n += strings.Count(lower, kw)
		}
	}
	return n
}

func isASCIIWord(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}
