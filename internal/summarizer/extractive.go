package summarizer

import (
	"context"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"EthNews/internal/filter"
	"EthNews/internal/ports"
)

const (
	defaultMinRunes    = 20
	defaultMaxRunes    = 220
	defaultMaxLines    = 3
	idealRunes         = 90
	keywordWeight      = 3.0
	signatureRunes     = 24
	titleFallbackRunes = 120
)

// ExtractiveOptions tunes sentence selection. Zero values pick defaults.
type ExtractiveOptions struct {
	MinRunes int
	MaxRunes int
	MaxLines int
}

// Extractive picks the most relevant sentences of the body. It needs no
// network and is the fallback of every other strategy.
type Extractive struct {
	matcher  *filter.Matcher
	minRunes int
	maxRunes int
	maxLines int
}

var _ ports.Summarizer = (*Extractive)(nil)

// NewExtractive scores sentences by the given keywords.
func NewExtractive(keywords []string, opts ExtractiveOptions) *Extractive {
	e := &Extractive{
		matcher:  filter.NewMatcher(keywords),
		minRunes: opts.MinRunes,
		maxRunes: opts.MaxRunes,
		maxLines: opts.MaxLines,
	}
	if e.minRunes <= 0 {
		e.minRunes = defaultMinRunes
	}
	if e.maxRunes <= e.minRunes {
		e.maxRunes = defaultMaxRunes
	}
	if e.maxLines <= 0 || e.maxLines > defaultMaxLines {
		e.maxLines = defaultMaxLines
	}
	return e
}

// Summarize implements ports.Summarizer.
func (e *Extractive) Summarize(_ context.Context, title, body string) []string {
	return e.Lines(title, body)
}

type candidate struct {
	text  string
	pos   int
	score float64
}

// Lines returns up to three sentences in their original order, or the
// truncated title when no sentence qualifies.
func (e *Extractive) Lines(title, body string) []string {
	var candidates []candidate
	for i, s := range splitSentences(body) {
		n := utf8.RuneCountInString(s)
		if n < e.minRunes || n > e.maxRunes {
			continue
		}
		candidates = append(candidates, candidate{
			text:  s,
			pos:   i,
			score: float64(e.matcher.Count(s))*keywordWeight + lengthBonus(n),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score > candidates[j].score
	})

	seen := make(map[string]struct{}, len(candidates))
	picked := make([]candidate, 0, e.maxLines)
	for _, c := range candidates {
		sig := signature(c.text)
		if _, dup := seen[sig]; dup {
			continue
		}
		seen[sig] = struct{}{}
		picked = append(picked, c)
		if len(picked) == e.maxLines {
			break
		}
	}

	if len(picked) == 0 {
		t := truncateRunes(collapse(title), titleFallbackRunes)
		if t == "" {
			return nil
		}
		return []string{t}
	}

	sort.Slice(picked, func(i, j int) bool { return picked[i].pos < picked[j].pos })
	lines := make([]string, len(picked))
	for i, c := range picked {
		lines[i] = c.text
	}
	return lines
}

// lengthBonus is 1 at idealRunes and decays linearly to 0.
func lengthBonus(n int) float64 {
	return math.Max(0, 1-math.Abs(float64(n-idealRunes))/float64(idealRunes))
}

func splitSentences(text string) []string {
	var (
		out []string
		cur strings.Builder
	)
	flush := func() {
		if s := collapse(cur.String()); s != "" {
			out = append(out, s)
		}
		cur.Reset()
	}

	for _, r := range text {
		switch r {
		case '\n', '\r':
			flush()
		case '.', '!', '?', '。', '！', '？':
			cur.WriteRune(r)
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return out
}

func signature(s string) string {
	return truncateRunes(strings.ToLower(s), signatureRunes)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n]))
}
