package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"golang.org/x/time/rate"

	"EthNews/internal/ports"
)

const (
	defaultTimeout       = 12 * time.Second
	defaultMaxInputChars = 1500
	defaultLanguage      = "English"
)

// GenerativeOptions bounds calls to the text generator.
type GenerativeOptions struct {
	Timeout           time.Duration
	MaxInputChars     int
	Language          string
	RequestsPerMinute int
}

// Generative asks an external model for three lines and falls back to the
// extractive strategy on any failure, so it never returns an error.
type Generative struct {
	gen      ports.TextGenerator
	fallback *Extractive
	limiter  *rate.Limiter
	opts     GenerativeOptions
	log      *slog.Logger
}

var _ ports.Summarizer = (*Generative)(nil)

// NewGenerative wraps gen. A nil fallback gets a keyword-less extractive one.
func NewGenerative(gen ports.TextGenerator, fallback *Extractive, opts GenerativeOptions, log *slog.Logger) *Generative {
	if fallback == nil {
		fallback = NewExtractive(nil, ExtractiveOptions{})
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxInputChars <= 0 {
		opts.MaxInputChars = defaultMaxInputChars
	}
	if strings.TrimSpace(opts.Language) == "" {
		opts.Language = defaultLanguage
	}
	if log == nil {
		log = slog.Default()
	}

	limit := rate.Inf
	if opts.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(opts.RequestsPerMinute))
	}

	return &Generative{
		gen:      gen,
		fallback: fallback,
		limiter:  rate.NewLimiter(limit, 1),
		opts:     opts,
		log:      log.With("component", "summarizer", "provider", gen.Name()),
	}
}

// Summarize implements ports.Summarizer.
func (g *Generative) Summarize(ctx context.Context, title, body string) []string {
	ctx, cancel := context.WithTimeout(ctx, g.opts.Timeout)
	defer cancel()

	if err := g.limiter.Wait(ctx); err != nil {
		g.log.Debug("rate limited, using extractive summary", "error", err)
		return g.fallback.Lines(title, body)
	}

	out, err := g.gen.Generate(ctx, g.prompt(title, body))
	if err != nil {
		g.log.Warn("generation failed, using extractive summary", "error", err)
		return g.fallback.Lines(title, body)
	}

	lines := ParseLines(out, defaultMaxLines)
	if len(lines) == 0 {
		g.log.Warn("empty generation, using extractive summary")
		return g.fallback.Lines(title, body)
	}
	return lines
}

func (g *Generative) prompt(title, body string) string {
	title = collapse(title)
	budget := g.opts.MaxInputChars - utf8.RuneCountInString(title)
	if budget < 0 {
		budget = 0
	}
	body = truncateRunes(collapse(body), budget)

	return fmt.Sprintf(
		"Summarize the news article below in exactly 3 concise lines written in %s. "+
			"Reply with the three lines only, one per line, without numbering.\n\nTitle: %s\n\n%s",
		g.opts.Language, title, body,
	)
}

// ParseLines normalizes model output into at most limit lines, stripping
// bullets and enumeration prefixes.
func ParseLines(out string, limit int) []string {
	var lines []string
	for _, raw := range strings.Split(out, "\n") {
		line := stripBullet(collapse(raw))
		if line == "" {
			continue
		}
		lines = append(lines, truncateRunes(line, defaultMaxRunes))
		if len(lines) == limit {
			break
		}
	}
	return lines
}

func stripBullet(s string) string {
	s = strings.TrimLeft(s, "-*•·–> ")
	// "1." or "2)" enumerations
	i := 0
	for i < len(s) && unicode.IsDigit(rune(s[i])) {
		i++
	}
	if i > 0 && i < len(s) && (s[i] == '.' || s[i] == ')') && (i+1 == len(s) || s[i+1] == ' ') {
		s = s[i+1:]
	}
	return strings.TrimSpace(s)
}
