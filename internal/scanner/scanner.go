package scanner

import (
	"fmt"
	"time"

	"EthNews/internal/domain"
)

// DefaultParser is used when a source does not name a strategy.
const DefaultParser = "gofeed"

// Request carries a fetched feed body to a parse strategy.
type Request struct {
	SourceName string
	FeedURL    string
	Body       []byte
	FetchedAt  time.Time
}

// Parser captures a single feed parsing strategy (gofeed, lite, etc.).
type Parser interface {
	Name() string
	Parse(req Request) (*domain.Feed, error)
}

// Registry keeps a mapping from parser names to their implementations.
type Registry struct {
	parsers map[string]Parser
}

// NewRegistry builds a registry holding the given parsers.
func NewRegistry(parsers ...Parser) *Registry {
	r := &Registry{parsers: map[string]Parser{}}
	for _, p := range parsers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces a parser implementation.
func (r *Registry) Register(parser Parser) {
	if r.parsers == nil {
		r.parsers = map[string]Parser{}
	}
	r.parsers[parser.Name()] = parser
}

// Resolve returns a parser by name, falling back to DefaultParser for an
// empty name, or an error if it is absent.
func (r *Registry) Resolve(name string) (Parser, error) {
	if name == "" {
		name = DefaultParser
	}
	if parser, ok := r.parsers[name]; ok {
		return parser, nil
	}
	return nil, fmt.Errorf("parser %s is not registered", name)
}
