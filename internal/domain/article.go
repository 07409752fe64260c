package domain

import "time"

// ArticleRecord is the canonical, deduplicated representation of a news item.
type ArticleRecord struct {
	ID          int64
	Title       string
	Link        string
	Source      string
	PublishedAt time.Time
	Summary     string
}

// UpsertResult reports what happened to a record handed to the store.
type UpsertResult int

const (
	Inserted UpsertResult = iota + 1
	AlreadyExists
)

func (r UpsertResult) String() string {
	switch r {
	case Inserted:
		return "inserted"
	case AlreadyExists:
		return "already_exists"
	default:
		return "unknown"
	}
}

// QueryParams narrows a newest-first listing of stored articles.
type QueryParams struct {
	Text   string
	Cursor *Cursor
	Limit  int
}

// Page is one slice of a newest-first listing. NextCursor is nil on the last page.
type Page struct {
	Items      []ArticleRecord
	NextCursor *Cursor
}

// SourceStatus tells whether a single feed source produced entries in a cycle.
type SourceStatus string

const (
	SourceOK     SourceStatus = "ok"
	SourceFailed SourceStatus = "failed"
)

// SourceOutcome is the per-source result of one ingest cycle.
type SourceOutcome struct {
	Name     string
	URL      string
	Status   SourceStatus
	Reason   string
	Scanned  int
	Added    int
	Rejected int
}

// IngestResult aggregates a whole ingest cycle.
type IngestResult struct {
	RunID    string
	Scanned  int
	Added    int
	Rejected int
	Total    int64
	Sources  []SourceOutcome
}

// Failed returns the outcomes of sources that could not be read.
func (r IngestResult) Failed() []SourceOutcome {
	var failed []SourceOutcome
	for _, s := range r.Sources {
		if s.Status == SourceFailed {
			failed = append(failed, s)
		}
	}
	return failed
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// PageSize clamps the requested limit into [1, MaxPageSize]. Zero or negative
// limits fall back to DefaultPageSize.
func (p QueryParams) PageSize() int {
	switch {
	case p.Limit <= 0:
		return DefaultPageSize
	case p.Limit > MaxPageSize:
		return MaxPageSize
	default:
		return p.Limit
	}
}
