package ports

import (
	"context"
	"time"

	"EthNews/internal/domain"
)

// FeedReader fetches one source and exposes its entries lazily.
type FeedReader interface {
	Read(ctx context.Context, source domain.Source) (*domain.Feed, error)
}

// Normalizer turns a raw entry into a storable record or rejects it.
type Normalizer interface {
	Normalize(entry domain.RawEntry, topicScoped bool) (domain.Normalized, error)
}

// ArticleRepository persists articles keyed by their canonical link.
type ArticleRepository interface {
	Upsert(ctx context.Context, record domain.ArticleRecord) (domain.UpsertResult, error)
	Query(ctx context.Context, params domain.QueryParams) (domain.Page, error)
	BackfillSummary(ctx context.Context, link, summary string) error
	EvictOldest(ctx context.Context, ceiling int) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// Summarizer derives a short synopsis of one to three lines. It never fails;
// implementations degrade to a local strategy instead.
type Summarizer interface {
	Summarize(ctx context.Context, title, body string) []string
}

// TextGenerator sends a bounded prompt to an external text-generation API.
type TextGenerator interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}

// Notifier streams digests of new articles to Telegram or other channels.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when ingest cycles execute.
type Scheduler interface {
	Start(ctx context.Context, job func(context.Context, time.Time)) error
	Stop(ctx context.Context) error
}
