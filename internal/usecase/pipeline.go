package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"EthNews/internal/domain"
	"EthNews/internal/metrics"
	"EthNews/internal/ports"
)

const (
	defaultConcurrency = 4
	digestMaxItems     = 20
)

// PipelineDeps wires all driven adapters into the ingest pipeline.
type PipelineDeps struct {
	Reader      ports.FeedReader
	Normalizer  ports.Normalizer
	Repository  ports.ArticleRepository
	Summarizer  ports.Summarizer
	Notifier    ports.Notifier
	Logger      *slog.Logger
	Concurrency int
	MaxArticles int
}

// Pipeline implements the fetch, filter, dedupe and summarize workflow.
type Pipeline struct {
	reader      ports.FeedReader
	normalizer  ports.Normalizer
	repository  ports.ArticleRepository
	summarizer  ports.Summarizer
	notifier    ports.Notifier
	log         *slog.Logger
	concurrency int
	maxArticles int

	running sync.Mutex
	now     func() time.Time
}

// NewPipeline constructs the orchestration component. Summarizer and
// Notifier are optional.
func NewPipeline(deps PipelineDeps) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	concurrency := deps.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Pipeline{
		reader:      deps.Reader,
		normalizer:  deps.Normalizer,
		repository:  deps.Repository,
		summarizer:  deps.Summarizer,
		notifier:    deps.Notifier,
		log:         log.With("component", "pipeline"),
		concurrency: concurrency,
		maxArticles: deps.MaxArticles,
		now:         time.Now,
	}
}

// sourceRun is the private result of one source within a cycle.
type sourceRun struct {
	outcome domain.SourceOutcome
	added   []domain.ArticleRecord
}

// Ingest runs one cycle over sources. A failing source is reported in the
// result and does not stop the others; a store failure aborts the cycle with
// ErrStoreUnavailable. Concurrent calls return ErrIngestInProgress at once.
func (p *Pipeline) Ingest(ctx context.Context, sources []domain.Source) (domain.IngestResult, error) {
	if !p.running.TryLock() {
		return domain.IngestResult{}, domain.ErrIngestInProgress
	}
	defer p.running.Unlock()

	started := p.now()
	result := domain.IngestResult{RunID: uuid.NewString()}
	log := p.log.With("run_id", result.RunID)
	log.Info("ingest started", "sources", len(sources))

	runs := make([]sourceRun, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, src := range sources {
		g.Go(func() error {
			run, err := p.ingestSource(gctx, log, src)
			runs[i] = run
			return err
		})
	}
	err := g.Wait()

	var added []domain.ArticleRecord
	for _, run := range runs {
		result.Sources = append(result.Sources, run.outcome)
		result.Scanned += run.outcome.Scanned
		result.Added += run.outcome.Added
		result.Rejected += run.outcome.Rejected
		added = append(added, run.added...)
	}

	if err != nil {
		metrics.RecordRun("aborted", p.now().Sub(started).Seconds())
		log.Error("ingest aborted", "error", err, "added", result.Added)
		return result, err
	}

	p.evict(ctx, log)

	total, err := p.repository.Count(ctx)
	if err != nil {
		log.Warn("count articles", "error", err)
	} else {
		result.Total = total
		metrics.SetStored(total)
	}

	p.notify(ctx, log, added)

	status := "ok"
	if len(result.Failed()) > 0 {
		status = "partial"
	}
	metrics.RecordRun(status, p.now().Sub(started).Seconds())
	log.Info("ingest finished",
		"scanned", result.Scanned,
		"added", result.Added,
		"rejected", result.Rejected,
		"failed_sources", len(result.Failed()),
		"total", result.Total,
	)

	return result, nil
}

func (p *Pipeline) ingestSource(ctx context.Context, log *slog.Logger, src domain.Source) (sourceRun, error) {
	run := sourceRun{outcome: domain.SourceOutcome{Name: src.Name, URL: src.URL, Status: domain.SourceOK}}
	log = log.With("source", src.Name)

	feed, err := p.reader.Read(ctx, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return run, ctxErr
		}
		run.outcome.Status = domain.SourceFailed
		run.outcome.Reason = err.Error()
		metrics.RecordSourceFailure(src.Name)
		log.Warn("source failed", "error", err)
		return run, nil
	}

	var duplicates int
	defer func() {
		metrics.RecordEntries(src.Name, run.outcome.Added, duplicates, run.outcome.Rejected)
	}()

	for entry := range feed.Entries() {
		if err := ctx.Err(); err != nil {
			return run, err
		}
		run.outcome.Scanned++

		norm, err := p.normalizer.Normalize(entry, src.TopicScoped)
		if err != nil {
			run.outcome.Rejected++
			log.Debug("entry rejected", "title", entry.Title, "reason", err)
			continue
		}

		res, err := p.repository.Upsert(ctx, norm.Record)
		if err != nil {
			return run, fmt.Errorf("source %s: %w", src.Name, err)
		}
		if res != domain.Inserted {
			duplicates++
			continue
		}

		run.outcome.Added++
		summary, err := p.summarize(ctx, norm)
		if err != nil {
			return run, fmt.Errorf("source %s: %w", src.Name, err)
		}
		rec := norm.Record
		rec.Summary = summary
		run.added = append(run.added, rec)
	}

	log.Info("source ingested",
		"scanned", run.outcome.Scanned,
		"added", run.outcome.Added,
		"duplicates", duplicates,
		"rejected", run.outcome.Rejected,
	)
	return run, nil
}

// summarize runs only for freshly inserted records, so each link is
// summarized at most once.
func (p *Pipeline) summarize(ctx context.Context, norm domain.Normalized) (string, error) {
	if p.summarizer == nil {
		return "", nil
	}

	summary := strings.Join(p.summarizer.Summarize(ctx, norm.Record.Title, norm.Body), "\n")
	if summary == "" {
		return "", nil
	}
	if err := p.repository.BackfillSummary(ctx, norm.Record.Link, summary); err != nil {
		return "", err
	}
	return summary, nil
}

func (p *Pipeline) evict(ctx context.Context, log *slog.Logger) {
	if p.maxArticles <= 0 {
		return
	}
	removed, err := p.repository.EvictOldest(ctx, p.maxArticles)
	if err != nil {
		log.Warn("retention eviction failed", "error", err)
		return
	}
	if removed > 0 {
		metrics.RecordEviction(removed)
		log.Info("evicted old articles", "removed", removed, "ceiling", p.maxArticles)
	}
}

func (p *Pipeline) notify(ctx context.Context, log *slog.Logger, added []domain.ArticleRecord) {
	if p.notifier == nil || len(added) == 0 {
		return
	}
	if err := p.notifier.PublishDigest(ctx, BuildDigest(added)); err != nil {
		log.Warn("publish digest", "error", err)
	}
}

// BuildDigest renders newly added articles as a plain-text message.
func BuildDigest(records []domain.ArticleRecord) string {
	if len(records) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d new Ethereum articles\n", len(records))
	for i, rec := range records {
		if i == digestMaxItems {
			fmt.Fprintf(&b, "\n…and %d more", len(records)-digestMaxItems)
			break
		}
		fmt.Fprintf(&b, "\n• %s (%s)\n%s\n", rec.Title, rec.Source, rec.Link)
	}
	return b.String()
}

// IsSkip reports whether err means the cycle was skipped rather than failed.
func IsSkip(err error) bool {
	return errors.Is(err, domain.ErrIngestInProgress)
}
