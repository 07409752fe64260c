package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"EthNews/internal/domain"
	"EthNews/internal/ports"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var articleColumns = []string{"id", "title", "link", "source", "published_at", "summary"}

// SQLStore persists deduplicated articles in SQLite or Postgres.
// The canonical link is unique, so concurrent upserts of the same link
// resolve to exactly one Inserted result.
type SQLStore struct {
	db      *sql.DB
	driver  string
	builder sq.StatementBuilderType
	now     func() time.Time
}

var _ ports.ArticleRepository = (*SQLStore)(nil)

// Open connects to the database, applies pending migrations and returns a ready store.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	var (
		db  *sql.DB
		err error
		ph  sq.PlaceholderFormat
	)

	switch driver {
	case DriverSQLite, "":
		driver = DriverSQLite
		db, err = sql.Open("sqlite", dsn)
		ph = sq.Question
	case DriverPostgres:
		db, err = sql.Open("pgx", dsn)
		ph = sq.Dollar
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, unavailable("open db", err)
	}

	s := &SQLStore{
		db:      db,
		driver:  driver,
		builder: sq.StatementBuilder.PlaceholderFormat(ph),
		now:     time.Now,
	}

	if driver == DriverSQLite {
		// modernc sqlite serializes writers; a single connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, unavailable("configure sqlite", err)
			}
		}
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, unavailable("ping db", err)
	}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, unavailable("migrate", err)
	}

	return s, nil
}

// Close releases the underlying pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping db", err)
	}
	return nil
}

// Upsert inserts the record unless its link is already stored. An existing
// row is never modified.
func (s *SQLStore) Upsert(ctx context.Context, record domain.ArticleRecord) (domain.UpsertResult, error) {
	query, args, err := s.builder.Insert("articles").
		Columns("title", "link", "source", "published_at", "summary", "created_at", "title_lower", "source_lower").
		Values(record.Title, record.Link, record.Source, record.PublishedAt.Unix(), record.Summary, s.now().Unix(),
			strings.ToLower(record.Title), strings.ToLower(record.Source)).
		Suffix("ON CONFLICT (link) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build upsert: %w", err)
	}

	var id int64
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return domain.AlreadyExists, nil
	case err != nil:
		return 0, unavailable("upsert article", err)
	}
	return domain.Inserted, nil
}

// Query lists records newest first, keyed by (published_at, id) so that
// rows inserted between calls never shift an existing cursor.
func (s *SQLStore) Query(ctx context.Context, params domain.QueryParams) (domain.Page, error) {
	limit := params.PageSize()

	builder := s.builder.Select(articleColumns...).
		From("articles").
		OrderBy("published_at DESC", "id DESC").
		Limit(uint64(limit + 1))

	// Folded columns are lowered in Go; SQLite's LOWER only handles ASCII.
	if text := strings.TrimSpace(params.Text); text != "" {
		pattern := "%" + escapeLike(strings.ToLower(text)) + "%"
		builder = builder.Where(sq.Or{
			sq.Expr(`title_lower LIKE ? ESCAPE '\'`, pattern),
			sq.Expr(`source_lower LIKE ? ESCAPE '\'`, pattern),
		})
	}
	if c := params.Cursor; c != nil {
		builder = builder.Where(sq.Or{
			sq.Lt{"published_at": c.PublishedAt},
			sq.And{sq.Eq{"published_at": c.PublishedAt}, sq.Lt{"id": c.ID}},
		})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return domain.Page{}, fmt.Errorf("build query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.Page{}, unavailable("query articles", err)
	}

	items := make([]domain.ArticleRecord, 0, limit+1)
	for rows.Next() {
		var (
			rec domain.ArticleRecord
			pub int64
		)
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Link, &rec.Source, &pub, &rec.Summary); err != nil {
			_ = rows.Close()
			return domain.Page{}, fmt.Errorf("scan article: %w", err)
		}
		rec.PublishedAt = time.Unix(pub, 0).UTC()
		items = append(items, rec)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		_ = rows.Close()
		return domain.Page{}, unavailable("rows iteration", rowsErr)
	}
	if closeErr := rows.Close(); closeErr != nil {
		return domain.Page{}, fmt.Errorf("close rows: %w", closeErr)
	}

	page := domain.Page{Items: items}
	if len(items) > limit {
		page.Items = items[:limit]
		page.NextCursor = domain.CursorAfter(page.Items[limit-1])
	}
	return page, nil
}

// BackfillSummary sets the summary only while it is still empty, so the
// first writer wins and later calls are no-ops.
func (s *SQLStore) BackfillSummary(ctx context.Context, link, summary string) error {
	if strings.TrimSpace(summary) == "" {
		return nil
	}

	query, args, err := s.builder.Update("articles").
		Set("summary", summary).
		Where(sq.Eq{"link": link, "summary": ""}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build backfill: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return unavailable("backfill summary", err)
	}
	return nil
}

// EvictOldest deletes everything but the newest ceiling records. A
// non-positive ceiling disables eviction.
func (s *SQLStore) EvictOldest(ctx context.Context, ceiling int) (int64, error) {
	if ceiling <= 0 {
		return 0, nil
	}

	keep, keepArgs, err := sq.Select("id").
		From("articles").
		OrderBy("published_at DESC", "id DESC").
		Limit(uint64(ceiling)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build eviction: %w", err)
	}

	query, args, err := s.builder.Delete("articles").
		Where(sq.Expr("id NOT IN ("+keep+")", keepArgs...)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build eviction: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, unavailable("evict articles", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// Count returns the number of stored articles.
func (s *SQLStore) Count(ctx context.Context) (int64, error) {
	query, args, err := s.builder.Select("COUNT(*)").From("articles").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, unavailable("count articles", err)
	}
	return n, nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
