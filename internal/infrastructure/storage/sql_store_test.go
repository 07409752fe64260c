package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"EthNews/internal/domain"
)

func openSQLite(t *testing.T) *SQLStore {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "ethnews.db")
	s, err := Open(context.Background(), DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

var base = time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

func record(n int, pub time.Time) domain.ArticleRecord {
	return domain.ArticleRecord{
		Title:       fmt.Sprintf("Ethereum update %d", n),
		Link:        fmt.Sprintf("https://news.example/eth/%d", n),
		Source:      "Chain Daily",
		PublishedAt: pub,
	}
}

func mustUpsert(t *testing.T, s *SQLStore, rec domain.ArticleRecord) domain.UpsertResult {
	t.Helper()
	res, err := s.Upsert(context.Background(), rec)
	if err != nil {
		t.Fatalf("upsert %s: %v", rec.Link, err)
	}
	return res
}

func collectAll(t *testing.T, s *SQLStore, params domain.QueryParams) []domain.ArticleRecord {
	t.Helper()

	var all []domain.ArticleRecord
	for i := 0; i < 1000; i++ {
		page, err := s.Query(context.Background(), params)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		all = append(all, page.Items...)
		if page.NextCursor == nil {
			return all
		}
		params.Cursor = page.NextCursor
	}
	t.Fatalf("pagination did not terminate")
	return nil
}

func TestSQLiteStoreContract(t *testing.T) {
	t.Parallel()
	runStoreContract(t, openSQLite)
}

// runStoreContract exercises behaviour every backend has to share.
func runStoreContract(t *testing.T, open func(t *testing.T) *SQLStore) {
	t.Run("dedupe first insert wins", func(t *testing.T) {
		s := open(t)
		first := record(1, base)
		if got := mustUpsert(t, s, first); got != domain.Inserted {
			t.Fatalf("first upsert = %v", got)
		}

		second := first
		second.Title = "Rewritten headline"
		second.PublishedAt = base.Add(time.Hour)
		if got := mustUpsert(t, s, second); got != domain.AlreadyExists {
			t.Fatalf("second upsert = %v", got)
		}

		page, err := s.Query(context.Background(), domain.QueryParams{})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(page.Items) != 1 || page.Items[0].Title != first.Title || !page.Items[0].PublishedAt.Equal(base) {
			t.Fatalf("stored record changed: %+v", page.Items)
		}
	})

	t.Run("concurrent upserts of one link", func(t *testing.T) {
		s := open(t)
		rec := record(7, base)

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			inserted int
			errs     []error
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := s.Upsert(context.Background(), rec)
				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					errs = append(errs, err)
					return
				}
				if res == domain.Inserted {
					inserted++
				}
			}()
		}
		wg.Wait()

		if len(errs) > 0 {
			t.Fatalf("unexpected errors: %v", errs)
		}
		if inserted != 1 {
			t.Fatalf("expected exactly one insert, got %d", inserted)
		}
		if n, err := s.Count(context.Background()); err != nil || n != 1 {
			t.Fatalf("count = %d, %v", n, err)
		}
	})

	t.Run("newest first with ties broken by id", func(t *testing.T) {
		s := open(t)
		mustUpsert(t, s, record(1, base))
		mustUpsert(t, s, record(2, base.Add(time.Hour)))
		mustUpsert(t, s, record(3, base))
		mustUpsert(t, s, record(4, base.Add(-time.Hour)))

		got := collectAll(t, s, domain.QueryParams{Limit: 1})
		want := []int{2, 3, 1, 4}
		if len(got) != len(want) {
			t.Fatalf("expected %d records, got %d", len(want), len(got))
		}
		for i, n := range want {
			if got[i].Link != record(n, base).Link {
				t.Fatalf("position %d: got %s want record %d", i, got[i].Link, n)
			}
		}
		for i := 1; i < len(got); i++ {
			prev, cur := got[i-1], got[i]
			if cur.PublishedAt.After(prev.PublishedAt) ||
				(cur.PublishedAt.Equal(prev.PublishedAt) && cur.ID >= prev.ID) {
				t.Fatalf("order violated at %d: %+v then %+v", i, prev, cur)
			}
		}
	})

	t.Run("cursor stable under inserts", func(t *testing.T) {
		s := open(t)
		for i := 0; i < 10; i++ {
			mustUpsert(t, s, record(i, base.Add(time.Duration(i)*time.Minute)))
		}

		page, err := s.Query(context.Background(), domain.QueryParams{Limit: 4})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		seen := map[string]bool{}
		for _, it := range page.Items {
			seen[it.Link] = true
		}

		// Newer and older records arrive between page fetches.
		mustUpsert(t, s, record(100, base.Add(time.Hour)))
		mustUpsert(t, s, record(101, base.Add(-time.Hour)))

		rest := collectAll(t, s, domain.QueryParams{Limit: 4, Cursor: page.NextCursor})
		for _, it := range rest {
			if seen[it.Link] {
				t.Fatalf("record %s returned twice", it.Link)
			}
			if it.Link == record(100, base).Link {
				t.Fatalf("record newer than cursor leaked into later page")
			}
			seen[it.Link] = true
		}
		if len(seen) != 11 {
			t.Fatalf("expected 10 originals plus the older insert, got %d", len(seen))
		}
	})

	t.Run("backfill keeps first summary", func(t *testing.T) {
		s := open(t)
		rec := record(1, base)
		mustUpsert(t, s, rec)

		ctx := context.Background()
		if err := s.BackfillSummary(ctx, rec.Link, "A"); err != nil {
			t.Fatalf("backfill A: %v", err)
		}
		if err := s.BackfillSummary(ctx, rec.Link, "B"); err != nil {
			t.Fatalf("backfill B: %v", err)
		}
		if err := s.BackfillSummary(ctx, "https://news.example/missing", "C"); err != nil {
			t.Fatalf("backfill on missing link should be a no-op: %v", err)
		}

		page, err := s.Query(ctx, domain.QueryParams{})
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if page.Items[0].Summary != "A" {
			t.Fatalf("summary = %q, want A", page.Items[0].Summary)
		}
	})

	t.Run("retention keeps newest", func(t *testing.T) {
		s := open(t)
		for i := 0; i < 150; i++ {
			mustUpsert(t, s, record(i, base.Add(time.Duration(i)*time.Second)))
		}

		removed, err := s.EvictOldest(context.Background(), 100)
		if err != nil {
			t.Fatalf("evict: %v", err)
		}
		if removed != 50 {
			t.Fatalf("removed = %d, want 50", removed)
		}
		n, err := s.Count(context.Background())
		if err != nil || n != 100 {
			t.Fatalf("count = %d, %v", n, err)
		}

		all := collectAll(t, s, domain.QueryParams{Limit: 50})
		oldest := all[len(all)-1]
		if !oldest.PublishedAt.Equal(base.Add(50 * time.Second)) {
			t.Fatalf("oldest survivor published at %v", oldest.PublishedAt)
		}

		if removed, err := s.EvictOldest(context.Background(), 0); err != nil || removed != 0 {
			t.Fatalf("zero ceiling should be a no-op: %d, %v", removed, err)
		}
	})

	t.Run("text filter", func(t *testing.T) {
		s := open(t)
		mustUpsert(t, s, domain.ArticleRecord{Title: "Ethereum ETF inflows", Link: "https://a.example/1", Source: "Decrypt", PublishedAt: base})
		mustUpsert(t, s, domain.ArticleRecord{Title: "Staking yields 100% up", Link: "https://a.example/2", Source: "CoinDesk", PublishedAt: base})
		mustUpsert(t, s, domain.ArticleRecord{Title: "Rollup fees", Link: "https://a.example/3", Source: "coindesk", PublishedAt: base})
		mustUpsert(t, s, domain.ArticleRecord{Title: "ÉMISSION D'ÉTHER RECORD", Link: "https://a.example/4", Source: "Źródło Krypto", PublishedAt: base})

		cases := map[string]int{
			"etf":      1,
			"COINDESK": 2,
			"100%":     1,
			"%":        1,
			"_":        0,
			"  ":       4,
			"éther":    1,
			"ÉMISSION": 1,
			"źródło":   1,
		}
		for text, want := range cases {
			page, err := s.Query(context.Background(), domain.QueryParams{Text: text})
			if err != nil {
				t.Fatalf("query %q: %v", text, err)
			}
			if len(page.Items) != want {
				t.Fatalf("query %q returned %d items, want %d", text, len(page.Items), want)
			}
		}
	})

	t.Run("limit clamped", func(t *testing.T) {
		s := open(t)
		for i := 0; i < 60; i++ {
			mustUpsert(t, s, record(i, base.Add(time.Duration(i)*time.Second)))
		}

		cases := map[int]int{0: domain.DefaultPageSize, -3: domain.DefaultPageSize, 500: domain.MaxPageSize, 7: 7}
		for limit, want := range cases {
			page, err := s.Query(context.Background(), domain.QueryParams{Limit: limit})
			if err != nil {
				t.Fatalf("query limit %d: %v", limit, err)
			}
			if len(page.Items) != want || page.NextCursor == nil {
				t.Fatalf("limit %d: got %d items, cursor %v", limit, len(page.Items), page.NextCursor)
			}
		}
	})
}

func TestOpenUnknownDriver(t *testing.T) {
	t.Parallel()

	if _, err := Open(context.Background(), "mysql", "x"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	t.Parallel()

	s := openSQLite(t)
	_ = s.Close()

	_, err := s.Upsert(context.Background(), record(1, base))
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Fatalf("expected ping failure, got %v", err)
	}
}

func TestMigrationsAreIdempotent(t *testing.T) {
	t.Parallel()

	dsn := filepath.Join(t.TempDir(), "twice.db")
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), DriverSQLite, dsn)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		_ = s.Close()
	}
}
