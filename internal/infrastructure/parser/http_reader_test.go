package parser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"EthNews/internal/domain"
	"EthNews/internal/scanner"
)

func newTestReader(client *http.Client, opts ReaderOptions) *HTTPReader {
	opts.Client = client
	return NewHTTPReader(scanner.NewRegistry(NewGofeedParser(), NewLiteParser()), opts, nil)
}

func TestHTTPReaderReadsFeed(t *testing.T) {
	t.Parallel()

	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer server.Close()

	fixed := time.Date(2025, time.June, 10, 9, 0, 0, 0, time.UTC)
	reader := newTestReader(server.Client(), ReaderOptions{UserAgent: "test-agent", Now: func() time.Time { return fixed }})

	feed, err := reader.Read(context.Background(), domain.Source{Name: "daily", URL: server.URL, Parser: "lite"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if gotUA != "test-agent" {
		t.Fatalf("unexpected user agent %q", gotUA)
	}

	var count int
	for entry := range feed.Entries() {
		count++
		if !entry.FetchedAt.Equal(fixed) {
			t.Fatalf("fetch time not stamped: %v", entry.FetchedAt)
		}
	}
	if count != 3 {
		t.Fatalf("expected 3 entries, got %d", count)
	}
}

func TestHTTPReaderFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler http.HandlerFunc
		opts    ReaderOptions
		parser  string
		want    string
	}{
		{
			name:    "server error",
			handler: func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			want:    "500",
		},
		{
			name:    "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("definitely not a feed")) },
			want:    "parser",
		},
		{
			name:    "oversized body",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(strings.Repeat("x", 64))) },
			opts:    ReaderOptions{MaxBodyBytes: 16},
			want:    "exceeds",
		},
		{
			name:    "unknown parser",
			handler: func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(rssFixture)) },
			parser:  "missing",
			want:    "not registered",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(tc.handler)
			defer server.Close()

			reader := newTestReader(server.Client(), tc.opts)
			_, err := reader.Read(context.Background(), domain.Source{Name: "broken", URL: server.URL, Parser: tc.parser})
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, domain.ErrFetch) {
				t.Fatalf("expected fetch error, got %v", err)
			}
			var fetchErr *domain.FetchError
			if !errors.As(err, &fetchErr) || fetchErr.Source != "broken" {
				t.Fatalf("expected FetchError scoped to source, got %v", err)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q should mention %q", err, tc.want)
			}
		})
	}
}

func TestHTTPReaderTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := server.Client()
	client.Timeout = 50 * time.Millisecond
	reader := newTestReader(client, ReaderOptions{})

	start := time.Now()
	_, err := reader.Read(context.Background(), domain.Source{URL: server.URL})
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected fetch error, got %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout was not enforced")
	}
}
