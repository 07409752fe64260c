package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"EthNews/internal/domain"
	"EthNews/internal/logging"
	"EthNews/internal/server"
)

type stubCatalog struct {
	page   domain.Page
	err    error
	params domain.QueryParams
}

func (s *stubCatalog) Query(_ context.Context, params domain.QueryParams) (domain.Page, error) {
	s.params = params
	return s.page, s.err
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(cat Catalog, ing Ingester, ping Pinger) http.Handler {
	srv := server.New(server.Config{Port: "0", CorsOrigins: []string{"*"}}, logging.Discard())
	NewRouter(srv.Echo, cat, ing, ping, logging.Discard()).Bind()
	return srv.Echo
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestListArticles(t *testing.T) {
	t.Parallel()

	pub := time.Date(2025, time.June, 10, 8, 30, 0, 0, time.UTC)
	cat := &stubCatalog{page: domain.Page{
		Items:      []domain.ArticleRecord{{ID: 7, Title: "Ethereum", Link: "https://n.example/7", Source: "Decrypt", PublishedAt: pub, Summary: "a\nb"}},
		NextCursor: &domain.Cursor{PublishedAt: pub.Unix(), ID: 7},
	}}
	h := newTestServer(cat, nil, stubPinger{})

	rec := do(t, h, http.MethodGet, "/api/articles?q=+eth+&limit=abc")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body.String())
	}
	if cat.params.Text != "eth" || cat.params.Limit != domain.DefaultPageSize || cat.params.Cursor != nil {
		t.Fatalf("unexpected params %+v", cat.params)
	}

	var body struct {
		Articles []map[string]any `json:"articles"`
		Next     string           `json:"next_cursor"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Articles) != 1 || body.Articles[0]["pub_iso"] != "2025-06-10 08:30:00 UTC" || body.Articles[0]["pub_ts"] != float64(pub.Unix()) {
		t.Fatalf("unexpected articles %+v", body.Articles)
	}

	next, err := domain.DecodeCursor(body.Next)
	if err != nil || next.ID != 7 {
		t.Fatalf("next cursor did not round trip: %v %+v", err, next)
	}

	rec = do(t, h, http.MethodGet, "/api/articles?limit=500&cursor="+body.Next)
	if rec.Code != http.StatusOK || cat.params.Limit != domain.MaxPageSize || cat.params.Cursor == nil || cat.params.Cursor.ID != 7 {
		t.Fatalf("cursor request: code %d params %+v", rec.Code, cat.params)
	}

	do(t, h, http.MethodGet, "/api/articles?limit=0")
	if cat.params.Limit != 1 {
		t.Fatalf("limit 0 should clamp to 1, got %d", cat.params.Limit)
	}
}

func TestListArticlesEmptyAndErrors(t *testing.T) {
	t.Parallel()

	h := newTestServer(&stubCatalog{}, nil, stubPinger{})
	rec := do(t, h, http.MethodGet, "/api/articles")
	if rec.Code != http.StatusOK || rec.Body.String() != "{\"articles\":[]}\n" {
		t.Fatalf("empty listing: %d %q", rec.Code, rec.Body.String())
	}

	if rec := do(t, h, http.MethodGet, "/api/articles?cursor=!!"); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad cursor status %d", rec.Code)
	}

	h = newTestServer(&stubCatalog{err: domain.ErrStoreUnavailable}, nil, stubPinger{})
	if rec := do(t, h, http.MethodGet, "/api/articles"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("store failure status %d", rec.Code)
	}
}

func TestIngestEndpoint(t *testing.T) {
	t.Parallel()

	ok := IngestFunc(func(context.Context) (domain.IngestResult, error) {
		return domain.IngestResult{RunID: "run-1", Scanned: 5, Added: 2, Total: 40, Sources: []domain.SourceOutcome{
			{Name: "Decrypt", URL: "https://decrypt.example/feed", Status: domain.SourceOK, Scanned: 5, Added: 2, Rejected: 1},
			{Name: "Down", URL: "https://down.example/feed", Status: domain.SourceFailed, Reason: "status 503"},
		}}, nil
	})
	rec := do(t, newTestServer(&stubCatalog{}, ok, stubPinger{}), http.MethodPost, "/api/ingest")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body ingestResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.OK || body.RunID != "run-1" || body.Added != 2 || body.Total != 40 {
		t.Fatalf("unexpected body %+v", body)
	}
	if len(body.Sources) != 2 || body.Sources[0].Rejected != 1 || body.Sources[1].Status != "failed" || body.Sources[1].Reason != "status 503" {
		t.Fatalf("unexpected sources %+v", body.Sources)
	}
	raw := rec.Body.String()
	for _, key := range []string{`"name":"Decrypt"`, `"url":`, `"status":"ok"`, `"scanned":5`, `"rejected":1`, `"reason":"status 503"`} {
		if !strings.Contains(raw, key) {
			t.Fatalf("body %s missing %s", raw, key)
		}
	}
	for _, key := range []string{`"Name"`, `"URL"`, `"Rejected"`} {
		if strings.Contains(raw, key) {
			t.Fatalf("body %s has Go field name %s", raw, key)
		}
	}

	busy := IngestFunc(func(context.Context) (domain.IngestResult, error) {
		return domain.IngestResult{}, domain.ErrIngestInProgress
	})
	if rec := do(t, newTestServer(&stubCatalog{}, busy, stubPinger{}), http.MethodPost, "/api/ingest"); rec.Code != http.StatusConflict {
		t.Fatalf("busy status %d", rec.Code)
	}
}

func TestIngestOutlivesClientDisconnect(t *testing.T) {
	t.Parallel()

	var ingestErr error
	ing := IngestFunc(func(ctx context.Context) (domain.IngestResult, error) {
		ingestErr = ctx.Err()
		return domain.IngestResult{RunID: "run-2"}, ingestErr
	})
	h := newTestServer(&stubCatalog{}, ing, stubPinger{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/ingest", nil).WithContext(ctx))

	if ingestErr != nil {
		t.Fatalf("ingest saw cancelled context: %v", ingestErr)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	if rec := do(t, newTestServer(&stubCatalog{}, nil, stubPinger{}), http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
		t.Fatalf("healthy status %d", rec.Code)
	}
	down := stubPinger{err: errors.New("db gone")}
	if rec := do(t, newTestServer(&stubCatalog{}, nil, down), http.MethodGet, "/healthz"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("unhealthy status %d", rec.Code)
	}
	if rec := do(t, newTestServer(&stubCatalog{}, nil, stubPinger{}), http.MethodGet, "/metrics"); rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
}
