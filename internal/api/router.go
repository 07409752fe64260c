package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"EthNews/internal/domain"
)

const pubISOLayout = "2006-01-02 15:04:05 UTC"

// Catalog lists stored articles.
type Catalog interface {
	Query(ctx context.Context, params domain.QueryParams) (domain.Page, error)
}

// Ingester runs one ingest cycle on demand.
type Ingester interface {
	Ingest(ctx context.Context) (domain.IngestResult, error)
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Router binds the JSON endpoints to an echo instance.
type Router struct {
	e        *echo.Echo
	catalog  Catalog
	ingester Ingester
	health   Pinger
	log      *slog.Logger
}

func NewRouter(e *echo.Echo, catalog Catalog, ingester Ingester, health Pinger, log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}
	return &Router{e: e, catalog: catalog, ingester: ingester, health: health, log: log.With("component", "api")}
}

func (r *Router) Bind() {
	r.e.GET("/api/articles", r.listArticles)
	r.e.POST("/api/ingest", r.ingest)
	r.e.GET("/healthz", r.healthz)
	r.e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

type articleDTO struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Link    string `json:"link"`
	Source  string `json:"source"`
	PubTS   int64  `json:"pub_ts"`
	PubISO  string `json:"pub_iso"`
	Summary string `json:"summary"`
}

type articlesResponse struct {
	Articles   []articleDTO `json:"articles"`
	NextCursor string       `json:"next_cursor,omitempty"`
}

type sourceDTO struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Status   string `json:"status"`
	Reason   string `json:"reason,omitempty"`
	Scanned  int    `json:"scanned"`
	Added    int    `json:"added"`
	Rejected int    `json:"rejected"`
}

type ingestResponse struct {
	OK      bool        `json:"ok"`
	RunID   string      `json:"run_id"`
	Scanned int         `json:"scanned"`
	Added   int         `json:"added"`
	Total   int64       `json:"total"`
	Sources []sourceDTO `json:"sources"`
}

func (r *Router) listArticles(c echo.Context) error {
	cursor, err := domain.DecodeCursor(strings.TrimSpace(c.QueryParam("cursor")))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid cursor")
	}

	page, err := r.catalog.Query(c.Request().Context(), domain.QueryParams{
		Text:   strings.TrimSpace(c.QueryParam("q")),
		Cursor: cursor,
		Limit:  parseLimit(c.QueryParam("limit")),
	})
	if err != nil {
		return r.storeError(err)
	}

	resp := articlesResponse{Articles: make([]articleDTO, 0, len(page.Items))}
	for _, it := range page.Items {
		resp.Articles = append(resp.Articles, articleDTO{
			ID:      it.ID,
			Title:   it.Title,
			Link:    it.Link,
			Source:  it.Source,
			PubTS:   it.PublishedAt.Unix(),
			PubISO:  it.PublishedAt.UTC().Format(pubISOLayout),
			Summary: it.Summary,
		})
	}
	if resp.NextCursor, err = domain.EncodeCursor(page.NextCursor); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, resp)
}

// ingest finishes the cycle even if the client goes away mid-request.
func (r *Router) ingest(c echo.Context) error {
	res, err := r.ingester.Ingest(context.WithoutCancel(c.Request().Context()))
	switch {
	case errors.Is(err, domain.ErrIngestInProgress):
		return echo.NewHTTPError(http.StatusConflict, "ingest already running")
	case err != nil:
		return r.storeError(err)
	}

	resp := ingestResponse{
		OK:      true,
		RunID:   res.RunID,
		Scanned: res.Scanned,
		Added:   res.Added,
		Total:   res.Total,
		Sources: make([]sourceDTO, 0, len(res.Sources)),
	}
	for _, src := range res.Sources {
		resp.Sources = append(resp.Sources, sourceDTO{
			Name:     src.Name,
			URL:      src.URL,
			Status:   string(src.Status),
			Reason:   src.Reason,
			Scanned:  src.Scanned,
			Added:    src.Added,
			Rejected: src.Rejected,
		})
	}

	return c.JSON(http.StatusOK, resp)
}

func (r *Router) healthz(c echo.Context) error {
	if err := r.health.Ping(c.Request().Context()); err != nil {
		r.log.Warn("health check failed", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (r *Router) storeError(err error) error {
	if errors.Is(err, domain.ErrStoreUnavailable) {
		r.log.Error("store unavailable", "error", err)
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable")
	}
	return err
}

// parseLimit keeps missing or malformed limits at the default page size and
// clamps numeric ones into [1, MaxPageSize].
func parseLimit(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return domain.DefaultPageSize
	}
	return max(1, min(domain.MaxPageSize, n))
}

// IngestFunc adapts a plain function to Ingester.
type IngestFunc func(ctx context.Context) (domain.IngestResult, error)

func (f IngestFunc) Ingest(ctx context.Context) (domain.IngestResult, error) {
	return f(ctx)
}
