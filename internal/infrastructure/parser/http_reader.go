package parser

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"EthNews/internal/domain"
	"EthNews/internal/ports"
	"EthNews/internal/scanner"
)

const (
	defaultTimeout      = 8 * time.Second
	defaultMaxBodyBytes = 5 << 20
	defaultUserAgent    = "EthNews/1.0"
)

// ReaderOptions bounds every fetch performed by HTTPReader.
type ReaderOptions struct {
	Timeout      time.Duration
	UserAgent    string
	MaxBodyBytes int64
	Client       *http.Client
	Now          func() time.Time
}

// HTTPReader implements FeedReader by fetching sources over HTTP and handing
// the body to the source's registered parse strategy.
type HTTPReader struct {
	client    *http.Client
	registry  *scanner.Registry
	userAgent string
	maxBody   int64
	now       func() time.Time
	logger    *slog.Logger
}

var _ ports.FeedReader = (*HTTPReader)(nil)

// NewHTTPReader wires a parser registry with a bounded HTTP client.
func NewHTTPReader(reg *scanner.Registry, opts ReaderOptions, log *slog.Logger) *HTTPReader {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Client == nil {
		opts.Client = newHTTPClient(opts.Timeout)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &HTTPReader{
		client:    opts.Client,
		registry:  reg,
		userAgent: opts.UserAgent,
		maxBody:   opts.MaxBodyBytes,
		now:       opts.Now,
		logger:    log,
	}
}

// Read fetches and parses one source. Every failure is a *domain.FetchError
// scoped to that source.
func (r *HTTPReader) Read(ctx context.Context, source domain.Source) (*domain.Feed, error) {
	feed, err := r.read(ctx, source)
	if err != nil {
		return nil, &domain.FetchError{Source: sourceLabel(source), Err: err}
	}
	return feed, nil
}

func (r *HTTPReader) read(ctx context.Context, source domain.Source) (*domain.Feed, error) {
	if r.registry == nil {
		return nil, fmt.Errorf("parser registry is not configured")
	}
	strategy, err := r.registry.Resolve(source.Parser)
	if err != nil {
		return nil, err
	}

	fetchedAt := r.now().UTC()
	body, err := r.fetch(ctx, source.URL)
	if err != nil {
		return nil, err
	}
	r.debug("feed fetched", "source", sourceLabel(source), "bytes", len(body), "parser", strategy.Name())

	feed, err := strategy.Parse(scanner.Request{
		SourceName: source.Name,
		FeedURL:    source.URL,
		Body:       body,
		FetchedAt:  fetchedAt,
	})
	if err != nil {
		return nil, fmt.Errorf("%s parser: %w", strategy.Name(), err)
	}
	return feed, nil
}

func (r *HTTPReader) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8, */*;q=0.5")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > r.maxBody {
		return nil, fmt.Errorf("feed body exceeds %d bytes", r.maxBody)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("feed body is empty")
	}
	return body, nil
}

func newHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		DialContext: (&net.Dialer{
			Timeout:   timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   timeout,
		ResponseHeaderTimeout: timeout,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

func sourceLabel(source domain.Source) string {
	if source.Name != "" {
		return source.Name
	}
	return source.URL
}

func (r *HTTPReader) debug(msg string, args ...interface{}) {
	if r.logger != nil {
		r.logger.Debug(msg, args...)
	}
}
