// Package scryfall fetches card printings from the Scryfall search API.
package scryfall

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/paramirez/deckzter-seed/internal/card"
	apperrors "github.com/paramirez/deckzter-seed/pkg/errors"
	"github.com/paramirez/deckzter-seed/pkg/httpclient"
	"github.com/paramirez/deckzter-seed/pkg/tracing"
)

const (
	// DefaultBaseURL is the public Scryfall API.
	DefaultBaseURL = "https://api.scryfall.com"

	serviceName = "scryfall"

	// Scryfall asks clients to stay under 10 requests per second.
	defaultRequestInterval = 100 * time.Millisecond
	maxPageBytes           = 32 << 20
)

// Doer executes HTTP requests. *httpclient.CircuitBreakerClient and
// *httpclient.Client both satisfy it.
type Doer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// Config holds client settings.
type Config struct {
	BaseURL         string
	RequestInterval time.Duration
}

// Client is a rate limited Scryfall search client.
type Client struct {
	http    Doer
	limiter *rate.Limiter
	baseURL string
	cache   PageCache
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewClient creates a Scryfall client. cache may be nil.
func NewClient(doer Doer, cfg Config, cache PageCache, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.RequestInterval <= 0 {
		cfg.RequestInterval = defaultRequestInterval
	}
	return &Client{
		http:    doer,
		limiter: rate.NewLimiter(rate.Every(cfg.RequestInterval), 1),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		cache:   cache,
		logger:  logger,
		tracer:  tracing.Tracer("scryfall"),
	}
}

// BuildQuery returns the search query importing every paper printing of a
// set, extras included.
func BuildQuery(setCode string) string {
	return "e:" + strings.ToLower(strings.TrimSpace(setCode)) + " include:extras game:paper"
}

// Search lazily yields every printing matching query, following next_page
// links until the result set is exhausted. Each call to the returned
// sequence starts again from the first page. A search with no matches
// yields nothing. Any other failure is yielded once and ends the sequence.
func (c *Client) Search(ctx context.Context, query string) iter.Seq2[card.Record, error] {
	return func(yield func(card.Record, error) bool) {
		next := c.searchURL(query)
		for page := 1; next != ""; page++ {
			p, err := c.fetchPage(ctx, next)
			if err != nil {
				if page == 1 && IsNotFound(err) {
					c.logger.InfoContext(ctx, "scryfall search matched no cards", slog.String("query", query))
					return
				}
				yield(card.Record{}, fmt.Errorf("fetch page %d of %q: %w", page, query, err))
				return
			}

			c.logger.DebugContext(ctx, "scryfall page fetched",
				slog.String("query", query),
				slog.Int("page", page),
				slog.Int("cards", len(p.Data)),
				slog.Int("total_cards", p.TotalCards),
			)

			for _, rec := range p.Data {
				if !yield(rec, nil) {
					return
				}
			}

			if !p.HasMore {
				return
			}
			next = p.NextPage
		}
	}
}

// FetchAll collects every record Search yields.
func (c *Client) FetchAll(ctx context.Context, query string) ([]card.Record, error) {
	var records []card.Record
	for rec, err := range c.Search(ctx, query) {
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Client) searchURL(query string) string {
	params := url.Values{}
	params.Set("q", query)
	params.Set("unique", "prints")
	params.Set("order", "released")
	params.Set("include_extras", "true")
	return c.baseURL + "/cards/search?" + params.Encode()
}

func (c *Client) fetchPage(ctx context.Context, pageURL string) (*searchPage, error) {
	ctx, span := c.tracer.Start(ctx, "scryfall.search_page",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("scryfall.url", pageURL)),
	)
	defer span.End()

	body, cached := c.cachedPage(ctx, pageURL)
	if !cached {
		var err error
		body, err = c.get(ctx, pageURL)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}
	span.SetAttributes(attribute.Bool("scryfall.cached", cached))

	var p searchPage
	if err := json.Unmarshal(body, &p); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode page")
		return nil, fmt.Errorf("decode search page: %w", err)
	}

	if cached {
		pagesFetched.WithLabelValues("cache").Inc()
	} else {
		pagesFetched.WithLabelValues("api").Inc()
		c.storePage(ctx, pageURL, body)
	}
	return &p, nil
}

func (c *Client) get(ctx context.Context, pageURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		requestDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		var respErr *httpclient.ResponseError
		switch {
		case errors.As(err, &respErr):
			return nil, decodeAPIError(respErr.StatusCode, respErr.Body)
		case errors.Is(err, httpclient.ErrCircuitOpen):
			return nil, fmt.Errorf("%w: %s: %w", apperrors.ErrServiceUnavail, serviceName, err)
		default:
			return nil, fmt.Errorf("%s request: %w", serviceName, err)
		}
	}

	if resp.StatusCode != http.StatusOK {
		requestDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		err := httpclient.ReadResponseError(resp, serviceName)
		var respErr *httpclient.ResponseError
		if errors.As(err, &respErr) {
			return nil, decodeAPIError(respErr.StatusCode, respErr.Body)
		}
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		requestDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		return nil, fmt.Errorf("read search page: %w", err)
	}
	requestDuration.WithLabelValues("ok").Observe(time.Since(start).Seconds())
	return body, nil
}

func (c *Client) cachedPage(ctx context.Context, pageURL string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	body, ok, err := c.cache.Get(ctx, pageURL)
	if err != nil {
		c.logger.WarnContext(ctx, "page cache read failed", slog.String("error", err.Error()))
		return nil, false
	}
	return body, ok
}

func (c *Client) storePage(ctx context.Context, pageURL string, body []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, pageURL, body); err != nil {
		c.logger.WarnContext(ctx, "page cache write failed", slog.String("error", err.Error()))
	}
}
