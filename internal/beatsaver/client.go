package beatsaver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"beatmatcher/internal/config"
	"beatmatcher/internal/services"
)

// Catalog defines the remote operations the pipeline stages need.
type Catalog interface {
	SearchText(ctx context.Context, query string, page int) ([]MapDetail, error)
	Map(ctx context.Context, id string) (*MapDetail, error)
	DownloadTo(ctx context.Context, downloadURL string, w io.Writer) (int64, error)
}

// Client provides access to the BeatSaver API with client-side pacing.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

var _ Catalog = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a BeatSaver client from configuration.
func New(cfg config.BeatSaver, opts ...Option) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("beatsaver base url required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse beatsaver base url: %w", err)
	}
	perSecond := cfg.RequestsPerSecond
	if perSecond <= 0 {
		perSecond = 2
	}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		baseURL:    baseURL,
		userAgent:  strings.TrimSpace(cfg.UserAgent),
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(perSecond), 1),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SearchText queries the catalog's text search. Pages are zero-based and
// results arrive under docs; malformed records are dropped.
func (c *Client) SearchText(ctx context.Context, query string, page int) ([]MapDetail, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, services.Wrap(services.ErrPermanent, "search", "build query", "query must not be empty", nil)
	}
	if page < 0 {
		page = 0
	}
	endpoint, err := url.Parse(fmt.Sprintf("%s/search/text/%d", c.baseURL, page))
	if err != nil {
		return nil, services.Wrap(services.ErrPermanent, "search", "parse url", "invalid search url", err)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("sortOrder", "Relevance")
	endpoint.RawQuery = params.Encode()

	body, err := c.get(ctx, endpoint.String(), "search")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var payload searchResponse
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrPermanent, "search", "decode response", "malformed search payload", err)
	}

	docs := payload.Docs[:0]
	for _, doc := range payload.Docs {
		if doc.Valid() {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Map fetches one catalog record by identifier.
func (c *Client) Map(ctx context.Context, id string) (*MapDetail, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrPermanent, "download", "map detail", "map id must not be empty", nil)
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/maps/id/%s", c.baseURL, url.PathEscape(id)), "map detail")
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var payload MapDetail
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, services.Wrap(services.ErrPermanent, "download", "decode map detail", "malformed map payload", err)
	}
	if !payload.Valid() {
		return nil, services.Wrap(services.ErrPermanent, "download", "map detail", fmt.Sprintf("map %s record incomplete", id), nil)
	}
	return &payload, nil
}

// DownloadTo streams a beatmap archive to w and returns the byte count.
func (c *Client) DownloadTo(ctx context.Context, downloadURL string, w io.Writer) (int64, error) {
	downloadURL = strings.TrimSpace(downloadURL)
	if downloadURL == "" {
		return 0, services.Wrap(services.ErrPermanent, "download", "fetch archive", "download url must not be empty", nil)
	}

	body, err := c.get(ctx, downloadURL, "fetch archive")
	if err != nil {
		return 0, err
	}
	defer body.Close()

	n, err := io.Copy(w, body)
	if err != nil {
		return n, services.Wrap(services.ErrTransient, "download", "fetch archive", "archive stream interrupted", err)
	}
	return n, nil
}

func (c *Client) get(ctx context.Context, rawURL, operation string) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrPermanent, "catalog", operation, "build request", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, services.Wrap(services.ErrTransient, "catalog", operation,
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return resp.Body, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		_ = resp.Body.Close()
		return nil, services.Wrap(services.ErrRateLimited, "catalog", operation,
			fmt.Sprintf("catalog throttled (latency=%v)", latency), &services.RateLimitError{RetryAfter: retryAfter})
	case resp.StatusCode >= 500:
		_ = resp.Body.Close()
		return nil, services.Wrap(services.ErrTransient, "catalog", operation,
			fmt.Sprintf("catalog returned %d (latency=%v)", resp.StatusCode, latency), nil)
	default:
		_ = resp.Body.Close()
		return nil, services.Wrap(services.ErrPermanent, "catalog", operation,
			fmt.Sprintf("catalog returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}
}

func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	if when, err := http.ParseTime(value); err == nil {
		if until := time.Until(when); until > 0 {
			return until
		}
	}
	return 0
}
