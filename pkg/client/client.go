// Package client provides the compliance fetch pipeline for upstream ESI
// calls: global lockdown gate, shared error budget gate, tiered backoff,
// cache-aware dispatch, and error classification. Every outbound request
// in the system goes through this path.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/evetrade/esi-governor/pkg/backoff"
	"github.com/evetrade/esi-governor/pkg/budget"
	"github.com/evetrade/esi-governor/pkg/cache"
	"github.com/evetrade/esi-governor/pkg/lockdown"
)

// HardStopStatusCode is the upstream's strongest rejection signal. A
// response with this status triggers the global lockdown.
const HardStopStatusCode = 420

// HeaderPages carries the total page count on paginated endpoints.
const HeaderPages = "X-Pages"

// Prometheus metrics for pipeline operations.
var (
	esiRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "esi_requests_total",
		Help: "Total ESI requests by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	esiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "esi_request_duration_seconds",
		Help:    "ESI request duration in seconds by endpoint",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	esiBudgetRejectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "esi_budget_rejections_total",
		Help: "Total requests rejected because the error budget was red",
	})
)

// Config holds the pipeline configuration.
type Config struct {
	// Redis client for budget, lockdown, and cache state.
	Redis *redis.Client

	// BaseURL of the upstream API.
	BaseURL string

	// UserAgent header (REQUIRED by ESI).
	// Format: "AppName/Version (contact@example.com)"
	UserAgent string

	// RequestsPerSecond paces dispatches locally, in front of the shared
	// budget gates. Zero disables pacing.
	RequestsPerSecond float64

	// Timeout for a single HTTP request.
	Timeout time.Duration

	// Backoff delay ranges per budget status.
	Backoff backoff.Policy
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(redisClient *redis.Client, userAgent string) Config {
	return Config{
		Redis:             redisClient,
		BaseURL:           "https://esi.evetech.net/latest",
		UserAgent:         userAgent,
		RequestsPerSecond: 10,
		Timeout:           30 * time.Second,
		Backoff:           backoff.DefaultPolicy(),
	}
}

// FetchOptions controls a single fetch.
type FetchOptions struct {
	// Token is an opaque bearer credential for authenticated endpoints.
	// Empty for public endpoints.
	Token string

	// UseCache opts the request into the shared response cache.
	UseCache bool
}

// Client executes upstream requests through the compliance pipeline.
type Client struct {
	httpClient *http.Client
	budget     *budget.Tracker
	guard      *lockdown.Guard
	cache      *cache.Store
	policy     backoff.Policy
	limiter    *rate.Limiter
	config     Config
	logger     zerolog.Logger
}

// New creates a pipeline client. The Redis client is owned by the process
// entry point and injected here; the pipeline holds no authoritative
// state of its own.
func New(cfg Config) (*Client, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	logger := log.With().Str("component", "esi-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		budget:  budget.NewTracker(cfg.Redis, logger),
		guard:   lockdown.NewGuard(cfg.Redis, logger),
		cache:   cache.NewStore(cfg.Redis),
		policy:  cfg.Backoff,
		limiter: limiter,
		config:  cfg,
		logger:  logger,
	}, nil
}

// Fetch executes a GET request against the upstream with full compliance
// gating and returns the parsed response body. The pipeline stages are
// strictly ordered: lockdown check, budget gate, backoff, cache lookup,
// dispatch, budget update, hard-stop detection, error classification,
// cache store.
func (c *Client) Fetch(ctx context.Context, endpoint string, params url.Values, opts FetchOptions) (json.RawMessage, error) {
	body, _, err := c.do(ctx, endpoint, params, opts)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// FetchPage fetches a single page of a paginated endpoint and returns its
// records along with the total page count reported by the upstream
// (default 1 when the header is absent). Paginated fetches bypass the
// cache: the snapshot is assembled fresh each time.
func (c *Client) FetchPage(ctx context.Context, endpoint string, params url.Values, page int) ([]json.RawMessage, int, error) {
	pageParams := url.Values{}
	for name, values := range params {
		pageParams[name] = values
	}
	if page > 1 {
		pageParams.Set("page", strconv.Itoa(page))
	}

	body, headers, err := c.do(ctx, endpoint, pageParams, FetchOptions{})
	if err != nil {
		return nil, 0, err
	}

	totalPages := 1
	if pagesStr := headers.Get(HeaderPages); pagesStr != "" {
		if pages, err := strconv.Atoi(pagesStr); err == nil && pages >= 1 {
			totalPages = pages
		}
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, 0, fmt.Errorf("parse page %d of %s: %w", page, endpoint, err)
	}

	return records, totalPages, nil
}

// do runs the ordered pipeline for one request and returns the raw body
// and response headers.
func (c *Client) do(ctx context.Context, endpoint string, params url.Values, opts FetchOptions) ([]byte, http.Header, error) {
	startTime := time.Now()
	defer func() {
		esiRequestDuration.WithLabelValues(endpoint).Observe(time.Since(startTime).Seconds())
	}()

	// Step 1: Global lockdown is a harder stop than a degraded budget,
	// so it is checked first.
	if err := c.guard.Check(ctx); err != nil {
		esiRequestsTotal.WithLabelValues(endpoint, "locked").Inc()
		return nil, nil, err
	}

	// Step 2: Budget gate. Red still pays the red backoff before being
	// rejected, slowing hot retry loops even though no dispatch follows.
	state := c.budget.Read(ctx)
	status := state.Status()
	if status == budget.StatusRed {
		if err := c.policy.Wait(ctx, status); err != nil {
			return nil, nil, err
		}
		esiBudgetRejectionsTotal.Inc()
		esiRequestsTotal.WithLabelValues(endpoint, "budget_exhausted").Inc()
		c.logger.Error().
			Str("endpoint", endpoint).
			Int("error_count", state.ErrorCount).
			Msg("Request rejected, error budget exhausted")
		return nil, nil, &BudgetExhaustedError{ErrorCount: state.ErrorCount}
	}

	// Step 3: Throttle yellow. Green is a no-op.
	if err := c.policy.Wait(ctx, status); err != nil {
		return nil, nil, err
	}

	// Step 4: Cache lookup. A hit skips every remaining stage; a cached
	// answer costs nothing against the shared budget.
	cacheKey := cache.Key{Endpoint: endpoint, Params: params}
	if opts.UseCache {
		entry, err := c.cache.Get(ctx, cacheKey)
		if err != nil && err != cache.ErrCacheMiss {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Cache get error")
		}
		if entry != nil {
			esiRequestsTotal.WithLabelValues(endpoint, "cache_hit").Inc()
			c.logger.Debug().Str("endpoint", endpoint).Msg("Cache hit")
			return entry.Data, nil, nil
		}
	}

	// Step 5: Dispatch, paced by the local limiter.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+endpoint, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	if len(params) > 0 {
		req.URL.RawQuery = params.Encode()
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		esiRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", endpoint).Msg("HTTP request failed")
		return nil, nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	// Step 6: Budget update runs on every response, errors included;
	// the budget headers are present on error responses too.
	if err := c.budget.UpdateFromHeaders(ctx, resp.Header); err != nil {
		c.logger.Warn().Err(err).Msg("Failed to update error budget from headers")
	}

	// Step 7: Hard stop supersedes normal error handling.
	if resp.StatusCode == HardStopStatusCode {
		retryAfter := lockdown.DefaultRetryAfter
		if retryStr := resp.Header.Get("Retry-After"); retryStr != "" {
			if seconds, err := strconv.Atoi(retryStr); err == nil && seconds > 0 {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		if err := c.guard.Trigger(ctx, retryAfter); err != nil {
			c.logger.Error().Err(err).Msg("Failed to store lockdown state")
		}
		esiRequestsTotal.WithLabelValues(endpoint, "hard_stop").Inc()
		return nil, nil, &lockdown.LockedError{RetryAfter: retryAfter}
	}

	// Step 8: Classify remaining errors.
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		esiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()
		c.logger.Warn().
			Str("endpoint", endpoint).
			Int("status", resp.StatusCode).
			Msg("Upstream error response")
		return nil, nil, &UpstreamStatusError{StatusCode: resp.StatusCode, Endpoint: endpoint}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		esiRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, nil, &TransportError{Endpoint: endpoint, Err: err}
	}

	esiRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	// Step 9: Cache store on success when the caller opted in.
	if opts.UseCache {
		entry := cache.NewEntry(body, resp.Header)
		if err := c.cache.Set(ctx, cacheKey, entry); err != nil {
			c.logger.Warn().Err(err).Str("endpoint", endpoint).Msg("Failed to cache response")
		} else {
			c.logger.Debug().
				Str("endpoint", endpoint).
				Dur("ttl", entry.TTL()).
				Msg("Cached response")
		}
	}

	return body, resp.Header, nil
}

// Close releases the client's HTTP resources. The Redis client is owned
// by the caller and is not closed here.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
