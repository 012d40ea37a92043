package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultPageDelay is the mandatory wait before each page after the
// first. This is a politeness delay, not an error-driven one.
const DefaultPageDelay = 2 * time.Second

// PageFetcher is the single-page fetch surface the paginator composes.
// The compliance client implements it.
type PageFetcher interface {
	// FetchPage fetches one page and returns its records plus the total
	// page count reported by the upstream.
	FetchPage(ctx context.Context, endpoint string, params url.Values, page int) ([]json.RawMessage, int, error)
}

// Paginator drives repeated fetches of a multi-page resource.
type Paginator struct {
	fetcher   PageFetcher
	pageDelay time.Duration
	logger    zerolog.Logger
}

// New creates a paginator over the given fetcher. A non-positive delay
// falls back to DefaultPageDelay.
func New(fetcher PageFetcher, pageDelay time.Duration) *Paginator {
	if pageDelay <= 0 {
		pageDelay = DefaultPageDelay
	}
	return &Paginator{
		fetcher:   fetcher,
		pageDelay: pageDelay,
		logger:    log.With().Str("component", "pagination").Logger(),
	}
}

// FetchAll fetches every page of the endpoint in order and returns the
// concatenated records. Any page failure discards all partial results
// and fails the whole operation; retrying is the caller's decision and
// starts over from page 1.
func (p *Paginator) FetchAll(ctx context.Context, endpoint string, params url.Values) ([]json.RawMessage, error) {
	start := time.Now()

	records, totalPages, err := p.fetcher.FetchPage(ctx, endpoint, params, 1)
	if err != nil {
		return nil, fmt.Errorf("fetch first page of %s: %w", endpoint, err)
	}

	p.logger.Info().
		Str("endpoint", endpoint).
		Int("total_pages", totalPages).
		Msg("Starting paged fetch")

	for page := 2; page <= totalPages; page++ {
		if err := p.wait(ctx); err != nil {
			return nil, err
		}

		pageRecords, _, err := p.fetcher.FetchPage(ctx, endpoint, params, page)
		if err != nil {
			return nil, fmt.Errorf("fetch page %d/%d of %s: %w", page, totalPages, endpoint, err)
		}
		records = append(records, pageRecords...)
	}

	p.logger.Info().
		Str("endpoint", endpoint).
		Int("pages", totalPages).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Paged fetch complete")

	return records, nil
}

// wait sleeps the inter-page delay, cancellable via ctx.
func (p *Paginator) wait(ctx context.Context) error {
	timer := time.NewTimer(p.pageDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
