package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/DeafMist/competitor-radar/internal/config"
	"github.com/DeafMist/competitor-radar/internal/dataset"
	"github.com/DeafMist/competitor-radar/internal/logger"
)

const maxBodyBytes = 32 << 20

// ErrTooLarge is returned when a downloaded dataset exceeds the body limit.
var ErrTooLarge = errors.New("dataset exceeds size limit")

// throttle combines the response cache and request limiter shared by the
// remote sources.
type throttle struct {
	cache   *gocache.Cache
	ttl     time.Duration
	limiter *rate.Limiter
}

func newThrottle(cfg config.Fetch) throttle {
	rps := cfg.RatePerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	return throttle{
		cache:   gocache.New(cfg.CacheTTL, 2*cfg.CacheTTL+time.Minute),
		ttl:     cfg.CacheTTL,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
	}
}

func (t throttle) cached(key string) (*dataset.Table, bool) {
	if t.ttl <= 0 {
		return nil, false
	}
	v, ok := t.cache.Get(key)
	if !ok {
		return nil, false
	}
	return v.(*dataset.Table), true
}

func (t throttle) store(key string, tbl *dataset.Table) {
	if t.ttl > 0 {
		t.cache.Set(key, tbl, t.ttl)
	}
}

// HTTP downloads CSV datasets from configured URLs.
type HTTP struct {
	urls     map[string]string
	client   *http.Client
	throttle throttle
	maxBody  int64
	log      *slog.Logger
}

// NewHTTP builds an HTTP source from the fetch settings. A nil client gets
// one with the configured timeout.
func NewHTTP(cfg config.Fetch, client *http.Client, log *slog.Logger) *HTTP {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &HTTP{
		urls: map[string]string{
			News:     cfg.NewsFeedURL,
			Snapshot: cfg.FundingDataURL,
			History:  cfg.FundingHistoryURL,
		},
		client:   client,
		throttle: newThrottle(cfg),
		maxBody:  maxBodyBytes,
		log:      logger.OrDiscard(log),
	}
}

// Fetch implements Source. An empty document yields an empty table.
func (h *HTTP) Fetch(ctx context.Context, name string) (*dataset.Table, error) {
	url, ok := h.urls[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	if url == "" {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, name)
	}

	if tbl, ok := h.throttle.cached(name); ok {
		return tbl, nil
	}

	if err := h.throttle.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/csv, text/plain;q=0.9, */*;q=0.5")

	start := time.Now()
	res, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", name, res.Status)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, h.maxBody+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if int64(len(body)) > h.maxBody {
		return nil, fmt.Errorf("fetch %s: %w (%d bytes)", name, ErrTooLarge, h.maxBody)
	}

	tbl, err := dataset.DecodeCSV(bytes.NewReader(body))
	switch {
	case errors.Is(err, dataset.ErrEmpty):
		tbl = &dataset.Table{}
	case err != nil:
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}

	h.log.Debug("fetched dataset",
		slog.String("dataset", name),
		slog.Int("rows", tbl.Len()),
		slog.Duration("took", time.Since(start)),
	)

	h.throttle.store(name, tbl)
	return tbl, nil
}
