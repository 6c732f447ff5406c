package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/DeafMist/competitor-radar/internal/config"
	"github.com/DeafMist/competitor-radar/internal/dataset"
	"github.com/DeafMist/competitor-radar/internal/logger"
	"github.com/DeafMist/competitor-radar/internal/processing"
)

// ErrNoFeeds is returned when every configured feed failed.
var ErrNoFeeds = errors.New("no feed could be read")

// RSS builds the news dataset from competitor RSS or Atom feeds.
type RSS struct {
	feeds    []config.Feed
	parser   *gofeed.Parser
	throttle throttle
	log      *slog.Logger
}

// NewRSS returns an RSS source. A nil client gets one with the configured timeout.
func NewRSS(feeds []config.Feed, cfg config.Fetch, client *http.Client, log *slog.Logger) *RSS {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	parser := gofeed.NewParser()
	parser.Client = client
	return &RSS{
		feeds:    feeds,
		parser:   parser,
		throttle: newThrottle(cfg),
		log:      logger.OrDiscard(log),
	}
}

// Fetch implements Source for the news dataset. Items keep feed order; the
// feed's competitor names every item it carries. Failed feeds are skipped.
func (r *RSS) Fetch(ctx context.Context, name string) (*dataset.Table, error) {
	if name != News {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}
	if tbl, ok := r.throttle.cached(name); ok {
		return tbl, nil
	}

	tbl := &dataset.Table{
		Columns: []string{processing.ColDate, processing.ColCompetitor, processing.ColTitle, processing.ColLink},
	}
	var failed int
	for _, feed := range r.feeds {
		rows, err := r.readFeed(ctx, feed)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			failed++
			r.log.Warn("skip feed",
				slog.String("competitor", feed.Competitor),
				slog.String("url", feed.URL),
				slog.Any("err", err),
			)
			continue
		}
		tbl.Rows = append(tbl.Rows, rows...)
	}

	if len(r.feeds) > 0 && failed == len(r.feeds) {
		return nil, ErrNoFeeds
	}

	r.throttle.store(name, tbl)
	return tbl, nil
}

func (r *RSS) readFeed(ctx context.Context, feed config.Feed) ([]dataset.Row, error) {
	if err := r.throttle.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for rate limit: %w", err)
	}

	parsed, err := r.parser.ParseURLWithContext(feed.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	rows := make([]dataset.Row, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		rows = append(rows, dataset.Row{
			processing.ColDate:       itemDate(item),
			processing.ColCompetitor: feed.Competitor,
			processing.ColTitle:      strings.TrimSpace(item.Title),
			processing.ColLink:       strings.TrimSpace(item.Link),
		})
	}
	return rows, nil
}

// itemDate prefers the published date. Items without one get an empty cell and
// are dropped later by normalization.
func itemDate(item *gofeed.Item) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.Format(time.RFC3339)
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.Format(time.RFC3339)
	}
	return ""
}
