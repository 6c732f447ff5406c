package source

import (
	"context"
	"fmt"
	"time"

	"github.com/DeafMist/competitor-radar/internal/dataset"
	"github.com/DeafMist/competitor-radar/internal/models"
	"github.com/DeafMist/competitor-radar/internal/processing"
)

// rawLister is satisfied by the Elasticsearch client.
type rawLister interface {
	ListRaw(ctx context.Context, since time.Time, size int) ([]models.RawNewsDocument, error)
}

// Elasticsearch serves the news dataset from raw rows ingested by the worker.
type Elasticsearch struct {
	store    rawLister
	lookback time.Duration
	size     int
	now      func() time.Time
}

// NewElasticsearch returns a source reading rows dated within lookback.
func NewElasticsearch(store rawLister, lookback time.Duration, size int) *Elasticsearch {
	return &Elasticsearch{store: store, lookback: lookback, size: size, now: time.Now}
}

// Fetch implements Source for the news dataset.
func (e *Elasticsearch) Fetch(ctx context.Context, name string) (*dataset.Table, error) {
	if name != News {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, name)
	}

	docs, err := e.store.ListRaw(ctx, e.now().Add(-e.lookback), e.size)
	if err != nil {
		return nil, fmt.Errorf("list raw news: %w", err)
	}

	tbl := &dataset.Table{
		Columns: []string{processing.ColDate, processing.ColCompetitor, processing.ColTitle, processing.ColLink},
		Rows:    make([]dataset.Row, 0, len(docs)),
	}
	for _, doc := range docs {
		tbl.Rows = append(tbl.Rows, dataset.Row{
			processing.ColDate:       doc.Date.Format(processing.DayLayout),
			processing.ColCompetitor: doc.Competitor,
			processing.ColTitle:      doc.Title,
			processing.ColLink:       doc.Link,
		})
	}
	return tbl, nil
}
