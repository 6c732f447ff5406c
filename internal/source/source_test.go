package source_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/competitor-radar/internal/config"
	"github.com/DeafMist/competitor-radar/internal/dataset"
	"github.com/DeafMist/competitor-radar/internal/models"
	"github.com/DeafMist/competitor-radar/internal/source"
)

const newsCSV = "date,competitor,title,link\n2024-03-01,Acme,Acme closes Series B,https://a/1\n"

func fetchConfig(base string) config.Fetch {
	return config.Fetch{
		NewsFeedURL:       base + "/news.csv",
		FundingDataURL:    base + "/snapshot.csv",
		FundingHistoryURL: base + "/history.csv",
		Timeout:           time.Second,
		CacheTTL:          time.Minute,
		RatePerSecond:     100,
		Burst:             10,
	}
}

func TestHTTPFetchAndCache(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/news.csv":
			_, _ = w.Write([]byte(newsCSV))
		case "/snapshot.csv":
			_, _ = w.Write(nil)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := source.NewHTTP(fetchConfig(srv.URL), srv.Client(), nil)
	ctx := context.Background()

	tbl, err := src.Fetch(ctx, source.News)
	require.NoError(t, err)
	require.Equal(t, []string{"date", "competitor", "title", "link"}, tbl.Columns)
	require.Equal(t, 1, tbl.Len())

	_, err = src.Fetch(ctx, source.News)
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())

	empty, err := src.Fetch(ctx, source.Snapshot)
	require.NoError(t, err)
	require.Equal(t, 0, empty.Len())

	_, err = src.Fetch(ctx, source.History)
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")

	_, err = src.Fetch(ctx, "prices")
	require.ErrorIs(t, err, source.ErrUnknownDataset)
}

func TestHTTPNotConfigured(t *testing.T) {
	src := source.NewHTTP(config.Fetch{Timeout: time.Second, RatePerSecond: 1, Burst: 1}, nil, nil)
	_, err := src.Fetch(context.Background(), source.News)
	require.ErrorIs(t, err, source.ErrNotConfigured)
}

func TestHTTPCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(newsCSV))
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := source.NewHTTP(fetchConfig(srv.URL), srv.Client(), nil)
	_, err := src.Fetch(ctx, source.News)
	require.Error(t, err)
}

const rssDoc = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>Acme</title>
<item><title>Acme wins FDA approval</title><link>https://acme/1</link><pubDate>Mon, 04 Mar 2024 10:00:00 +0000</pubDate></item>
<item><title>Undated note</title><link>https://acme/2</link></item>
</channel></rss>`

func TestRSSFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssDoc))
	}))
	defer srv.Close()

	feeds := []config.Feed{
		{Competitor: "Acme", URL: srv.URL + "/acme"},
		{Competitor: "Beta", URL: srv.URL + "/broken"},
	}
	src := source.NewRSS(feeds, fetchConfig(srv.URL), srv.Client(), nil)

	tbl, err := src.Fetch(context.Background(), source.News)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	first := tbl.Rows[0]
	require.Equal(t, "Acme", first["competitor"])
	require.Equal(t, "Acme wins FDA approval", first["title"])
	require.Equal(t, "2024-03-04T10:00:00Z", first["date"])
	require.Equal(t, "", tbl.Rows[1]["date"])

	_, err = src.Fetch(context.Background(), source.Snapshot)
	require.ErrorIs(t, err, source.ErrUnknownDataset)
}

func TestRSSAllFeedsFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	src := source.NewRSS([]config.Feed{{Competitor: "Acme", URL: srv.URL}}, fetchConfig(srv.URL), srv.Client(), nil)
	_, err := src.Fetch(context.Background(), source.News)
	require.ErrorIs(t, err, source.ErrNoFeeds)
}

type stubLister struct {
	docs  []models.RawNewsDocument
	since time.Time
	err   error
}

func (s *stubLister) ListRaw(_ context.Context, since time.Time, _ int) ([]models.RawNewsDocument, error) {
	s.since = since
	return s.docs, s.err
}

func TestElasticsearchSource(t *testing.T) {
	store := &stubLister{docs: []models.RawNewsDocument{
		{ID: "1", Date: time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC), Competitor: "Acme", Title: "Acme patent granted", Link: "https://a"},
	}}
	src := source.NewElasticsearch(store, 48*time.Hour, 100)

	before := time.Now()
	tbl, err := src.Fetch(context.Background(), source.News)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
	require.Equal(t, "2024-05-02", tbl.Rows[0]["date"])
	require.WithinDuration(t, before.Add(-48*time.Hour), store.since, time.Minute)

	store.err = errors.New("es down")
	_, err = src.Fetch(context.Background(), source.News)
	require.ErrorContains(t, err, "es down")
}

type stubSource map[string]*dataset.Table

func (s stubSource) Fetch(_ context.Context, name string) (*dataset.Table, error) {
	tbl, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("no %s", name)
	}
	return tbl, nil
}

func TestMuxRoutes(t *testing.T) {
	news := &dataset.Table{Columns: []string{"date"}}
	mux := source.NewMux().Handle(source.News, stubSource{source.News: news})

	tbl, err := mux.Fetch(context.Background(), source.News)
	require.NoError(t, err)
	require.Same(t, news, tbl)

	_, err = mux.Fetch(context.Background(), source.History)
	require.ErrorIs(t, err, source.ErrUnknownDataset)
}

func TestLoadAllKeepsPartialResults(t *testing.T) {
	news := &dataset.Table{Columns: []string{"date"}}
	snapshot := &dataset.Table{Columns: []string{"Company"}}
	src := stubSource{source.News: news, source.Snapshot: snapshot}

	got := source.LoadAll(context.Background(), src)
	require.Same(t, news, got.News)
	require.Same(t, snapshot, got.Snapshot)
	require.Nil(t, got.History)
	require.Len(t, got.Errors, 1)
	require.ErrorContains(t, got.Err(), "history")
}

func TestFilesSource(t *testing.T) {
	dir := t.TempDir()
	newsPath := filepath.Join(dir, "news.csv")
	emptyPath := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(newsPath, []byte(newsCSV), 0o600))
	require.NoError(t, os.WriteFile(emptyPath, nil, 0o600))

	files := source.Files{source.News: newsPath, source.Snapshot: emptyPath, source.History: ""}
	ctx := context.Background()

	tbl, err := files.Fetch(ctx, source.News)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())

	empty, err := files.Fetch(ctx, source.Snapshot)
	require.NoError(t, err)
	require.Equal(t, 0, empty.Len())

	_, err = files.Fetch(ctx, source.History)
	require.ErrorIs(t, err, source.ErrNotConfigured)

	_, err = source.Files{source.News: filepath.Join(dir, "absent.csv")}.Fetch(ctx, source.News)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestHTTPRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(newsCSV))
	}))
	defer srv.Close()

	src := source.NewHTTP(fetchConfig(srv.URL), srv.Client(), nil)
	source.SetMaxBody(src, int64(len(newsCSV)-1))
	_, err := src.Fetch(context.Background(), source.News)
	require.ErrorIs(t, err, source.ErrTooLarge)

	exact := source.NewHTTP(fetchConfig(srv.URL), srv.Client(), nil)
	source.SetMaxBody(exact, int64(len(newsCSV)))
	tbl, err := exact.Fetch(context.Background(), source.News)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())
}
