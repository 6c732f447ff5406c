package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// News source kinds accepted by NEWS_SOURCE.
const (
	NewsSourceHTTP          = "http"
	NewsSourceRSS           = "rss"
	NewsSourceElasticsearch = "elasticsearch"
)

// DefaultLanguage is used when a request names no language or an unknown one.
const DefaultLanguage = "en"

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Feed is a competitor's RSS feed.
type Feed struct {
	Competitor string
	URL        string
}

// Fetch configures the remote dataset fetcher.
type Fetch struct {
	NewsFeedURL       string
	FundingDataURL    string
	FundingHistoryURL string
	Timeout           time.Duration
	CacheTTL          time.Duration
	RatePerSecond     float64
	Burst             int
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	Fetch
	BindAddr       string
	NewsSource     string
	RSSFeeds       []Feed
	NewsLookback   time.Duration
	FallbackLabels Labels
	TaxonomyPath   string
}

// Fallback returns the no-match label for lang.
func (c *API) Fallback(lang string) string {
	return c.FallbackLabels.For(lang)
}

// Labels maps a language code to the label given to untagged news.
type Labels map[string]string

// For returns the label for lang, or the default language's label.
func (l Labels) For(lang string) string {
	if label, ok := l[strings.TrimSpace(lang)]; ok {
		return label
	}
	return l[DefaultLanguage]
}

// Worker holds configuration for the Kafka -> Elasticsearch raw news worker.
type Worker struct {
	Common
	KafkaBrokers   []string
	KafkaTopic     string
	KafkaConsumer  string
	DedupeCapacity int
	DedupeTTL      time.Duration
	BatchSize      int
	CommitInterval time.Duration
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "competitor_news"),
	}
}

// LoadFetch builds the dataset fetch settings from environment variables.
func LoadFetch() (Fetch, error) {
	f := Fetch{
		NewsFeedURL:       getEnv("NEWS_FEED_URL", ""),
		FundingDataURL:    getEnv("FUNDING_DATA_URL", ""),
		FundingHistoryURL: getEnv("FUNDING_HISTORY_URL", ""),
		Timeout:           getDuration("FETCH_TIMEOUT", "10s"),
		CacheTTL:          getDuration("FETCH_CACHE_TTL", "5m"),
		RatePerSecond:     getFloat("FETCH_RATE_PER_SEC", 2),
		Burst:             getInt("FETCH_BURST", 3),
	}

	if f.Timeout <= 0 {
		return Fetch{}, fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	if f.CacheTTL < 0 {
		return Fetch{}, fmt.Errorf("FETCH_CACHE_TTL cannot be negative")
	}
	if f.RatePerSecond <= 0 {
		return Fetch{}, fmt.Errorf("FETCH_RATE_PER_SEC must be positive")
	}
	if f.Burst <= 0 {
		return Fetch{}, fmt.Errorf("FETCH_BURST must be positive")
	}

	return f, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	fetch, err := LoadFetch()
	if err != nil {
		return nil, err
	}

	feeds, err := parseFeeds(getEnv("RSS_FEEDS", ""))
	if err != nil {
		return nil, err
	}

	labels, err := LoadFallbackLabels()
	if err != nil {
		return nil, err
	}

	c := &API{
		Common:         loadCommon(),
		Fetch:          fetch,
		BindAddr:       getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		NewsSource:     strings.ToLower(getEnv("NEWS_SOURCE", NewsSourceHTTP)),
		RSSFeeds:       feeds,
		NewsLookback:   getDuration("NEWS_LOOKBACK", "2160h"),
		FallbackLabels: labels,
		TaxonomyPath:   getEnv("TAXONOMY_PATH", ""),
	}

	switch c.NewsSource {
	case NewsSourceHTTP, NewsSourceElasticsearch:
	case NewsSourceRSS:
		if len(c.RSSFeeds) == 0 {
			return nil, fmt.Errorf("RSS_FEEDS must list at least one feed when NEWS_SOURCE=rss")
		}
	default:
		return nil, fmt.Errorf("NEWS_SOURCE must be one of http, rss, elasticsearch")
	}
	if c.NewsLookback <= 0 {
		return nil, fmt.Errorf("NEWS_LOOKBACK must be positive")
	}

	return c, nil
}

// LoadFallbackLabels reads the per-language no-match labels from FALLBACK_LABELS.
func LoadFallbackLabels() (Labels, error) {
	labels, err := parsePairs(getEnv("FALLBACK_LABELS", "en=Other,zh-TW=其他"))
	if err != nil {
		return nil, fmt.Errorf("FALLBACK_LABELS: %w", err)
	}
	if _, ok := labels[DefaultLanguage]; !ok {
		return nil, fmt.Errorf("FALLBACK_LABELS must define %q", DefaultLanguage)
	}
	return Labels(labels), nil
}

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	c := &Worker{
		Common:         loadCommon(),
		KafkaBrokers:   splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:     getEnv("KAFKA_TOPIC", "competitor_news_raw"),
		KafkaConsumer:  getEnv("KAFKA_CONSUMER_GROUP", "competitor-news-worker"),
		DedupeCapacity: getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:      getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:      getInt("WORKER_BATCH_SIZE", 10),
		CommitInterval: getDuration("WORKER_COMMIT_INTERVAL", "2s"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "8760h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		fd, ferr := time.ParseDuration(fallback)
		if ferr != nil {
			panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, ferr))
		}
		return fd
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// parsePairs reads "key=value,key=value" lists.
func parsePairs(raw string) (map[string]string, error) {
	out := make(map[string]string)
	for _, part := range splitAndTrim(raw) {
		key, value, ok := strings.Cut(part, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, fmt.Errorf("malformed entry %q, want key=value", part)
		}
		out[key] = value
	}
	return out, nil
}

func parseFeeds(raw string) ([]Feed, error) {
	var feeds []Feed
	for _, part := range splitAndTrim(raw) {
		name, url, ok := strings.Cut(part, "=")
		name, url = strings.TrimSpace(name), strings.TrimSpace(url)
		if !ok || name == "" || url == "" {
			return nil, fmt.Errorf("RSS_FEEDS: malformed entry %q, want competitor=url", part)
		}
		feeds = append(feeds, Feed{Competitor: name, URL: url})
	}
	return feeds, nil
}
