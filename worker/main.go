package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/competitor-radar/internal/config"
	"github.com/DeafMist/competitor-radar/internal/dedupe"
	"github.com/DeafMist/competitor-radar/internal/elasticsearch"
	"github.com/DeafMist/competitor-radar/internal/logger"
	"github.com/DeafMist/competitor-radar/internal/models"
	"github.com/DeafMist/competitor-radar/internal/processing"
)

var (
	errMissingTitle = errors.New("missing title")
	errInvalidDate  = errors.New("invalid date")

	errDLQUnavailable = errors.New("dlq unavailable")
)

// dlqBackoff is the first DLQ retry delay; it doubles per attempt.
var dlqBackoff = time.Second

// rawNews is one feed row as published on the ingest topic.
type rawNews struct {
	Date       string `json:"date"`
	Competitor string `json:"competitor"`
	Title      string `json:"title"`
	Link       string `json:"link"`
}

type newsIndexer interface {
	IndexRaw(ctx context.Context, doc models.RawNewsDocument) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

type dlqWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	esClient, err := elasticsearch.Connect(ctx, cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log, 10)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}
	if err := esClient.EnsureIndex(ctx); err != nil {
		log.Error("ensure index", slog.Any("err", err))
		os.Exit(1)
	}

	cache := dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: cfg.CommitInterval,
	})
	defer reader.Close()

	dlqTopic := cfg.KafkaTopic + "_dlq"
	dlq := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        dlqTopic,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
	}
	defer dlq.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", dlqTopic),
	)

	if err := consume(ctx, log, reader, esClient, cache, dlq); err != nil {
		log.Error("worker stopped", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("context canceled, stopping")
}

// consume processes messages until ctx is done. When a failed message cannot
// be parked in the DLQ it returns without committing, so the group resumes
// from that offset after a restart.
func consume(ctx context.Context, log *slog.Logger, reader messageReader, indexer newsIndexer, cache *dedupe.Cache, dlq dlqWriter) error {
	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Error("fetch message", slog.Any("err", err))
			continue
		}

		if err := processMessage(ctx, log, indexer, cache, msg); err != nil {
			log.Warn("process message failed, sending to DLQ",
				slog.Any("err", err),
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
			)
			if !sendToDLQ(ctx, log, dlq, msg, err) {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("%w: partition %d offset %d", errDLQUnavailable, msg.Partition, msg.Offset)
			}
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit message", slog.Any("err", err))
		}
	}
}

// sendToDLQ publishes msg with its failure context, retrying with exponential
// backoff. It reports whether the write succeeded.
func sendToDLQ(ctx context.Context, log *slog.Logger, w dlqWriter, msg kafka.Message, cause error) bool {
	key := msg.Key
	if len(key) == 0 {
		key = []byte(uuid.NewString())
	}
	dlqMsg := kafka.Message{
		Key:   key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_topic", Value: []byte(msg.Topic)},
			kafka.Header{Key: "original_partition", Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := range 5 {
		err := w.WriteMessages(ctx, dlqMsg)
		if err == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		backoff := dlqBackoff << uint(attempt)
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}

	log.Error("DLQ write exhausted retries",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return false
}

// processMessage validates one raw row and stores it. Rows already seen inside
// the dedupe window are skipped without error.
func processMessage(ctx context.Context, log *slog.Logger, indexer newsIndexer, cache *dedupe.Cache, msg kafka.Message) error {
	doc, err := decodeRaw(msg.Value)
	if err != nil {
		return err
	}

	if cache.IsSeen(doc.ID) {
		log.Debug("duplicate news", slog.String("id", doc.ID))
		return nil
	}

	if err := indexer.IndexRaw(ctx, doc); err != nil {
		return fmt.Errorf("index %s: %w", doc.ID, err)
	}

	cache.MarkSeen(doc.ID)
	log.Info("indexed news",
		slog.String("id", doc.ID),
		slog.String("competitor", doc.Competitor),
		slog.String("title", doc.Title),
	)
	return nil
}

func decodeRaw(value []byte) (models.RawNewsDocument, error) {
	var payload rawNews
	if err := json.Unmarshal(value, &payload); err != nil {
		return models.RawNewsDocument{}, fmt.Errorf("decode payload: %w", err)
	}

	title := strings.TrimSpace(payload.Title)
	if title == "" {
		return models.RawNewsDocument{}, errMissingTitle
	}

	date, ok := processing.ParseDate(payload.Date)
	if !ok {
		return models.RawNewsDocument{}, fmt.Errorf("%w: %q", errInvalidDate, payload.Date)
	}

	competitor := strings.TrimSpace(payload.Competitor)
	return models.RawNewsDocument{
		ID:         processing.BuildRecordID(competitor, title, date),
		Date:       date,
		Competitor: competitor,
		Title:      title,
		Link:       strings.TrimSpace(payload.Link),
		IngestedAt: time.Now().UTC(),
	}, nil
}
