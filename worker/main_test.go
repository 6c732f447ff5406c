package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"github.com/DeafMist/competitor-radar/internal/dedupe"
	"github.com/DeafMist/competitor-radar/internal/logger"
	"github.com/DeafMist/competitor-radar/internal/models"
	"github.com/DeafMist/competitor-radar/internal/processing"
)

type stubIndexer struct {
	docs []models.RawNewsDocument
	err  error
}

func (s *stubIndexer) IndexRaw(_ context.Context, doc models.RawNewsDocument) error {
	if s.err != nil {
		return s.err
	}
	s.docs = append(s.docs, doc)
	return nil
}

type stubWriter struct {
	fails int
	msgs  []kafka.Message
}

func (s *stubWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if s.fails > 0 {
		s.fails--
		return errors.New("broker unavailable")
	}
	s.msgs = append(s.msgs, msgs...)
	return nil
}

func message(t *testing.T, payload rawNews) kafka.Message {
	t.Helper()
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return kafka.Message{Topic: "competitor_news_raw", Partition: 2, Offset: 41, Value: data}
}

func TestProcessMessageIndexesRawRow(t *testing.T) {
	cache := dedupe.NewCache(100, time.Hour)
	idx := &stubIndexer{}

	msg := message(t, rawNews{
		Date:       "2024-01-02",
		Competitor: " Acme ",
		Title:      "Acme raises Series B",
		Link:       "https://acme/news/1",
	})

	require.NoError(t, processMessage(context.Background(), logger.Discard(), idx, cache, msg))
	require.Len(t, idx.docs, 1)

	doc := idx.docs[0]
	require.Equal(t, "Acme", doc.Competitor)
	require.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), doc.Date)
	require.Equal(t, processing.BuildRecordID("Acme", "Acme raises Series B", doc.Date), doc.ID)
	require.False(t, doc.IngestedAt.IsZero())

	// The same row again is a duplicate.
	require.NoError(t, processMessage(context.Background(), logger.Discard(), idx, cache, msg))
	require.Len(t, idx.docs, 1)
}

func TestProcessMessageRejectsMalformedRows(t *testing.T) {
	tests := []struct {
		name    string
		value   []byte
		wantErr error
	}{
		{name: "bad json", value: []byte("{")},
		{name: "missing title", value: mustJSON(t, rawNews{Date: "2024-01-02"}), wantErr: errMissingTitle},
		{name: "bad date", value: mustJSON(t, rawNews{Date: "soon", Title: "Acme IPO"}), wantErr: errInvalidDate},
		{name: "missing date", value: mustJSON(t, rawNews{Title: "Acme IPO"}), wantErr: errInvalidDate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idx := &stubIndexer{}
			err := processMessage(context.Background(), logger.Discard(), idx, dedupe.NewCache(10, time.Hour), kafka.Message{Value: tt.value})
			require.Error(t, err)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			}
			require.Empty(t, idx.docs)
		})
	}
}

func TestProcessMessageIndexFailureIsRetryable(t *testing.T) {
	cache := dedupe.NewCache(10, time.Hour)
	idx := &stubIndexer{err: errors.New("es down")}
	msg := message(t, rawNews{Date: "2024-01-02", Title: "Acme IPO"})

	require.Error(t, processMessage(context.Background(), logger.Discard(), idx, cache, msg))

	idx.err = nil
	require.NoError(t, processMessage(context.Background(), logger.Discard(), idx, cache, msg))
	require.Len(t, idx.docs, 1)
}

func TestSendToDLQAddsContext(t *testing.T) {
	w := &stubWriter{fails: 1}
	msg := message(t, rawNews{Title: "Acme IPO"})

	require.True(t, sendToDLQ(context.Background(), logger.Discard(), w, msg, errInvalidDate))
	require.Len(t, w.msgs, 1)

	sent := w.msgs[0]
	require.Equal(t, msg.Value, sent.Value)
	require.NotEmpty(t, sent.Key)

	headers := make(map[string]string)
	for _, h := range sent.Headers {
		headers[h.Key] = string(h.Value)
	}
	require.Equal(t, "competitor_news_raw", headers["original_topic"])
	require.Equal(t, "2", headers["original_partition"])
	require.Equal(t, "41", headers["original_offset"])
	require.Equal(t, errInvalidDate.Error(), headers["error"])
}

func TestSendToDLQStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &stubWriter{fails: 10}
	require.False(t, sendToDLQ(ctx, logger.Discard(), w, kafka.Message{}, errMissingTitle))
}

type stubReader struct {
	msgs      []kafka.Message
	committed []kafka.Message
}

func (s *stubReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(s.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := s.msgs[0]
	s.msgs = s.msgs[1:]
	return msg, nil
}

func (s *stubReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	s.committed = append(s.committed, msgs...)
	return nil
}

func TestConsumeCommitsProcessedAndParkedMessages(t *testing.T) {
	dlqBackoff = time.Millisecond
	t.Cleanup(func() { dlqBackoff = time.Second })

	good := message(t, rawNews{Date: "2024-01-02", Competitor: "Acme", Title: "Acme IPO"})
	bad := message(t, rawNews{Date: "2024-01-02"})
	bad.Offset = 42
	reader := &stubReader{msgs: []kafka.Message{good, bad}}
	dlq := &stubWriter{}

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := consume(ctx, logger.Discard(), reader, &stubIndexer{}, dedupe.NewCache(10, time.Hour), dlq)
	require.NoError(t, err)
	require.Len(t, reader.committed, 2)
	require.Len(t, dlq.msgs, 1)
}

func TestConsumeStopsWhenDLQUnavailable(t *testing.T) {
	dlqBackoff = time.Millisecond
	t.Cleanup(func() { dlqBackoff = time.Second })

	bad := message(t, rawNews{Date: "2024-01-02"})
	next := message(t, rawNews{Date: "2024-01-03", Title: "Acme IPO"})
	next.Offset = 42
	reader := &stubReader{msgs: []kafka.Message{bad, next}}
	idx := &stubIndexer{}

	err := consume(context.Background(), logger.Discard(), reader, idx, dedupe.NewCache(10, time.Hour), &stubWriter{fails: 10})
	require.ErrorIs(t, err, errDLQUnavailable)
	require.Empty(t, reader.committed)
	require.Empty(t, idx.docs)
	require.Len(t, reader.msgs, 1)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
