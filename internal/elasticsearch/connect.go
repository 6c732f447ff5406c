package elasticsearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrUnavailable is returned when Elasticsearch never answered a ping.
var ErrUnavailable = errors.New("elasticsearch unavailable")

const maxRetryDelay = 30 * time.Second

// Connect creates a client and waits until Elasticsearch answers a ping,
// retrying with exponential backoff up to maxRetries times.
func Connect(ctx context.Context, addr, index string, log *slog.Logger, maxRetries int) (*Client, error) {
	client, err := New(addr, index, log)
	if err != nil {
		return nil, err
	}

	retryDelay := 2 * time.Second
	for attempt := 1; ; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pingErr := client.Ping(pingCtx)
		cancel()
		if pingErr == nil {
			client.log.Info("connected to elasticsearch", slog.String("index", index))
			return client, nil
		}
		if attempt >= maxRetries {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrUnavailable, attempt, pingErr)
		}

		client.log.Warn("elasticsearch ping failed, retrying",
			slog.Any("err", pingErr),
			slog.Int("attempt", attempt),
			slog.Int("max_retries", maxRetries),
			slog.Duration("retry_in", retryDelay),
		)

		select {
		case <-time.After(retryDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		retryDelay = min(retryDelay*2, maxRetryDelay)
	}
}
