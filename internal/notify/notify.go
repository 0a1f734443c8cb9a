// Package notify publishes run summaries to a Redis stream.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-redis/redis/v8"

	"weatherpipe/internal/models"
)

// streamMaxLen bounds the stream; older summaries are trimmed on write.
const streamMaxLen = 500

// StreamAdder is implemented by *redis.Client.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

type Publisher struct {
	client StreamAdder
	stream string
	logger *slog.Logger
}

func NewPublisher(client StreamAdder, stream string, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{client: client, stream: stream, logger: logger}
}

// Publish appends the summary to the stream. Errors are logged and dropped:
// the data is already stored by the time a summary exists.
func (p *Publisher) Publish(ctx context.Context, summary models.RunSummary) {
	data, err := json.Marshal(summary)
	if err != nil {
		p.logger.Error("Failed to serialize run summary", "run_id", summary.RunID, "error", err)
		return
	}

	id, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": string(data)},
	}).Result()
	if err != nil {
		p.logger.Error("Failed to publish run summary to Redis", "stream", p.stream, "run_id", summary.RunID, "error", err)
		return
	}

	p.logger.Info("Published run summary to Redis", "stream", p.stream, "run_id", summary.RunID, "id", id)
}
