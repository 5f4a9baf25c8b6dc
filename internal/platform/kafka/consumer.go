package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"talanta/internal/platform/config"
)

// Message is the transport-agnostic view handlers receive.
type Message struct {
	Topic     string
	Key       []byte
	Value     []byte
	Partition int32
	Offset    int64
}

// Handler processes one message. A nil return commits the offset; an error
// leaves it uncommitted so the message is redelivered.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, msg *Message) error

func (f HandlerFunc) Handle(ctx context.Context, msg *Message) error { return f(ctx, msg) }

// Consumer is a consumer-group poll loop with per-message commit.
type Consumer struct {
	client *kgo.Client
	logger *slog.Logger
}

// NewConsumer joins the configured consumer group on the given topics.
func NewConsumer(cfg config.KafkaConfig, topics []string, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumerGroup(cfg.ConsumerGroup),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return &Consumer{client: client, logger: logger}, nil
}

// Run polls until ctx is cancelled, handing each record to handler and
// committing after a nil return. Handler errors are logged and the offset is
// left uncommitted; queue-level redelivery is the retry mechanism of last
// resort above the in-process dispatcher.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.ErrorContext(ctx, "kafka fetch error",
				"topic", topic,
				"partition", partition,
				"error", err,
			)
		})

		var failed bool
		fetches.EachRecord(func(record *kgo.Record) {
			if failed {
				return
			}
			msg := &Message{
				Topic:     record.Topic,
				Key:       record.Key,
				Value:     record.Value,
				Partition: record.Partition,
				Offset:    record.Offset,
			}
			if err := handler.Handle(ctx, msg); err != nil {
				c.logger.ErrorContext(ctx, "message handling failed, leaving uncommitted",
					"topic", msg.Topic,
					"key", string(msg.Key),
					"error", err,
				)
				failed = true
				return
			}
			if err := c.client.CommitRecords(ctx, record); err != nil {
				c.logger.ErrorContext(ctx, "offset commit failed",
					"topic", msg.Topic,
					"error", err,
				)
			}
		})
	}
}

func (c *Consumer) Close() {
	c.client.Close()
}
