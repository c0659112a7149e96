package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/NordCoder/Uptimer/internal/obs/retry"
)

type Handler func(ctx context.Context, key, value []byte) error

// messageReader is the part of *kafka.Reader the consumer uses.
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	Topic         string
	FromBeginning bool
	Logger        *zap.Logger
	// HandlerPolicy controls how often a failing message is retried before it is skipped.
	HandlerPolicy retry.Policy
}

type Consumer struct {
	reader messageReader
	topic  string
	policy retry.Policy
	log    *zap.Logger
}

func NewConsumer(cfg *ConsumerConfig) *Consumer {
	start := kafka.LastOffset
	if cfg.FromBeginning {
		start = kafka.FirstOffset
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:               cfg.Brokers,
		GroupID:               cfg.GroupID,
		Topic:                 cfg.Topic,
		StartOffset:           start,
		WatchPartitionChanges: true,
		MinBytes:              1,
		MaxBytes:              10e6,
		MaxWait:               time.Second,
		SessionTimeout:        10 * time.Second,
		RebalanceTimeout:      15 * time.Second,
		HeartbeatInterval:     3 * time.Second,
	})
	return newConsumer(r, cfg)
}

func newConsumer(r messageReader, cfg *ConsumerConfig) *Consumer {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	pol := cfg.HandlerPolicy
	if pol.Name == "" {
		pol.Name = "kafka_consume"
	}
	return &Consumer{
		reader: r,
		topic:  cfg.Topic,
		policy: pol,
		log: log.With(
			zap.String("component", "kafka.consumer"),
			zap.String("topic", cfg.Topic),
			zap.String("group", cfg.GroupID),
		),
	}
}

// Consume fetches, handles and commits messages until ctx is done. A message whose
// handler still fails after the policy's attempts is logged and committed, so one
// poison message cannot stall the partition.
func (c *Consumer) Consume(ctx context.Context, h Handler) error {
	c.log.Info("consumer started")
	fetchBackoff := retry.ExpoJitter{Base: 200 * time.Millisecond, Max: 5 * time.Second, Jitter: 0.2}
	failures := 0

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopped")
				return ctx.Err()
			}
			wait := fetchBackoff.Next(failures)
			failures++
			if errors.Is(err, io.EOF) {
				c.log.Debug("fetch EOF", zap.Duration("backoff", wait))
			} else {
				c.log.Warn("fetch failed", zap.Error(err), zap.Duration("backoff", wait))
			}
			if !sleep(ctx, wait) {
				return ctx.Err()
			}
			continue
		}
		failures = 0

		c.handle(ctx, msg, h)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("commit failed", zap.Int64("offset", msg.Offset), zap.Error(err))
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, h Handler) {
	headers := msg.Headers
	msgCtx := otel.GetTextMapPropagator().Extract(ctx, headerCarrier{hs: &headers})
	msgCtx, span := otel.Tracer("kafka.consumer").Start(msgCtx, "kafka.consume "+msg.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	err := retry.Do(msgCtx, func() error { return h(msgCtx, msg.Key, msg.Value) }, c.policy)
	if err == nil {
		mConsumed.WithLabelValues(c.topic, "ok").Inc()
		return
	}
	span.RecordError(err)
	mConsumed.WithLabelValues(c.topic, "skipped").Inc()
	c.log.Error("message skipped after handler failure",
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
		zap.Error(err),
	)
}

func (c *Consumer) Close() error { return c.reader.Close() }

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
