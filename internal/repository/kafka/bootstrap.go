package kafka

import (
	"context"

	"go.uber.org/zap"
)

// BootstrapConsumer makes sure the topic exists before joining the group. Failing to
// create it is logged, not fatal: the broker may auto-create or another binary may.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, spec TopicSpec, logger *zap.Logger) *Consumer {
	spec.Name = cfg.Topic
	if err := EnsureTopic(ctx, cfg.Brokers, spec, logger); err != nil && logger != nil {
		logger.Warn("ensure topic", zap.String("topic", cfg.Topic), zap.Error(err))
	}
	return NewConsumer(cfg)
}
