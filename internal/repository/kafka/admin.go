package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	MaxWait           time.Duration
}

// EnsureTopic creates the topic if it does not exist and waits until the cluster
// reports partitions for it. An existing topic is not altered.
func EnsureTopic(ctx context.Context, brokers []string, spec TopicSpec, log *zap.Logger) error {
	if len(brokers) == 0 {
		return errors.New("kafka: no brokers configured")
	}
	if log == nil {
		log = zap.NewNop()
	}
	spec.NumPartitions = max(spec.NumPartitions, 1)
	spec.ReplicationFactor = max(spec.ReplicationFactor, 1)
	if spec.MaxWait <= 0 {
		spec.MaxWait = 5 * time.Second
	}
	log = log.With(zap.String("topic", spec.Name))

	ctx, cancel := context.WithTimeout(ctx, spec.MaxWait)
	defer cancel()

	client := &kafka.Client{Addr: kafka.TCP(brokers...), Timeout: spec.MaxWait}
	resp, err := client.CreateTopics(ctx, &kafka.CreateTopicsRequest{
		Topics: []kafka.TopicConfig{{
			Topic:             spec.Name,
			NumPartitions:     spec.NumPartitions,
			ReplicationFactor: spec.ReplicationFactor,
		}},
	})
	if err != nil {
		return fmt.Errorf("create topic %s: %w", spec.Name, err)
	}
	switch terr := resp.Errors[spec.Name]; {
	case terr == nil:
		log.Info("topic created", zap.Int("partitions", spec.NumPartitions))
	case errors.Is(terr, kafka.TopicAlreadyExists):
		log.Debug("topic already exists")
	default:
		return fmt.Errorf("create topic %s: %w", spec.Name, terr)
	}

	for {
		md, err := client.Metadata(ctx, &kafka.MetadataRequest{Topics: []string{spec.Name}})
		if err == nil && len(md.Topics) == 1 && md.Topics[0].Error == nil && len(md.Topics[0].Partitions) > 0 {
			log.Info("topic ready", zap.Int("partitions", len(md.Topics[0].Partitions)))
			return nil
		}
		if !sleep(ctx, 200*time.Millisecond) {
			return fmt.Errorf("topic %s not ready within %s", spec.Name, spec.MaxWait)
		}
	}
}
