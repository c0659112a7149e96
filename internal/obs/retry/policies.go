package retry

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

func notCanceled(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

// DefaultKafkaPolicy backs the outbox relay. It retries for roughly a minute, after
// which the message is picked again on a later batch.
func DefaultKafkaPolicy(log *zap.Logger) Policy {
	if log == nil {
		log = zap.NewNop()
	}
	return Policy{
		Name:      "outbox_alert",
		Attempts:  6,
		Backoff:   ExpoJitter{Base: 200 * time.Millisecond, Max: 30 * time.Second, Jitter: 0.2},
		Retryable: notCanceled,
		OnAttempt: func(i int, err error) {
			log.Warn("kafka publish retry", zap.Int("attempt", i+1), zap.Error(err))
		},
		OnExhaust: func(err error) {
			if notCanceled(err) {
				log.Error("kafka publish gave up", zap.Error(err))
			}
		},
	}
}

// DeliveryPolicy is for one SMS or e-mail send: a few quick attempts, then the error
// goes back to the caller which keeps the alert pending.
func DeliveryPolicy(name string, log *zap.Logger) Policy {
	if log == nil {
		log = zap.NewNop()
	}
	return Policy{
		Name:      name,
		Attempts:  3,
		Backoff:   ExpoJitter{Base: 250 * time.Millisecond, Max: 2 * time.Second, Jitter: 0.2},
		Retryable: notCanceled,
		OnAttempt: func(i int, err error) {
			log.Warn("delivery retry", zap.String("policy", name), zap.Int("attempt", i+1), zap.Error(err))
		},
	}
}
