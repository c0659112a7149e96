package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/NordCoder/Uptimer/internal/domain/alert"
	"github.com/NordCoder/Uptimer/internal/domain/outbox"
	"github.com/NordCoder/Uptimer/internal/obs/retry"
)

type AlertPublisher interface {
	PublishAlert(ctx context.Context, a alert.Alert) error
}

var mHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "uptimer", Subsystem: "outbox",
	Name: "handler_duration_seconds", Help: "Kind handler latency including retries.",
	Buckets: prometheus.DefBuckets,
}, []string{"kind"})

// withRetry runs h under pol and records its latency.
func withRetry(kind string, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	if pol.Name == "" {
		pol.Name = "outbox_" + kind
	}
	return func(ctx context.Context, data []byte) error {
		start := time.Now()
		defer func() { mHandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds()) }()
		return retry.Do(ctx, func() error { return h(ctx, data) }, pol)
	}
}

// MakeGlobalOutboxHandler routes alert messages to pub. Undecodable payloads fail
// permanently; they stay in the table for inspection.
func MakeGlobalOutboxHandler(pub AlertPublisher, pol retry.Policy) outbox.GlobalHandler {
	alerts := withRetry("alert", func(ctx context.Context, data []byte) error {
		var a alert.Alert
		if err := json.Unmarshal(data, &a); err != nil {
			return retry.Permanent(fmt.Errorf("decode alert payload: %w", err))
		}
		return pub.PublishAlert(ctx, a)
	}, pol)

	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindAlert:
			return alerts, nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}
