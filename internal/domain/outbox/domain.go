// Package outbox describes durable alert events waiting to be relayed to the broker.
package outbox

import (
	"context"
	"strconv"
	"time"
)

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusSuccess    Status = "SUCCESS"
)

// Kind selects the relay handler. Values are stored, never renumber them.
type Kind int

const (
	KindAlert Kind = 1
)

func (k Kind) String() string {
	if k == KindAlert {
		return "alert"
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Trace is the W3C trace context captured when a message was enqueued.
// It satisfies propagation.TextMapCarrier through its pointer.
type Trace struct {
	Parent  string
	State   string
	Baggage string
}

func (t *Trace) Get(key string) string {
	switch key {
	case "traceparent":
		return t.Parent
	case "tracestate":
		return t.State
	case "baggage":
		return t.Baggage
	}
	return ""
}

func (t *Trace) Set(key, value string) {
	switch key {
	case "traceparent":
		t.Parent = value
	case "tracestate":
		t.State = value
	case "baggage":
		t.Baggage = value
	}
}

func (t *Trace) Keys() []string { return []string{"traceparent", "tracestate", "baggage"} }

type Message struct {
	IdempotencyKey string
	Kind           Kind
	Data           []byte
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Trace          Trace
}

// Repository stores messages until the relay confirms them.
// Enqueue ignores a key that already exists.
type Repository interface {
	Enqueue(ctx context.Context, key string, kind Kind, data []byte) error
	// PickBatch claims up to batch messages that are new or whose claim is older than inProgressTTL.
	PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]Message, error)
	MarkSuccess(ctx context.Context, keys []string) error
}

type KindHandler func(ctx context.Context, data []byte) error

type GlobalHandler func(kind Kind) (KindHandler, error)
