package outbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestTrace_CarriesSpanContext(t *testing.T) {
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3},
		SpanID:     trace.SpanID{4, 5, 6},
		TraceFlags: trace.FlagsSampled,
	})
	prop := propagation.TraceContext{}

	var tc Trace
	prop.Inject(trace.ContextWithSpanContext(context.Background(), sc), &tc)
	assert.NotEmpty(t, tc.Parent)

	got := trace.SpanContextFromContext(prop.Extract(context.Background(), &tc))
	assert.Equal(t, sc.TraceID(), got.TraceID())
	assert.Equal(t, sc.SpanID(), got.SpanID())
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "alert", KindAlert.String())
	assert.Equal(t, "kind(7)", Kind(7).String())
}
