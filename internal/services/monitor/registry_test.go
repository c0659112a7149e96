package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/check"
)

type listOnly []check.Check

func (l listOnly) List(context.Context) ([]check.Check, error) { return l, nil }

func TestRegistry_DueForExecution(t *testing.T) {
	reg := NewRegistry()

	never := sampleCheck("never")
	stale := sampleCheck("stale")
	stale.LastChecked = t0.Add(-2 * time.Minute)
	fresh := sampleCheck("fresh")
	fresh.LastChecked = t0.Add(-10 * time.Second)
	edge := sampleCheck("edge")
	edge.LastChecked = t0.Add(-time.Minute)

	require.NoError(t, reg.Load(context.Background(), listOnly{fresh, stale, never, edge}))
	assert.Equal(t, 4, reg.Len())

	due := reg.DueForExecution(t0, time.Minute)
	ids := make([]string, 0, len(due))
	for _, c := range due {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"never", "stale", "edge"}, ids)
}

func TestRegistry_UpsertRemoveIdempotent(t *testing.T) {
	reg := NewRegistry()
	c := sampleCheck("c1")

	reg.Upsert(c)
	reg.Upsert(c)
	assert.Equal(t, 1, reg.Len())

	c.Path = "/health"
	reg.Upsert(c)
	got, ok := reg.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "/health", got.Path)

	reg.Remove("c1")
	reg.Remove("c1")
	assert.Equal(t, 0, reg.Len())
	_, ok = reg.Get("c1")
	assert.False(t, ok)
}

func TestRegistry_SnapshotsAreCopies(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert(sampleCheck("c1"))

	got, _ := reg.Get("c1")
	got.SuccessCodes[0] = 500
	got.State = check.StateDown

	again, _ := reg.Get("c1")
	assert.Equal(t, []int{200}, again.SuccessCodes)
	assert.Equal(t, check.StateUnknown, again.State)
}

func TestRegistry_InFlightGuard(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert(sampleCheck("c1"))

	require.True(t, reg.TryAcquire("c1"))
	assert.False(t, reg.TryAcquire("c1"))
	reg.Release("c1")
	assert.True(t, reg.TryAcquire("c1"))

	assert.False(t, reg.TryAcquire("missing"))
}

func TestRegistry_MutateAfterRemoveIsDropped(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert(sampleCheck("c1"))
	store := &fakeChecks{}

	reg.Remove("c1")
	_, err := reg.Mutate(context.Background(), "c1", func(c *check.Check) error {
		c.State = check.StateDown
		return nil
	}, store.Put)
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, store.puts)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistry_MutatePersistFailureKeepsOldValue(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert(sampleCheck("c1"))
	store := &fakeChecks{fail: true}

	_, err := reg.Mutate(context.Background(), "c1", func(c *check.Check) error {
		c.State = check.StateUp
		return nil
	}, store.Put)
	require.Error(t, err)
	assert.True(t, domain.IsStorageError(err))

	got, _ := reg.Get("c1")
	assert.Equal(t, check.StateUnknown, got.State)
}

func TestRegistry_StartedAttemptCountsAsRun(t *testing.T) {
	reg := NewRegistry()
	reg.Upsert(sampleCheck("c1"))

	reg.MarkAttempt("c1", t0)
	assert.Empty(t, reg.DueForExecution(t0.Add(59*time.Second), time.Minute))
	assert.Len(t, reg.DueForExecution(t0.Add(time.Minute), time.Minute), 1)

	// a reset baseline is due right away again
	_, err := reg.Mutate(context.Background(), "c1", func(c *check.Check) error {
		c.Reset(t0)
		return nil
	}, func(context.Context, check.Check) error { return nil })
	require.NoError(t, err)
	assert.Len(t, reg.DueForExecution(t0.Add(time.Second), time.Minute), 1)
}

func TestRegistry_UpsertAfterConcurrentRemoveReinserts(t *testing.T) {
	reg := NewRegistry()
	c := sampleCheck("c1")
	reg.Upsert(c)

	reg.mu.RLock()
	stale := reg.entries["c1"]
	reg.mu.RUnlock()
	reg.Remove("c1")

	c.Path = "/v2"
	assert.False(t, reg.replace(stale, c), "removed entry must not take writes")

	reg.Upsert(c)
	got, ok := reg.Get("c1")
	require.True(t, ok)
	assert.Equal(t, "/v2", got.Path)
}

func TestRegistry_DeferFlushHidesPendingUntilDue(t *testing.T) {
	reg := NewRegistry()
	c := sampleCheck("c1")
	c.Pending = []check.Transition{{Key: "c1:1", From: check.StateUp, To: check.StateDown, At: t0}}
	reg.Upsert(c)
	require.Len(t, reg.WithPendingAlerts(t0), 1)

	var fails []int
	backoff := func(n int) time.Duration {
		fails = append(fails, n)
		return 10 * time.Second << n
	}
	reg.DeferFlush("c1", t0, backoff)
	assert.Empty(t, reg.WithPendingAlerts(t0.Add(9*time.Second)))
	assert.Len(t, reg.WithPendingAlerts(t0.Add(10*time.Second)), 1)

	reg.DeferFlush("c1", t0.Add(10*time.Second), backoff)
	assert.Empty(t, reg.WithPendingAlerts(t0.Add(29*time.Second)))
	assert.Len(t, reg.WithPendingAlerts(t0.Add(30*time.Second)), 1)
	assert.Equal(t, []int{0, 1}, fails)

	reg.FlushSucceeded("c1")
	reg.DeferFlush("c1", t0, backoff)
	assert.Equal(t, []int{0, 1, 0}, fails)
}
