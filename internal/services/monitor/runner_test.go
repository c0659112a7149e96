package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/check"
	"github.com/NordCoder/Uptimer/internal/obs/retry"
)

type stubProbe struct {
	calls atomic.Int32
	gate  chan struct{}
	res   check.Result
	err   error
}

func (p *stubProbe) Probe(ctx context.Context, _ check.Check) (check.Result, error) {
	p.calls.Add(1)
	if p.gate != nil {
		select {
		case <-p.gate:
		case <-ctx.Done():
		}
	}
	return p.res, p.err
}

type stubLease struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *stubLease) Acquire(_ context.Context, key string, _ time.Duration) (func(context.Context), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, false, nil
	}
	l.held[key] = true
	return func(context.Context) {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, true, nil
}

func newTestRunner(t *testing.T, f *engineFixture, p Probe, maxConc int) *Runner {
	t.Helper()
	r := NewRunner(zaptest.NewLogger(t), f.reg, p, f.engine, Config{
		Tick: time.Second, Interval: time.Minute, MaxConcurrency: maxConc,
	})
	r.now = func() time.Time { return t0 }
	return r
}

func TestRunner_ProbesDueChecks(t *testing.T) {
	f := newEngineFixture(t, sampleCheck("a"), sampleCheck("b"))
	p := &stubProbe{res: resUp}
	r := newTestRunner(t, f, p, 10)

	assert.Equal(t, 2, r.RunOnce(context.Background()))
	r.Wait()
	assert.EqualValues(t, 2, p.calls.Load())

	for _, id := range []string{"a", "b"} {
		got, ok := f.reg.Get(id)
		require.True(t, ok)
		assert.Equal(t, check.StateUp, got.State)
		assert.Equal(t, t0, got.LastChecked)
	}

	// nothing is due again within the interval
	assert.Equal(t, 0, r.RunOnce(context.Background()))
	r.Wait()
	assert.EqualValues(t, 2, p.calls.Load())
}

func TestRunner_SkipsCheckAlreadyInFlight(t *testing.T) {
	f := newEngineFixture(t, sampleCheck("a"))
	p := &stubProbe{res: resUp, gate: make(chan struct{})}
	r := newTestRunner(t, f, p, 10)
	skipped := mSkipped.WithLabelValues("in_flight")
	before := testutil.ToFloat64(skipped)

	assert.Equal(t, 1, r.RunOnce(context.Background()))
	assert.Equal(t, 0, r.RunOnce(context.Background()))
	assert.Equal(t, before+1, testutil.ToFloat64(skipped))

	close(p.gate)
	r.Wait()
	assert.EqualValues(t, 1, p.calls.Load())
}

func TestRunner_BoundedConcurrency(t *testing.T) {
	f := newEngineFixture(t, sampleCheck("a"), sampleCheck("b"), sampleCheck("c"))
	p := &stubProbe{res: resUp, gate: make(chan struct{})}
	r := newTestRunner(t, f, p, 1)
	saturated := mSkipped.WithLabelValues("saturated")
	before := testutil.ToFloat64(saturated)

	assert.Equal(t, 1, r.RunOnce(context.Background()))
	assert.Equal(t, before+2, testutil.ToFloat64(saturated))

	close(p.gate)
	r.Wait()

	// skipped checks are still due on later ticks
	for i := 0; i < 3 && len(f.reg.DueForExecution(t0, time.Minute)) > 0; i++ {
		assert.GreaterOrEqual(t, r.RunOnce(context.Background()), 1)
		r.Wait()
	}
	assert.Empty(t, f.reg.DueForExecution(t0, time.Minute))
	assert.EqualValues(t, 3, p.calls.Load())
}

func TestRunner_LeaseHeldElsewhere(t *testing.T) {
	f := newEngineFixture(t, sampleCheck("a"), sampleCheck("b"))
	p := &stubProbe{res: resUp}
	lease := &stubLease{held: map[string]bool{"check:a": true}}
	r := newTestRunner(t, f, p, 10).WithLease(lease)

	assert.Equal(t, 1, r.RunOnce(context.Background()))
	r.Wait()

	got, _ := f.reg.Get("b")
	assert.Equal(t, check.StateUp, got.State)
	got, _ = f.reg.Get("a")
	assert.Equal(t, check.StateUnknown, got.State)
	assert.False(t, lease.held["check:b"])
}

func TestRunner_ConfigErrorIsRecorded(t *testing.T) {
	f := newEngineFixture(t, sampleCheck("a"))
	p := &stubProbe{err: domain.NewConfigError("hostname", "must be a bare host[:port]")}
	r := newTestRunner(t, f, p, 10)

	r.RunOnce(context.Background())
	r.Wait()

	got, _ := f.reg.Get("a")
	assert.Equal(t, check.StateUnknown, got.State)
	assert.Equal(t, t0, got.LastChecked)
	assert.Contains(t, got.ConfigError, "hostname")
}

func TestRunner_ShutdownWaitsForProbes(t *testing.T) {
	f := newEngineFixture(t, sampleCheck("a"))
	p := &stubProbe{res: resUp, gate: make(chan struct{})}
	r := newTestRunner(t, f, p, 10)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return p.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
		t.Fatal("Run returned while a probe was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(p.gate)
	require.ErrorIs(t, <-done, context.Canceled)

	got, _ := f.reg.Get("a")
	assert.Equal(t, check.StateUp, got.State)
}

func TestRunner_StorageOutageKeepsInterval(t *testing.T) {
	f := newEngineFixture(t, sampleCheck("a"))
	f.checks.setFail(true)
	p := &stubProbe{res: resUp}
	r := newTestRunner(t, f, p, 10)

	for i := range 5 {
		now := t0.Add(time.Duration(i) * time.Second)
		r.now = func() time.Time { return now }
		r.RunOnce(context.Background())
		r.Wait()
	}
	assert.EqualValues(t, 1, p.calls.Load())

	got, _ := f.reg.Get("a")
	assert.Equal(t, check.StateUnknown, got.State, "unpersisted state must not become visible")

	f.checks.setFail(false)
	r.now = func() time.Time { return t0.Add(time.Minute) }
	assert.Equal(t, 1, r.RunOnce(context.Background()))
	r.Wait()
	got, _ = f.reg.Get("a")
	assert.Equal(t, check.StateUp, got.State)
	assert.Equal(t, t0.Add(time.Minute), got.LastChecked)
}

func TestRunner_PendingAlertRetriesBackOff(t *testing.T) {
	c := sampleCheck("a")
	c.State = check.StateUp
	f := newEngineFixture(t, c)
	f.disp.setFail(true)
	f.engine.flushBackoff = retry.ExpoJitter{Base: 10 * time.Second, Max: time.Minute}
	p := &stubProbe{res: resDown}
	r := newTestRunner(t, f, p, 10)

	tickAt := func(d time.Duration) {
		now := t0.Add(d)
		r.now = func() time.Time { return now }
		f.engine.now = r.now
		r.RunOnce(context.Background())
		r.Wait()
	}

	for i := range 5 {
		tickAt(time.Duration(i) * time.Second)
	}
	assert.EqualValues(t, 1, p.calls.Load())
	// the transition and one failed delivery status
	assert.Equal(t, 2, f.checks.putCount())

	tickAt(10 * time.Second)
	assert.Equal(t, 3, f.checks.putCount())
	tickAt(29 * time.Second)
	assert.Equal(t, 3, f.checks.putCount())

	f.disp.setFail(false)
	tickAt(30 * time.Second)
	require.Len(t, f.disp.alerts(), 1)
	got, _ := f.reg.Get("a")
	assert.Empty(t, got.Pending)
	assert.True(t, got.LastAlert.Delivered)
}
