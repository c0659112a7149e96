package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/alert"
	"github.com/NordCoder/Uptimer/internal/domain/check"
	"github.com/NordCoder/Uptimer/internal/domain/user"
)

var errBoom = errors.New("boom")

type fakeChecks struct {
	mu   sync.Mutex
	fail bool
	puts []check.Check
}

func (f *fakeChecks) Put(_ context.Context, c check.Check) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return &domain.StorageError{Op: "put", Kind: "checks", ID: c.ID, Err: errBoom}
	}
	f.puts = append(f.puts, c.Clone())
	return nil
}

func (f *fakeChecks) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeChecks) last() check.Check {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts[len(f.puts)-1]
}

type fakeUsers map[string]*user.User

func (f fakeUsers) GetByID(_ context.Context, id string) (*user.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

type fakeDispatcher struct {
	mu   sync.Mutex
	fail bool
	sent []alert.Alert
}

func (f *fakeDispatcher) Send(_ context.Context, a alert.Alert) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errBoom
	}
	f.sent = append(f.sent, a)
	return nil
}

func (f *fakeDispatcher) setFail(v bool) {
	f.mu.Lock()
	f.fail = v
	f.mu.Unlock()
}

func (f *fakeDispatcher) alerts() []alert.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]alert.Alert(nil), f.sent...)
}

func sampleCheck(id string) check.Check {
	return check.Check{
		ID:           id,
		OwnerID:      "u1",
		Protocol:     "https",
		Hostname:     "example.com",
		Method:       "GET",
		SuccessCodes: []int{200},
		TimeoutSec:   2,
		State:        check.StateUnknown,
	}
}

type engineFixture struct {
	reg    *Registry
	checks *fakeChecks
	disp   *fakeDispatcher
	engine *Engine
}

func newEngineFixture(t *testing.T, cs ...check.Check) *engineFixture {
	t.Helper()
	f := &engineFixture{
		reg:    NewRegistry(),
		checks: &fakeChecks{},
		disp:   &fakeDispatcher{},
	}
	for _, c := range cs {
		f.reg.Upsert(c)
	}
	users := fakeUsers{"u1": {ID: "u1", Email: "owner@example.com", Phone: "+15550001111"}}
	f.engine = NewEngine(zaptest.NewLogger(t), f.reg, f.checks, users, f.disp)
	return f
}

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func (f *fakeChecks) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}
