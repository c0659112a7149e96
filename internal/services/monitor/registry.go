package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/check"
)

type CheckLister interface {
	List(ctx context.Context) ([]check.Check, error)
}

// entry owns one check. mu serializes writers of that check; inFlight marks a probe or
// alert delivery in progress. Neither is held by the registry's index lock.
//
// lastAttempt and flushAfter are scheduling state only and are never persisted:
// lastAttempt is when a probe was last started, flushAfter is the earliest time pending
// alerts may be retried after a failed delivery.
type entry struct {
	mu          sync.Mutex
	c           check.Check
	removed     bool
	inFlight    atomic.Bool
	lastAttempt time.Time
	flushAfter  time.Time
	flushFails  int
}

// lastRun is the later of the last persisted evaluation and the last started probe.
func (e *entry) lastRun() time.Time {
	if e.lastAttempt.After(e.c.LastChecked) {
		return e.lastAttempt
	}
	return e.c.LastChecked
}

// Registry is the in-memory index of all checks. Reads return copies.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Load adds every persisted check. A storage failure aborts the load.
func (r *Registry) Load(ctx context.Context, repo CheckLister) error {
	all, err := repo.List(ctx)
	if err != nil {
		return fmt.Errorf("load checks: %w", err)
	}
	for _, c := range all {
		r.Upsert(c)
	}
	return nil
}

// Upsert inserts or replaces the check with c.ID. An Upsert racing a Remove of the
// same id re-inserts the check instead of writing into the removed entry.
func (r *Registry) Upsert(c check.Check) {
	c = c.Clone()
	for {
		r.mu.Lock()
		e, ok := r.entries[c.ID]
		if !ok {
			r.entries[c.ID] = &entry{c: c}
			r.mu.Unlock()
			return
		}
		r.mu.Unlock()

		if r.replace(e, c) {
			return
		}
	}
}

// replace swaps the check held by e. It fails once e has been removed.
func (r *Registry) replace(e *entry, c check.Check) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return false
	}
	e.c = c
	if c.LastChecked.IsZero() {
		e.lastAttempt = time.Time{}
	}
	return true
}

// Remove drops the check. It waits for a write of the same check to finish, and any
// later write from a probe that was already running is discarded.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if !ok {
		return
	}
	e.mu.Lock()
	e.removed = true
	e.mu.Unlock()
}

func (r *Registry) Get(id string) (check.Check, bool) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return check.Check{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return check.Check{}, false
	}
	return e.c.Clone(), true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// DueForExecution returns checks never run or last run at least interval ago, oldest
// first. A probe that was started counts as a run even if its result was never stored,
// so a storage outage does not shorten the cadence.
func (r *Registry) DueForExecution(now time.Time, interval time.Duration) []check.Check {
	return r.collect(func(e *entry) bool {
		last := e.lastRun()
		return last.IsZero() || now.Sub(last) >= interval
	})
}

// WithPendingAlerts returns checks holding transitions not yet handed to the dispatcher
// whose retry delay, if any, has passed.
func (r *Registry) WithPendingAlerts(now time.Time) []check.Check {
	return r.collect(func(e *entry) bool {
		return len(e.c.Pending) > 0 && !now.Before(e.flushAfter)
	})
}

// MarkAttempt records that a probe of id started at.
func (r *Registry) MarkAttempt(id string, at time.Time) {
	r.withEntry(id, func(e *entry) {
		if at.After(e.lastAttempt) {
			e.lastAttempt = at
		}
	})
}

// DeferFlush postpones pending alert delivery of id after a failed attempt. backoff gets
// the number of consecutive failures so far, starting at zero.
func (r *Registry) DeferFlush(id string, now time.Time, backoff func(fails int) time.Duration) {
	r.withEntry(id, func(e *entry) {
		e.flushAfter = now.Add(backoff(e.flushFails))
		e.flushFails++
	})
}

// FlushSucceeded clears the retry delay of id.
func (r *Registry) FlushSucceeded(id string) {
	r.withEntry(id, func(e *entry) {
		e.flushAfter = time.Time{}
		e.flushFails = 0
	})
}

func (r *Registry) withEntry(id string, fn func(e *entry)) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.removed {
		fn(e)
	}
}

func (r *Registry) collect(match func(e *entry) bool) []check.Check {
	r.mu.RLock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.RUnlock()

	var out []check.Check
	for _, e := range entries {
		e.mu.Lock()
		if !e.removed && match(e) {
			out = append(out, e.c.Clone())
		}
		e.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastChecked.Equal(out[j].LastChecked) {
			return out[i].LastChecked.Before(out[j].LastChecked)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// TryAcquire marks the check in flight. It fails if the check is unknown or already in flight.
func (r *Registry) TryAcquire(id string) bool {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	return e.inFlight.CompareAndSwap(false, true)
}

func (r *Registry) Release(id string) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if ok {
		e.inFlight.Store(false)
	}
}

// Mutate applies fn to a copy of the check, persists the copy and only then makes it
// visible. The entry stays locked for the whole sequence. It returns domain.ErrNotFound
// if the check was removed, and leaves the entry untouched if fn or persist fail.
func (r *Registry) Mutate(ctx context.Context, id string, fn func(c *check.Check) error,
	persist func(ctx context.Context, c check.Check) error) (check.Check, error) {
	r.mu.RLock()
	e, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return check.Check{}, fmt.Errorf("check %s: %w", id, domain.ErrNotFound)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed {
		return check.Check{}, fmt.Errorf("check %s: %w", id, domain.ErrNotFound)
	}

	next := e.c.Clone()
	if err := fn(&next); err != nil {
		return check.Check{}, err
	}
	if err := persist(ctx, next); err != nil {
		return check.Check{}, err
	}
	e.c = next
	if next.LastChecked.IsZero() {
		e.lastAttempt = time.Time{}
	}
	return next.Clone(), nil
}
