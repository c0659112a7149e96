package check

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/check"
	"github.com/NordCoder/Uptimer/internal/domain/user"
	"github.com/NordCoder/Uptimer/internal/services/api/userlock"
)

// Registry is the live view of checks the scheduler works from.
type Registry interface {
	Upsert(c check.Check)
	Remove(id string)
	Get(id string) (check.Check, bool)
	Mutate(ctx context.Context, id string, fn func(c *check.Check) error,
		persist func(ctx context.Context, c check.Check) error) (check.Check, error)
}

type Input struct {
	Protocol     *string `json:"protocol"`
	Hostname     *string `json:"hostname"`
	Path         *string `json:"path"`
	Method       *string `json:"method"`
	SuccessCodes []int   `json:"successCodes"`
	TimeoutSec   *int    `json:"timeoutSeconds"`
}

func (in Input) empty() bool {
	return in.Protocol == nil && in.Hostname == nil && in.Path == nil &&
		in.Method == nil && in.SuccessCodes == nil && in.TimeoutSec == nil
}

func (in Input) applyTo(c *check.Check) {
	if in.Protocol != nil {
		c.Protocol = *in.Protocol
	}
	if in.Hostname != nil {
		c.Hostname = *in.Hostname
	}
	if in.Path != nil {
		c.Path = *in.Path
	}
	if in.Method != nil {
		c.Method = *in.Method
	}
	if in.SuccessCodes != nil {
		c.SuccessCodes = append([]int(nil), in.SuccessCodes...)
	}
	if in.TimeoutSec != nil {
		c.TimeoutSec = *in.TimeoutSec
	}
}

type Usecase struct {
	checks check.Repo
	users  user.Repo
	reg    Registry
	locks  *userlock.Locker
	clk    func() time.Time
}

func New(checks check.Repo, users user.Repo, reg Registry, locks *userlock.Locker, clk func() time.Time) *Usecase {
	if clk == nil {
		clk = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{checks: checks, users: users, reg: reg, locks: locks, clk: clk}
}

// Create stores a new check for the owner and registers it for monitoring. The quota
// is checked under the owner's lock so concurrent creates cannot exceed it.
func (u *Usecase) Create(ctx context.Context, ownerID string, in Input) (check.Check, error) {
	now := u.clk()
	c := check.Check{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		State:     check.StateUnknown,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.applyTo(&c)
	if err := c.Validate(); err != nil {
		return check.Check{}, err
	}

	unlock := u.locks.Lock(ownerID)
	defer unlock()

	owner, err := u.users.GetByID(ctx, ownerID)
	if err != nil {
		return check.Check{}, err
	}
	if len(owner.Checks) >= user.MaxChecks {
		return check.Check{}, fmt.Errorf("%w: a user may have at most %d checks", domain.ErrQuotaExceeded, user.MaxChecks)
	}

	if err := u.checks.Put(ctx, c); err != nil {
		return check.Check{}, err
	}
	owner.Checks = append(owner.Checks, c.ID)
	owner.UpdatedAt = now
	if err := u.users.Update(ctx, owner); err != nil {
		_ = u.checks.Delete(ctx, c.ID)
		return check.Check{}, err
	}
	u.reg.Upsert(c)
	return c, nil
}

// Get returns the live check, falling back to storage when the registry does not have it.
func (u *Usecase) Get(ctx context.Context, requesterID, id string) (check.Check, error) {
	c, ok := u.reg.Get(id)
	if !ok {
		var err error
		if c, err = u.checks.Get(ctx, id); err != nil {
			return check.Check{}, err
		}
	}
	if c.OwnerID != requesterID {
		return check.Check{}, domain.ErrForbidden
	}
	return c, nil
}

func (u *Usecase) List(ctx context.Context, requesterID string) ([]check.Check, error) {
	owner, err := u.users.GetByID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	out := make([]check.Check, 0, len(owner.Checks))
	for _, id := range owner.Checks {
		c, err := u.Get(ctx, requesterID, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Update changes the probe configuration. Observed state is left alone; the write goes
// through the registry so it cannot interleave with a probe result for the same check.
func (u *Usecase) Update(ctx context.Context, requesterID, id string, in Input) (check.Check, error) {
	if in.empty() {
		return check.Check{}, fmt.Errorf("%w: nothing to update", domain.ErrInvalidInput)
	}
	return u.reg.Mutate(ctx, id, func(c *check.Check) error {
		if c.OwnerID != requesterID {
			return domain.ErrForbidden
		}
		in.applyTo(c)
		if err := c.Validate(); err != nil {
			return err
		}
		c.ConfigError = ""
		c.UpdatedAt = u.clk()
		return nil
	}, u.checks.Put)
}

// Reset returns the check to the unknown state so the next probe establishes a fresh
// baseline. Alerts for transitions before the reset are still delivered.
func (u *Usecase) Reset(ctx context.Context, requesterID, id string) (check.Check, error) {
	return u.reg.Mutate(ctx, id, func(c *check.Check) error {
		if c.OwnerID != requesterID {
			return domain.ErrForbidden
		}
		c.Reset(u.clk())
		return nil
	}, u.checks.Put)
}

// Delete removes the check from the registry before storage so an in-flight probe
// cannot write it back.
func (u *Usecase) Delete(ctx context.Context, requesterID, id string) error {
	unlock := u.locks.Lock(requesterID)
	defer unlock()

	if _, err := u.Get(ctx, requesterID, id); err != nil {
		return err
	}
	if err := u.remove(ctx, id); err != nil {
		return err
	}

	owner, err := u.users.GetByID(ctx, requesterID)
	if err != nil {
		return err
	}
	owner.RemoveCheck(id)
	owner.UpdatedAt = u.clk()
	return u.users.Update(ctx, owner)
}

// RemoveOwned deletes every check of u. The caller holds u's lock. It stops at the
// first storage failure; that check and the ones after it stay monitored.
func (u *Usecase) RemoveOwned(ctx context.Context, owner *user.User) error {
	for _, id := range owner.Checks {
		if err := u.remove(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// remove unregisters the check and deletes it from storage. When the delete fails
// the check is registered again so it is not left stored but unmonitored.
func (u *Usecase) remove(ctx context.Context, id string) error {
	live, registered := u.reg.Get(id)
	u.reg.Remove(id)
	err := u.checks.Delete(ctx, id)
	if err == nil || errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if registered {
		u.reg.Upsert(live)
	}
	return fmt.Errorf("delete check %s: %w", id, err)
}
