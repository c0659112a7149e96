package check

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/check"
	"github.com/NordCoder/Uptimer/internal/domain/user"
	"github.com/NordCoder/Uptimer/internal/repository/memory"
	"github.com/NordCoder/Uptimer/internal/repository/records"
	"github.com/NordCoder/Uptimer/internal/services/api/userlock"
	"github.com/NordCoder/Uptimer/internal/services/monitor"
)

// flakyChecks fails Delete for the ids in failOn.
type flakyChecks struct {
	check.Repo
	failOn map[string]bool
}

func (f *flakyChecks) Delete(ctx context.Context, id string) error {
	if f.failOn[id] {
		return &domain.StorageError{Op: "delete", Kind: "checks", ID: id, Err: errors.New("disk full")}
	}
	return f.Repo.Delete(ctx, id)
}

func seeded(t *testing.T, ids ...string) (*Usecase, *flakyChecks, *monitor.Registry) {
	t.Helper()
	ctx := context.Background()
	g := memory.NewGateway()
	checks := &flakyChecks{Repo: records.NewCheckRepo(g), failOn: map[string]bool{}}
	reg := monitor.NewRegistry()
	for _, id := range ids {
		c := check.Check{
			ID: id, OwnerID: "u1", Protocol: "https", Hostname: "example.com",
			Method: "GET", SuccessCodes: []int{200}, TimeoutSec: 2, State: check.StateUnknown,
		}
		require.NoError(t, checks.Put(ctx, c))
		reg.Upsert(c)
	}
	return New(checks, records.NewUserRepo(g), reg, userlock.New(), nil), checks, reg
}

func TestRemoveOwned_StorageFailureKeepsRemainingMonitored(t *testing.T) {
	uc, checks, reg := seeded(t, "a", "b", "c")
	checks.failOn["b"] = true

	err := uc.RemoveOwned(context.Background(), &user.User{ID: "u1", Checks: []string{"a", "b", "c"}})
	var se *domain.StorageError
	require.ErrorAs(t, err, &se)

	_, ok := reg.Get("a")
	assert.False(t, ok)
	for _, id := range []string{"b", "c"} {
		_, ok := reg.Get(id)
		assert.True(t, ok, "check %s is still stored and must stay registered", id)
		_, err := checks.Get(context.Background(), id)
		require.NoError(t, err)
	}

	checks.failOn["b"] = false
	require.NoError(t, uc.RemoveOwned(context.Background(), &user.User{ID: "u1", Checks: []string{"b", "c"}}))
	assert.Equal(t, 0, reg.Len())
}
