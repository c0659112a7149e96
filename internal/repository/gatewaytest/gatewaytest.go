// Package gatewaytest holds the behaviour every record.Gateway backend must share.
package gatewaytest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/NordCoder/Uptimer/internal/domain"
	"github.com/NordCoder/Uptimer/internal/domain/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Run(t *testing.T, g record.Gateway) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := g.Get(ctx, record.KindChecks, "missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		require.NoError(t, g.Put(ctx, record.KindChecks, "a", []byte(`{"v":1}`)))
		got, err := g.Get(ctx, record.KindChecks, "a")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":1}`, string(got))
	})

	t.Run("last write wins", func(t *testing.T) {
		require.NoError(t, g.Put(ctx, record.KindChecks, "b", []byte(`{"v":1}`)))
		require.NoError(t, g.Put(ctx, record.KindChecks, "b", []byte(`{"v":2}`)))
		got, err := g.Get(ctx, record.KindChecks, "b")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2}`, string(got))
	})

	t.Run("kinds are separate", func(t *testing.T) {
		require.NoError(t, g.Put(ctx, record.KindUsers, "a", []byte(`{"u":true}`)))
		got, err := g.Get(ctx, record.KindChecks, "a")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":1}`, string(got))
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		require.NoError(t, g.Put(ctx, record.KindTokens, "x", []byte(`{}`)))
		require.NoError(t, g.Delete(ctx, record.KindTokens, "x"))
		require.NoError(t, g.Delete(ctx, record.KindTokens, "x"))
		_, err := g.Get(ctx, record.KindTokens, "x")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("list all", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			id := fmt.Sprintf("n%d", i)
			require.NoError(t, g.Put(ctx, record.KindNotifications, id, []byte(fmt.Sprintf(`{"i":%d}`, i))))
		}
		recs, err := g.ListAll(ctx, record.KindNotifications)
		require.NoError(t, err)
		require.Len(t, recs, 3)
		ids := map[string]bool{}
		for _, r := range recs {
			ids[r.ID] = true
		}
		assert.True(t, ids["n0"] && ids["n1"] && ids["n2"])

		empty, err := g.ListAll(ctx, record.KindUserEmails)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("concurrent puts", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				assert.NoError(t, g.Put(ctx, record.KindChecks, "race", []byte(fmt.Sprintf(`{"i":%d}`, i))))
			}(i)
		}
		wg.Wait()
		_, err := g.Get(ctx, record.KindChecks, "race")
		require.NoError(t, err)
	})
}
