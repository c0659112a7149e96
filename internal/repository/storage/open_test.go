package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/NordCoder/Uptimer/internal/domain/record"
)

func TestOpen_LocalDrivers(t *testing.T) {
	dir := t.TempDir()
	cases := []Config{
		{Driver: DriverMemory},
		{Driver: DriverFile, FileDir: filepath.Join(dir, "files")},
		{Driver: DriverSQLite, SQLitePath: filepath.Join(dir, "uptimer.db")},
	}
	for _, cfg := range cases {
		t.Run(cfg.Driver, func(t *testing.T) {
			ctx := context.Background()
			s, err := Open(ctx, cfg, zaptest.NewLogger(t))
			require.NoError(t, err)
			defer s.Close()

			require.NoError(t, s.Ping(ctx))
			assert.Nil(t, s.PG)
			require.NoError(t, s.Gateway.Put(ctx, record.KindChecks, "c1", []byte(`{"id":"c1"}`)))
			got, err := s.Gateway.Get(ctx, record.KindChecks, "c1")
			require.NoError(t, err)
			assert.JSONEq(t, `{"id":"c1"}`, string(got))
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "mongo"}, zaptest.NewLogger(t))
	require.Error(t, err)
}
