package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/NordCoder/Uptimer/internal/domain/record"
	"github.com/NordCoder/Uptimer/internal/repository/gatewaytest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway(t *testing.T) {
	g, err := NewGateway(t.TempDir())
	require.NoError(t, err)
	gatewaytest.Run(t, g)
}

func TestGateway_Layout(t *testing.T) {
	dir := t.TempDir()
	g, err := NewGateway(dir)
	require.NoError(t, err)

	require.NoError(t, g.Put(context.Background(), record.KindUserEmails, "a/b@example.com", []byte(`"u1"`)))

	entries, err := os.ReadDir(filepath.Join(dir, "user_emails"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a%2Fb@example.com.json", entries[0].Name())

	recs, err := g.ListAll(context.Background(), record.KindUserEmails)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a/b@example.com", recs[0].ID)
}
