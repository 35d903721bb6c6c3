package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewWiresServices(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
paths:
  data: `+filepath.Join(dir, "data")+`
  database: `+filepath.Join(dir, "data", "app.db")+`
redaction:
  batch_size: 10
`), 0o644))

	a, cleanup, err := New(cfgPath, WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, 10, a.Config.Redaction.BatchSize)
	require.NotNil(t, a.Reconciler)

	summary, err := a.Reconciler.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, summary.Accounts)

	_, err = os.Stat(filepath.Join(dir, "data", "app.db"))
	assert.NoError(t, err)
}
