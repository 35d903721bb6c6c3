package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/notepid/lexcircle/internal/app"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
paths:
  data: `+filepath.Join(dir, "data")+`
  database: `+filepath.Join(dir, "data", "app.db")+`
`), 0o644))
	return cfgPath
}

func openApp(t *testing.T, cfgPath string) *app.App {
	t.Helper()
	a, cleanup, err := app.New(cfgPath, app.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	t.Cleanup(cleanup)
	return a
}

func TestRedactRequiresAccount(t *testing.T) {
	cfgPath := writeConfig(t)
	err := newCommand(&bytes.Buffer{}).Run(context.Background(), []string{"lexcircle", "-c", cfgPath, "redact"})
	require.ErrorIs(t, err, errAccountRequired)
}

func TestRedactSettlesQueuedJob(t *testing.T) {
	ctx := context.Background()
	cfgPath := writeConfig(t)

	seed, cleanup, err := app.New(cfgPath, app.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	_, err = seed.DB.Exec(`INSERT INTO accounts (id, username, display_name, created_at, updated_at)
		VALUES ('alice', 'alice', 'Alice', 0, 0)`)
	require.NoError(t, err)
	_, err = seed.Posts.Create(ctx, "alice", "Notes on arbitration clauses")
	require.NoError(t, err)
	require.NoError(t, seed.Jobs.Enqueue(ctx, "alice"))
	cleanup()

	var out bytes.Buffer
	require.NoError(t, newCommand(&out).Run(ctx, []string{"lexcircle", "-c", cfgPath, "redact", "alice"}))
	assert.Contains(t, out.String(), "1 posts rewritten, 0 remaining")

	a := openApp(t, cfgPath)
	pending, err := a.Jobs.Pending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	recent, err := a.Jobs.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "completed", string(recent[0].Status))
}
