// Package dbtest opens throwaway databases for package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/notepid/lexcircle/internal/db"
)

// Open returns a migrated database in the test's temp dir, closed on cleanup.
func Open(t testing.TB) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}
