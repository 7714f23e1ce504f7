package db

import (
	"context"
	"testing"
	"time"

	"tool_lending_tracker/models"

	"github.com/stretchr/testify/require"
)

var testClock = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

// newTestRepo opens a migrated in-memory SQLite store with a fixed clock.
func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	conn, err := Open(Options{Driver: DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	r := NewRepo(conn)
	now := testClock
	r.Now = func() time.Time { return now }
	return r
}

func seedTool(t *testing.T, r *Repo, name string) models.Tool {
	t.Helper()
	ts, err := r.CreateTools(context.Background(), name, nil, 1)
	require.NoError(t, err)
	require.Len(t, ts, 1)
	return ts[0]
}

func countRows(t *testing.T, r *Repo, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := r.DB.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}
