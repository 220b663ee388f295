package database

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T, profile DatabaseProfile) *DB {
	t.Helper()

	db, err := New(Config{
		Path:    filepath.Join(t.TempDir(), "test.db"),
		Profile: profile,
		Name:    "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// TestNew tests opening a database with each profile.
func TestNew(t *testing.T) {
	for _, profile := range []DatabaseProfile{ProfileStandard, ProfileCache} {
		t.Run(string(profile), func(t *testing.T) {
			db := openTestDB(t, profile)
			assert.Equal(t, profile, db.Profile())
			assert.Equal(t, "test", db.Name())
			assert.NoError(t, db.QuickCheck(context.Background()))
		})
	}
}

// TestDefaultProfile tests that an empty profile falls back to standard.
func TestDefaultProfile(t *testing.T) {
	db, err := New(Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
		Name: "test",
	})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, ProfileStandard, db.Profile())
}

// TestWALMode tests that the WAL pragma took effect.
func TestWALMode(t *testing.T) {
	db := openTestDB(t, ProfileStandard)

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

// TestExecAndQuery tests basic statement execution.
func TestExecAndQuery(t *testing.T) {
	db := openTestDB(t, ProfileStandard)

	_, err := db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, name TEXT)")
	require.NoError(t, err)
	_, err = db.Exec("INSERT INTO t (name) VALUES (?)", "alpha")
	require.NoError(t, err)

	var name string
	require.NoError(t, db.QueryRow("SELECT name FROM t WHERE id = 1").Scan(&name))
	assert.Equal(t, "alpha", name)
}

// TestWithTransaction tests commit and rollback behavior.
func TestWithTransaction(t *testing.T) {
	db := openTestDB(t, ProfileStandard)
	_, err := db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, err := tx.Exec("INSERT INTO t (id) VALUES (1)")
		return err
	})
	require.NoError(t, err)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		if _, err := tx.Exec("INSERT INTO t (id) VALUES (2)"); err != nil {
			return err
		}
		return errors.New("abort")
	})
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 1, count)
}

// TestWithTransactionPanic tests that a panic rolls back.
func TestWithTransactionPanic(t *testing.T) {
	db := openTestDB(t, ProfileStandard)
	_, err := db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	err = WithTransaction(db.Conn(), func(tx *sql.Tx) error {
		_, _ = tx.Exec("INSERT INTO t (id) VALUES (1)")
		panic("boom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic")

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t").Scan(&count))
	assert.Equal(t, 0, count)
}

// TestWithTransactionNilDB tests the nil connection guard.
func TestWithTransactionNilDB(t *testing.T) {
	err := WithTransaction(nil, func(tx *sql.Tx) error { return nil })
	assert.Error(t, err)
}

// TestHealthCheck tests the full integrity check path.
func TestHealthCheck(t *testing.T) {
	db := openTestDB(t, ProfileStandard)
	assert.NoError(t, db.HealthCheck(context.Background()))
}

// TestWALCheckpointAndVacuum tests maintenance operations.
func TestWALCheckpointAndVacuum(t *testing.T) {
	db := openTestDB(t, ProfileStandard)

	_, err := db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY)")
	require.NoError(t, err)

	assert.NoError(t, db.WALCheckpoint(""))
	assert.NoError(t, db.Vacuum())
}

// TestGetStats tests statistics retrieval.
func TestGetStats(t *testing.T) {
	db := openTestDB(t, ProfileStandard)

	_, err := db.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, blob TEXT)")
	require.NoError(t, err)

	stats, err := db.GetStats()
	require.NoError(t, err)
	assert.Greater(t, stats.PageCount, int64(0))
	assert.Greater(t, stats.PageSize, int64(0))
}
