// Package calculations provides a persistent TTL cache for computed risk
// results. Entries are msgpack blobs with expiration timestamps; expired rows
// are treated as misses and reaped by the scheduler.
package calculations

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// Cache stores serialized computation results in cache.db.
type Cache struct {
	db *sql.DB
}

// NewCache creates a cache over the given connection.
func NewCache(db *sql.DB) *Cache {
	return &Cache{db: db}
}

// Schema is the risk_cache table definition.
const Schema = `
CREATE TABLE IF NOT EXISTS risk_cache (
	key TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_risk_cache_expires ON risk_cache(expires_at);
`

// Migrate creates the cache table if it does not exist.
func (c *Cache) Migrate() error {
	if _, err := c.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create risk_cache schema: %w", err)
	}
	return nil
}

// Store serializes value with msgpack and saves it under key with
// expiration now + ttl.
func (c *Cache) Store(key string, value interface{}, ttl time.Duration) error {
	data, err := msgpack.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	expiresAt := time.Now().Add(ttl).Unix()
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO risk_cache (key, data, expires_at) VALUES (?, ?, ?)`,
		key, data, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to store cache entry %s: %w", key, err)
	}
	return nil
}

// Get loads a fresh entry into out. Returns false on miss or expiry.
func (c *Cache) Get(key string, out interface{}) (bool, error) {
	var data []byte
	err := c.db.QueryRow(
		`SELECT data FROM risk_cache WHERE key = ? AND expires_at > ?`,
		key, time.Now().Unix(),
	).Scan(&data)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry %s: %w", key, err)
	}

	if err := msgpack.Unmarshal(data, out); err != nil {
		// A corrupt entry is a miss, not a failure: the caller recomputes
		// and overwrites it.
		return false, nil
	}
	return true, nil
}

// Purge deletes expired rows and returns how many were removed.
func (c *Cache) Purge() (int64, error) {
	result, err := c.db.Exec(`DELETE FROM risk_cache WHERE expires_at <= ?`, time.Now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to purge cache: %w", err)
	}
	return result.RowsAffected()
}
