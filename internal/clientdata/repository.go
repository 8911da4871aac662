// Package clientdata provides persistent caching for price provider responses.
// Price tables are stored as msgpack blobs with expiration timestamps for cache-first behavior.
package clientdata

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aristath/markowitz/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// Repository provides cache operations for price history
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// NewRepository creates a new price history cache repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

// CacheKey identifies a provider response by source, symbols and window.
// Symbol order is kept because it fixes the column order of the table.
func CacheKey(source string, symbols []string, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s",
		source,
		strings.Join(symbols, ","),
		start.Format("2006-01-02"),
		end.Format("2006-01-02"),
	)
}

// Store saves a table with expiration = now + ttl.
// Uses INSERT OR REPLACE to upsert data.
func (r *Repository) Store(key string, table domain.PriceTable, ttl time.Duration) error {
	data, err := msgpack.Marshal(&table)
	if err != nil {
		return fmt.Errorf("failed to marshal price table: %w", err)
	}

	now := r.now()
	_, err = r.db.Exec(
		"INSERT OR REPLACE INTO price_history (cache_key, data, fetched_at, expires_at) VALUES (?, ?, ?, ?)",
		key, data, now.Unix(), now.Add(ttl).Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to store price history %s: %w", key, err)
	}

	return nil
}

// GetIfFresh returns the table only if expires_at > now.
// Returns nil, nil if the key doesn't exist or data is expired.
// Use Get() to retrieve stale data as a fallback when the provider fails.
func (r *Repository) GetIfFresh(key string) (*domain.PriceTable, error) {
	return r.load(
		"SELECT data FROM price_history WHERE cache_key = ? AND expires_at > ?",
		key, r.now().Unix(),
	)
}

// Get returns the table regardless of expiration status.
// Stale data is better than no data when the provider is unreachable.
// Returns nil, nil if the key doesn't exist.
func (r *Repository) Get(key string) (*domain.PriceTable, error) {
	return r.load("SELECT data FROM price_history WHERE cache_key = ?", key)
}

func (r *Repository) load(query string, args ...interface{}) (*domain.PriceTable, error) {
	var data []byte
	err := r.db.QueryRow(query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get price history: %w", err)
	}

	var table domain.PriceTable
	if err := msgpack.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("failed to unmarshal price table: %w", err)
	}
	// msgpack decodes timestamps in the local zone
	for i := range table.Rows {
		table.Rows[i].Date = table.Rows[i].Date.UTC()
	}
	return &table, nil
}

// Delete removes a specific entry.
func (r *Repository) Delete(key string) error {
	if _, err := r.db.Exec("DELETE FROM price_history WHERE cache_key = ?", key); err != nil {
		return fmt.Errorf("failed to delete price history %s: %w", key, err)
	}
	return nil
}

// DeleteExpired removes all rows where expires_at < now.
// Returns the number of rows deleted.
func (r *Repository) DeleteExpired() (int64, error) {
	result, err := r.db.Exec("DELETE FROM price_history WHERE expires_at < ?", r.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired price history: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return deleted, nil
}
