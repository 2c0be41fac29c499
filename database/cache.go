package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DocumentCache stores rendered sitemap documents with an expiry time.
type DocumentCache struct {
	Filename string
	db       *sql.DB
	now      func() time.Time
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS sitemap_cache (
	cache_key TEXT NOT NULL PRIMARY KEY,
	document BLOB NOT NULL,
	expires INTEGER NOT NULL
);`

func OpenDocumentCache(path string) (*DocumentCache, error) {
	db, err := openSQLite(path + "?_busy_timeout=5000")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}
	return &DocumentCache{Filename: path, db: db, now: time.Now}, nil
}

func (dc *DocumentCache) Close() {
	dc.db.Close()
}

// SetClock replaces the time source used for expiry checks.
func (dc *DocumentCache) SetClock(now func() time.Time) {
	dc.now = now
}

// Get returns the cached document for key unless it is missing or expired.
func (dc *DocumentCache) Get(key string) (document []byte, ok bool, err error) {
	err = dc.db.QueryRow(
		`SELECT document FROM sitemap_cache WHERE cache_key = ? AND expires > ?`,
		key, dc.now().Unix()).Scan(&document)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("reading cache entry %q: %w", key, err)
	}
	return document, true, nil
}

func (dc *DocumentCache) Put(key string, document []byte, ttl time.Duration) error {
	_, err := dc.db.Exec(`
		INSERT INTO sitemap_cache
			(cache_key, document, expires)
		VALUES
			(?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			document = excluded.document,
			expires = excluded.expires`,
		key, document, dc.now().Add(ttl).Unix())
	if err != nil {
		return fmt.Errorf("writing cache entry %q: %w", key, err)
	}
	return nil
}

// Prune deletes expired entries and reports how many were removed.
func (dc *DocumentCache) Prune() (int64, error) {
	res, err := dc.db.Exec(`DELETE FROM sitemap_cache WHERE expires <= ?`, dc.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("pruning cache: %w", err)
	}
	return res.RowsAffected()
}

// Count includes expired entries that have not been pruned yet.
func (dc *DocumentCache) Count() (count int64, err error) {
	err = dc.db.QueryRow(`SELECT COUNT(*) FROM sitemap_cache`).Scan(&count)
	return
}

func (dc *DocumentCache) Clear() (int64, error) {
	res, err := dc.db.Exec(`DELETE FROM sitemap_cache`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	return res.RowsAffected()
}
